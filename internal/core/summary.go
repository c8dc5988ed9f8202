package core

import "time"

// StatusBreakdown aggregates quotes sharing a status.
type StatusBreakdown struct {
	Status Status  `json:"status"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

// MonthTotal is a compact summary for a specific year+month.
type MonthTotal struct {
	Year  int     `json:"year"`
	Month int     `json:"month"` // 1-12
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

type QuoteStats struct {
	Count    int               `json:"count"`
	Total    float64           `json:"total"`
	Average  float64           `json:"average"`
	ByStatus []StatusBreakdown `json:"byStatus"`
	ByMonth  []MonthTotal      `json:"byMonth"`
}

type UnitCount struct {
	Unit  Unit `json:"unit"`
	Count int  `json:"count"`
}

type MaterialStats struct {
	Total        int         `json:"total"`
	Active       int         `json:"active"`
	Inactive     int         `json:"inactive"`
	AveragePrice float64     `json:"averagePrice"`
	MinPrice     float64     `json:"minPrice"`
	MaxPrice     float64     `json:"maxPrice"`
	ByUnit       []UnitCount `json:"byUnit"`
}

// ClientTotal ranks clients by billed amount.
type ClientTotal struct {
	Client string  `json:"client"`
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
}

// MaterialUsage counts how often a material appears in quote line items.
type MaterialUsage struct {
	MaterialID    string  `json:"materialId"`
	Name          string  `json:"name"`
	Unit          Unit    `json:"unit"`
	TimesUsed     int     `json:"timesUsed"`
	TotalQuantity float64 `json:"totalQuantity"`
}

type QuoteOverview struct {
	Count     int     `json:"count"`
	Billed    float64 `json:"billed"`
	Average   float64 `json:"average"`
	ThisMonth int     `json:"thisMonth"`
}

type DashboardStats struct {
	Quotes       QuoteOverview     `json:"quotes"`
	Materials    MaterialStats     `json:"materials"`
	ByStatus     []StatusBreakdown `json:"byStatus"`
	TopClients   []ClientTotal     `json:"topClients"`
	ByMonth      []MonthTotal      `json:"byMonth"`
	TopMaterials []MaterialUsage   `json:"topMaterials"`
}

const (
	ActivityQuote    = "quote"
	ActivityMaterial = "material"
)

// Activity is one entry of the merged recent activity feed.
type Activity struct {
	Type        string    `json:"type"`
	Action      string    `json:"action"`
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Data        any       `json:"data,omitempty"`
}

type Summary struct {
	TotalQuotes     int     `json:"totalQuotes"`
	ActiveMaterials int     `json:"activeMaterials"`
	QuotesThisMonth int     `json:"quotesThisMonth"`
	TotalBilled     float64 `json:"totalBilled"`
}

// LastMonths returns the n calendar months ending with the month of now,
// oldest first, with zero counts.
func LastMonths(now time.Time, n int) []MonthTotal {
	start, _ := MonthBounds(now)
	out := make([]MonthTotal, n)
	for i := 0; i < n; i++ {
		m := start.AddDate(0, i-(n-1), 0)
		out[i] = MonthTotal{Year: m.Year(), Month: int(m.Month())}
	}
	return out
}
