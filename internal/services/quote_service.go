package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cotizador/internal/amqp"
	"cotizador/internal/core"
	applog "cotizador/internal/log"
	"cotizador/internal/storage"

	"github.com/google/uuid"
)

// Quote defaults. Rates apply when a quote omits them.
const (
	DefaultLaborRate     = 25.0
	DefaultPaintingRate  = 15.0
	DefaultNumberRetries = 3
	DefaultRecentQuotes  = 5
	MaxRecentQuotes      = 50
)

type (
	LineItemInput struct {
		MaterialRef string   `json:"materialRef"`
		Quantity    float64  `json:"quantity"`
		UnitPrice   *float64 `json:"unitPrice,omitempty"`
		CustomPrice *float64 `json:"customPrice,omitempty"`
	}

	LaborInput struct {
		Hours       float64  `json:"hours"`
		RatePerHour *float64 `json:"ratePerHour,omitempty"`
	}

	PaintingInput struct {
		AreaSqMeters   float64  `json:"areaSqMeters"`
		RatePerSqMeter *float64 `json:"ratePerSqMeter,omitempty"`
	}

	// QuoteInput is what callers may supply. Number and every total are
	// derived and therefore absent.
	QuoteInput struct {
		Client    string          `json:"client"`
		Project   string          `json:"project"`
		LineItems []LineItemInput `json:"lineItems"`
		Labor     LaborInput      `json:"labor"`
		Painting  PaintingInput   `json:"painting"`
		Status    core.Status     `json:"status,omitempty"`
		Notes     string          `json:"notes,omitempty"`
		ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	}

	QuoteServiceConfig struct {
		DefaultLaborRate    float64
		DefaultPaintingRate float64
		NumberRetries       int
		Location            *time.Location
		Now                 func() time.Time
	}
)

func DefaultQuoteServiceConfig() QuoteServiceConfig {
	return QuoteServiceConfig{
		DefaultLaborRate:    DefaultLaborRate,
		DefaultPaintingRate: DefaultPaintingRate,
		NumberRetries:       DefaultNumberRetries,
		Location:            time.Local,
		Now:                 time.Now,
	}
}

// QuoteService prepares quotes for storage and persists them.
type QuoteService struct {
	repo   *storage.SQLiteRepository
	events EventPublisher
	config QuoteServiceConfig
}

func NewQuoteService(repo *storage.SQLiteRepository, events EventPublisher, config QuoteServiceConfig) *QuoteService {
	def := DefaultQuoteServiceConfig()
	if config.NumberRetries <= 0 {
		config.NumberRetries = def.NumberRetries
	}
	if config.Location == nil {
		config.Location = def.Location
	}
	if config.Now == nil {
		config.Now = def.Now
	}
	return &QuoteService{repo: repo, events: events, config: config}
}

// now is truncated to the precision storage keeps, so a returned quote
// matches what a later read yields.
func (s *QuoteService) now() time.Time {
	return s.config.Now().In(s.config.Location).Truncate(time.Microsecond)
}

// Create validates in, resolves materials, derives totals and stores a new
// draft quote with the next number of the current month.
func (s *QuoteService) Create(ctx context.Context, in QuoteInput) (core.Quote, error) {
	now := s.now()
	q := core.Quote{
		ID:        uuid.NewString(),
		Status:    core.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.prepareForStorage(ctx, &q, in); err != nil {
		return core.Quote{}, err
	}

	var err error
	for attempt := 1; attempt <= s.config.NumberRetries; attempt++ {
		q.Number = ""
		err = s.repo.CreateQuote(ctx, &q)
		if err == nil || !errors.Is(err, core.ErrDuplicateKey) {
			break
		}
		slog.WarnContext(ctx, "Quote number collision, recounting",
			"quote_number", q.Number, "attempt", attempt)
		if rerr := s.repo.ResyncQuoteSequence(ctx, q.CreatedAt); rerr != nil {
			return core.Quote{}, fmt.Errorf("resync quote sequence: %w", rerr)
		}
	}
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return core.Quote{}, fmt.Errorf("allocate quote number after %d attempts: %w", s.config.NumberRetries, err)
		}
		return core.Quote{}, fmt.Errorf("create quote: %w", err)
	}

	logQuoteSaved(ctx, applog.OpCreate, q)
	publishQuoteEvent(ctx, s.events, amqp.QuoteCreated, q)
	return q, nil
}

// Update replaces the editable content of a quote. Number and creation time
// are kept; a status change must be a valid transition.
func (s *QuoteService) Update(ctx context.Context, id string, in QuoteInput) (core.Quote, error) {
	existing, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return core.Quote{}, err
	}

	q := core.Quote{
		ID:        existing.ID,
		Number:    existing.Number,
		Status:    existing.Status,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: s.now(),
	}
	statusChanged := in.Status != "" && in.Status != existing.Status
	if statusChanged {
		if !in.Status.IsValid() {
			return core.Quote{}, core.NewValidationError("status", fmt.Sprintf("must be one of %s", statusList()))
		}
		if !existing.Status.CanTransitionTo(in.Status) {
			return core.Quote{}, &core.TransitionError{From: existing.Status, To: in.Status}
		}
		q.Status = in.Status
	}
	in.Status = ""
	if err := s.prepareForStorage(ctx, &q, in); err != nil {
		return core.Quote{}, err
	}

	if err := s.repo.UpdateQuote(ctx, q); err != nil {
		return core.Quote{}, fmt.Errorf("update quote: %w", err)
	}

	logQuoteSaved(ctx, applog.OpUpdate, q)
	publishQuoteEvent(ctx, s.events, amqp.QuoteUpdated, q)
	if statusChanged {
		publishQuoteEvent(ctx, s.events, amqp.QuoteStatusChanged, q)
	}
	return s.repo.GetQuote(ctx, id)
}

// UpdateStatus moves a quote along its lifecycle. Setting the current status
// again is a no-op.
func (s *QuoteService) UpdateStatus(ctx context.Context, id string, status core.Status) (core.Quote, error) {
	if !status.IsValid() {
		return core.Quote{}, core.NewValidationError("status", fmt.Sprintf("must be one of %s", statusList()))
	}
	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return core.Quote{}, err
	}
	if q.Status == status {
		return q, nil
	}
	if !q.Status.CanTransitionTo(status) {
		return core.Quote{}, &core.TransitionError{From: q.Status, To: status}
	}

	now := s.now()
	if err := s.repo.UpdateQuoteStatus(ctx, id, status, now); err != nil {
		return core.Quote{}, fmt.Errorf("update quote status: %w", err)
	}
	q.Status, q.UpdatedAt = status, now

	slog.InfoContext(ctx, "Quote status changed",
		"quote_id", q.ID, "quote_number", q.Number, "status", status)
	publishQuoteEvent(ctx, s.events, amqp.QuoteStatusChanged, q)
	return q, nil
}

func (s *QuoteService) Delete(ctx context.Context, id string) error {
	q, err := s.repo.GetQuote(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteQuote(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Quote deleted", "quote_id", id, "quote_number", q.Number)
	publishQuoteEvent(ctx, s.events, amqp.QuoteDeleted, q)
	return nil
}

func (s *QuoteService) Get(ctx context.Context, id string) (core.Quote, error) {
	return s.repo.GetQuote(ctx, id)
}

// GetByNumber looks a quote up by its COT-YYYYMM-NNN number.
func (s *QuoteService) GetByNumber(ctx context.Context, number string) (core.Quote, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if _, _, err := core.ParseQuoteNumber(number); err != nil {
		return core.Quote{}, core.NewValidationError("number", "must look like COT-YYYYMM-NNN")
	}
	return s.repo.GetQuoteByNumber(ctx, number)
}

func (s *QuoteService) List(ctx context.Context, f storage.QuoteFilter) ([]core.Quote, int, error) {
	if f.Status != "" && !f.Status.IsValid() {
		return nil, 0, core.NewValidationError("status", fmt.Sprintf("must be one of %s", statusList()))
	}
	if f.Sort != "" && !storage.ValidQuoteSort(f.Sort) {
		return nil, 0, core.NewValidationError("sort", "unsupported sort key")
	}
	return s.repo.ListQuotes(ctx, f)
}

func (s *QuoteService) ListByClient(ctx context.Context, client string) ([]core.Quote, error) {
	if strings.TrimSpace(client) == "" {
		return nil, core.NewValidationError("client", "is required")
	}
	return s.repo.QuotesByClient(ctx, client)
}

// Recent returns the newest quotes; limit defaults to 5 and is capped at 50.
func (s *QuoteService) Recent(ctx context.Context, limit int) ([]core.Quote, error) {
	if limit <= 0 {
		limit = DefaultRecentQuotes
	}
	if limit > MaxRecentQuotes {
		limit = MaxRecentQuotes
	}
	return s.repo.RecentQuotes(ctx, limit)
}

func (s *QuoteService) Stats(ctx context.Context) (core.QuoteStats, error) {
	return s.repo.QuoteStats(ctx, s.now())
}

// prepareForStorage copies the editable input onto q, validates it, resolves
// referenced materials, fills defaults and recomputes every total. Nothing is
// written: all failures surface before persistence.
func (s *QuoteService) prepareForStorage(ctx context.Context, q *core.Quote, in QuoteInput) error {
	q.Client = strings.TrimSpace(in.Client)
	q.Project = strings.TrimSpace(in.Project)
	q.Notes = strings.TrimSpace(in.Notes)
	q.ExpiresAt = in.ExpiresAt
	q.Labor = core.Labor{Hours: in.Labor.Hours, RatePerHour: s.config.DefaultLaborRate}
	if in.Labor.RatePerHour != nil {
		q.Labor.RatePerHour = *in.Labor.RatePerHour
	}
	q.Painting = core.Painting{AreaSqMeters: in.Painting.AreaSqMeters, RatePerSqMeter: s.config.DefaultPaintingRate}
	if in.Painting.RatePerSqMeter != nil {
		q.Painting.RatePerSqMeter = *in.Painting.RatePerSqMeter
	}

	q.LineItems = make([]core.LineItem, len(in.LineItems))
	for i, li := range in.LineItems {
		q.LineItems[i] = core.LineItem{
			ID:          uuid.NewString(),
			MaterialRef: strings.TrimSpace(li.MaterialRef),
			Quantity:    li.Quantity,
			CustomPrice: li.CustomPrice,
		}
		if li.UnitPrice != nil {
			q.LineItems[i].UnitPrice = *li.UnitPrice
		}
	}

	if err := q.Validate(); err != nil {
		return err
	}
	if err := s.resolveMaterials(ctx, q, in.LineItems); err != nil {
		return err
	}

	return core.ComputeTotals(q).CheckFinite()
}

// resolveMaterials checks every referenced material exists, in item order,
// and copies the catalog price onto items that did not bring one.
func (s *QuoteService) resolveMaterials(ctx context.Context, q *core.Quote, in []LineItemInput) error {
	if len(q.LineItems) == 0 {
		return nil
	}
	ids := make([]string, 0, len(q.LineItems))
	seen := make(map[string]bool, len(q.LineItems))
	for _, li := range q.LineItems {
		if !seen[li.MaterialRef] {
			seen[li.MaterialRef] = true
			ids = append(ids, li.MaterialRef)
		}
	}

	materials, err := s.repo.GetMaterialsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve materials: %w", err)
	}
	for i := range q.LineItems {
		li := &q.LineItems[i]
		m, ok := materials[li.MaterialRef]
		if !ok {
			return &core.MaterialNotFoundError{ID: li.MaterialRef}
		}
		li.MaterialName = m.Name
		li.MaterialUnit = m.Unit
		if in[i].UnitPrice == nil {
			li.UnitPrice = m.UnitPrice
		}
	}
	return nil
}

func logQuoteSaved(ctx context.Context, op string, q core.Quote) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogQuoteSaved(ctx, op, q.ID, q.Number, q.Client, string(q.Status), q.GrandTotal, len(q.LineItems))
}

func statusList() string {
	parts := make([]string, len(core.Statuses))
	for i, st := range core.Statuses {
		parts[i] = string(st)
	}
	return strings.Join(parts, ", ")
}
