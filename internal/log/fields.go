package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldQuoteID       = "quote_id"
	FieldQuoteNumber   = "quote_number"
	FieldQuoteStatus   = "status"
	FieldClient        = "client"
	FieldGrandTotal    = "grand_total"
	FieldItemCount     = "line_items"
	FieldMaterialID    = "material_id"
	FieldMaterialName  = "material_name"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentQuote     = "quote"
	ComponentMaterial  = "material"
	ComponentDashboard = "dashboard"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentAdmin     = "admin"
)

// Operations defines standard operation names
const (
	OpCreate       = "create"
	OpRead         = "read"
	OpUpdate       = "update"
	OpUpdateStatus = "update_status"
	OpDelete       = "delete"
	OpList         = "list"
	OpStats        = "stats"
	OpExport       = "export"
	OpValidate     = "validate"
	OpShutdown     = "shutdown"
	OpStartup      = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors add nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithQuote adds the identifying and monetary fields of a quote.
func (f LogFields) WithQuote(id, number, client, status string, grandTotal float64, items int) LogFields {
	f[FieldQuoteID] = id
	f[FieldQuoteNumber] = number
	f[FieldClient] = client
	f[FieldQuoteStatus] = status
	f[FieldGrandTotal] = grandTotal
	f[FieldItemCount] = items
	return f
}

func (f LogFields) WithMaterial(id, name string) LogFields {
	f[FieldMaterialID] = id
	f[FieldMaterialName] = name
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, durationHuman string, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldDurationHuman] = durationHuman
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to slog key/value args. The component key is
// left out because Logger adds it.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		if k == FieldComponent {
			continue
		}
		slice = append(slice, k, v)
	}
	return slice
}
