package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldTab         = "tab"
	FieldOrigin      = "origin"
	FieldMessageType = "message_type"
	FieldExpenseID   = "expense_id"
	FieldAmountCents = "amount_cents"
	FieldCategory    = "category"
	FieldVersion     = "version"
	FieldAttempt     = "attempt"
	FieldPolicy      = "write_policy"
	FieldKey         = "key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentTab       = "tab"
	ComponentBroadcast = "broadcast"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpAdd      = "add"
	OpDelete   = "delete"
	OpProfile  = "profile_update"
	OpInbound  = "inbound"
	OpRecover  = "recover"
	OpReload   = "reload"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithTab(tab string) LogFields {
	f[FieldTab] = tab
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error field; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithExpense adds the fields identifying an expense.
func (f LogFields) WithExpense(id string, amountCents int64, category string) LogFields {
	f[FieldExpenseID] = id
	f[FieldAmountCents] = amountCents
	f[FieldCategory] = category
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
