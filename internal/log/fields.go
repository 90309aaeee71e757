package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"

	FieldUserEmail   = "user_email"
	FieldItemID      = "item_id"
	FieldItemName    = "item_name"
	FieldCategory    = "category"
	FieldExpiryDate  = "expiry_date"
	FieldAddedMethod = "added_method"
	FieldBucket      = "expiry_bucket"
	FieldSheetsRef   = "sheets_ref"
)

// Component names, one per binary.
const (
	ComponentApp      = "app"
	ComponentWorker   = "worker"
	ComponentReminder = "reminder"
)
