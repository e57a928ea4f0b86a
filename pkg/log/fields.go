package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor, set on the gin context by the auth middleware
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Chat
	FieldConversationID = "conversation_id"
	FieldMessageID      = "message_id"
	FieldCloseCode      = "close_code"

	// Events
	FieldEventType = "event_type"
	FieldDriver    = "driver"

	FieldService = "service"

	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
