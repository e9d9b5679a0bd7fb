package service

// Standard log field names. Keeping these in one place keeps the JSON log
// output queryable across services.
const (
	LogFieldChannel        = "channel"
	LogFieldKind           = "kind"
	LogFieldCustomerID     = "customer_id"
	LogFieldConversationID = "conversation_id"
	LogFieldMessageID      = "message_id"
	LogFieldProviderMsgID  = "provider_msg_id"
	LogFieldCommentID      = "comment_id"
	LogFieldAgentID        = "agent_id"
	LogFieldDirection      = "direction"
	LogFieldAction         = "action"
)

// HTTP request log fields used by the observability middleware.
const (
	LogFieldRequestID  = "request_id"
	LogFieldTraceID    = "trace_id"
	LogFieldMethod     = "method"
	LogFieldURL        = "url"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"
	LogFieldStatusCode = "status_code"
	LogFieldDuration   = "duration_ms"
	LogFieldSize       = "response_size"
)
