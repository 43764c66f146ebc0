package metadata

// Reserved metadata keys. Custom metadata should not reuse them.
const (
	// KeyCorrelationID tracks related messages across services.
	KeyCorrelationID = "correlation_id"
	// KeyEventType names the payload kind for the outbox.
	KeyEventType = "msgflow_event_type"
	// KeyWireFormat records the codec that encoded the payload.
	KeyWireFormat = "msgflow_wire_format"
	// KeyRunID carries the pipeline run id of a render plan.
	KeyRunID = "msgflow_run_id"
	// KeyContentRenderer carries the id of the selected content renderer.
	KeyContentRenderer = "msgflow_content_renderer"
	// KeyRetryCount is incremented by the retry middleware hooks.
	KeyRetryCount = "msgflow_retry_count"

	// Render hints set by the ingestion side.
	KeyIsGroup      = "msgflow_is_group"
	KeyFirstInGroup = "msgflow_first_in_group"
	KeyLastInGroup  = "msgflow_last_in_group"
	KeySenderName   = "msgflow_sender_name"
	KeyMaxWidth     = "msgflow_max_width"
)

// Values of KeyEventType.
const (
	EventTypeMessage = "message"
	EventTypePlan    = "render_plan"
)
