package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldPanelID   = "panel_id"
	FieldWidgetID  = "widget_id"
	FieldWebViewID = "webview_id"
	FieldUsername  = "username"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Channel / stream fields
	FieldChannel      = "channel"
	FieldChannelIndex = "channel_index"
	FieldLink         = "link"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Network fields
	FieldURL        = "url"
	FieldStatusCode = "status_code"
	FieldRedirects  = "redirects"
)
