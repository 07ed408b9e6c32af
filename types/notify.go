package types

const (
	NotifyTypeGroupCreated         = "group_created"
	NotifyTypeGroupUpdated         = "group_updated"
	NotifyTypeGroupDeleted         = "group_deleted"
	NotifyTypeGlobalUpdated        = "global_updated"
	NotifyTypeRestartDone          = "restart_done"
	NotifyTypeRestartFailed        = "restart_failed"
	NotifyTypeMappingServerStarted = "mapping_server_started"
	NotifyTypeMappingServerFailed  = "mapping_server_failed"
)

// Notification represents a notification message structure
type Notification struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "group_created", "restart_failed", etc.
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

// NotifyHub broadcasts notifications to connected web UI clients.
type NotifyHub interface {
	Broadcast(notification *Notification)
}
