package notify

import (
	"strings"
	"sync"

	"github.com/moyoez/speeder2raw-web/tool"
	"github.com/moyoez/speeder2raw-web/types"
)

var (
	hubMu sync.RWMutex
	hub   types.NotifyHub
)

// SetHub sets the hub that receives every notification. nil disables broadcasting.
func SetHub(h types.NotifyHub) {
	hubMu.Lock()
	defer hubMu.Unlock()
	hub = h
}

// SendNotification broadcasts notification to the web UI clients.
func SendNotification(notification *types.Notification) {
	if notification == nil {
		return
	}
	if notification.ID == "" {
		notification.ID = tool.GenerateRandomUUID()
	}

	hubMu.RLock()
	h := hub
	hubMu.RUnlock()
	if h == nil {
		return
	}
	tool.DefaultLogger.Debugf("[Notify] Broadcasting %s: %s", notification.Type, notification.Message)
	h.Broadcast(notification)
}

// Send builds a notification of eventType and broadcasts it.
func Send(eventType, message string, data map[string]any) {
	SendNotification(&types.Notification{
		Type:    eventType,
		Title:   titleFor(eventType),
		Message: message,
		Data:    data,
	})
}

// titleFor turns "restart_failed" into "Restart failed".
func titleFor(eventType string) string {
	title := strings.ReplaceAll(eventType, "_", " ")
	if title == "" {
		return ""
	}
	return strings.ToUpper(title[:1]) + title[1:]
}
