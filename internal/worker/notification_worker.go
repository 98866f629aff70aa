package worker

import (
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker registers notification handlers and, when forward
// is non-nil, subscribes it to every ticket event.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, forward events.EventHandler) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if dispatcher == nil || forward == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, forward)
	}
}
