package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
)

type notificationChannel int

const (
	channelEmail notificationChannel = 1 << iota
	channelWebhook
)

// notificationRoutes lists which stub channels hear about each ticket event.
// Tutors are mailed on assignment; everything else goes to the webhook.
var notificationRoutes = map[events.EventType]notificationChannel{
	events.EventTicketCreated:       channelEmail | channelWebhook,
	events.EventTicketUpdated:       channelWebhook,
	events.EventTicketDeleted:       channelWebhook,
	events.EventTicketTutorAssigned: channelEmail,
}

// NotificationService logs the notifications a ticket event would trigger.
// Email and webhook delivery are stubs.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{dispatcher: dispatcher, logger: logger, cfg: cfg}
}

// RegisterHandlers subscribes to every routed event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for eventType := range notificationRoutes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(_ context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))

	channels := notificationRoutes[event.Type]
	if channels&channelEmail != 0 && strings.TrimSpace(n.cfg.EmailFrom) != "" {
		n.logger.Debug("email notification stub",
			zap.String("from", n.cfg.EmailFrom),
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)))
	}
	if channels&channelWebhook != 0 && strings.TrimSpace(n.cfg.WebhookURL) != "" {
		n.logger.Debug("webhook notification stub",
			zap.String("url", n.cfg.WebhookURL),
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}
