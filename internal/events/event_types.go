package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketTutorAssigned EventType = "ticket_tutor_assigned"
)

// AllEventTypes lists every event the ticket service emits.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
	EventTicketTutorAssigned,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	OwnerID string `json:"owner_id"`
	Product string `json:"product"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	Fields []string            `json:"fields"`
	Status domain.TicketStatus `json:"status"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	OwnerID string `json:"owner_id"`
}

// TicketTutorAssignedPayload payload.
type TicketTutorAssignedPayload struct {
	TutorID string `json:"tutor_id"`
	OwnerID string `json:"owner_id"`
}
