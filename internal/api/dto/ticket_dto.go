package dto

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Product     string `json:"product"`
	Description string `json:"description"`
}

// TicketResponse is the wire form of a ticket. Tutor is null when unassigned.
type TicketResponse struct {
	ID          string              `json:"id"`
	User        string              `json:"user"`
	Product     string              `json:"product"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	Tutor       *string             `json:"tutor"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// SuccessResponse acknowledges operations without a payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          ticket.ID,
		User:        ticket.UserID,
		Product:     ticket.Product,
		Description: ticket.Description,
		Status:      ticket.Status,
		Tutor:       ticket.TutorID,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

// NewTicketResponses maps a list, never returning nil.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// ParseTicketPatch decodes an update body. Only product, description, status
// and tutor may be present; tutor accepts null to clear the assignment.
func ParseTicketPatch(body []byte) (domain.TicketPatch, error) {
	var patch domain.TicketPatch
	if len(bytes.TrimSpace(body)) == 0 {
		return patch, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return patch, apperrors.NewValidationError("invalid payload", nil)
	}

	var rejected []string
	for key, value := range raw {
		switch key {
		case "product":
			s, err := decodeString(key, value)
			if err != nil {
				return patch, err
			}
			patch.Product = &s
		case "description":
			s, err := decodeString(key, value)
			if err != nil {
				return patch, err
			}
			patch.Description = &s
		case "status":
			s, err := decodeString(key, value)
			if err != nil {
				return patch, err
			}
			status := domain.TicketStatus(s)
			patch.Status = &status
		case "tutor":
			patch.SetTutor = true
			if isNull(value) {
				continue
			}
			s, err := decodeString(key, value)
			if err != nil {
				return patch, err
			}
			patch.TutorID = &s
		default:
			rejected = append(rejected, key)
		}
	}

	if len(rejected) > 0 {
		sort.Strings(rejected)
		return domain.TicketPatch{}, apperrors.NewValidationError("fields cannot be updated", map[string]any{
			"fields": rejected,
		})
	}
	return patch, nil
}

func decodeString(field string, value json.RawMessage) (string, error) {
	var s string
	if isNull(value) || json.Unmarshal(value, &s) != nil {
		return "", apperrors.NewValidationError(field+" must be a string", nil)
	}
	return s, nil
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
