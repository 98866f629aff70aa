package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Messages returned to clients. They are part of the public contract.
const (
	msgUserNotFound       = "User not found"
	msgNotAuthorized      = "Not authorized"
	msgNotTutor           = "Not a tutor."
	msgMissingTicketInput = "Please add a product and description"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// PatchDecoder yields the requested changes. UpdateTicket calls it only after
// the requester has been authorized for the ticket.
type PatchDecoder func() (domain.TicketPatch, error)

// StaticPatch returns a PatchDecoder for an already built patch.
func StaticPatch(patch domain.TicketPatch) PatchDecoder {
	return func() (domain.TicketPatch, error) { return patch, nil }
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Product     string
	Description string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// ListUserTickets returns every ticket owned by the requester.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string) (tickets []domain.Ticket, err error) {
	defer s.observe("list_own", &err)

	if _, err := s.loadRequester(ctx, userID); err != nil {
		return nil, err
	}
	tickets, err = s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// ListAllTickets returns every ticket in the desk. Only tutors and admins may call it.
func (s *TicketService) ListAllTickets(ctx context.Context, userID string) (tickets []domain.Ticket, err error) {
	defer s.observe("list_all", &err)

	user, err := s.loadRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewAll(user) {
		return nil, apperrors.NewForbidden(msgNotTutor)
	}
	tickets, err = s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

// GetTicket returns a ticket the requester owns, or any ticket for admins.
func (s *TicketService) GetTicket(ctx context.Context, userID, ticketID string) (ticket *domain.Ticket, err error) {
	defer s.observe("get", &err)

	_, ticket, err = s.loadAccessible(ctx, userID, ticketID)
	return ticket, err
}

// CreateTicket stores a new ticket owned by the requester.
func (s *TicketService) CreateTicket(ctx context.Context, userID string, input TicketCreateInput) (ticket *domain.Ticket, err error) {
	defer s.observe("create", &err)

	product := strings.TrimSpace(input.Product)
	description := strings.TrimSpace(input.Description)
	if product == "" || description == "" {
		return nil, apperrors.NewValidationError(msgMissingTicketInput, nil)
	}
	if _, err := s.loadRequester(ctx, userID); err != nil {
		return nil, err
	}

	ticket = &domain.Ticket{
		UserID:      userID,
		Product:     product,
		Description: description,
		Status:      domain.TicketStatusNew,
		TutorID:     nil,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  userID,
		Payload:  events.TicketCreatedPayload{OwnerID: userID, Product: ticket.Product},
	})
	return ticket, nil
}

// DeleteTicket permanently removes a ticket.
func (s *TicketService) DeleteTicket(ctx context.Context, userID, ticketID string) (err error) {
	defer s.observe("delete", &err)

	_, ticket, err := s.loadAccessible(ctx, userID, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		// Lost a race with a concurrent delete.
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("Ticket")
		}
		return apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		ActorID:  userID,
		Payload:  events.TicketDeletedPayload{OwnerID: ticket.UserID},
	})
	return nil
}

// UpdateTicket applies the decoded patch to a ticket and returns the stored
// result. The body is not inspected until the requester, the ticket and the
// ownership check have all passed.
func (s *TicketService) UpdateTicket(ctx context.Context, userID, ticketID string, decode PatchDecoder) (ticket *domain.Ticket, err error) {
	defer s.observe("update", &err)

	_, current, err := s.loadAccessible(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	patch, err := decode()
	if err != nil {
		return nil, err
	}
	if err := s.validatePatch(ctx, &patch); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	ticket, err = s.tickets.Update(ctx, current.ID, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("Ticket")
		}
		return nil, apperrors.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		ActorID:  userID,
		Payload:  events.TicketUpdatedPayload{Fields: patch.Fields(), Status: ticket.Status},
	})
	if patch.SetTutor && patch.TutorID != nil {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketTutorAssigned,
			TicketID: ticket.ID,
			ActorID:  userID,
			Payload:  events.TicketTutorAssignedPayload{TutorID: *patch.TutorID, OwnerID: ticket.UserID},
		})
	}
	return ticket, nil
}

func (s *TicketService) validatePatch(ctx context.Context, patch *domain.TicketPatch) error {
	if patch.Product != nil {
		trimmed := strings.TrimSpace(*patch.Product)
		if trimmed == "" {
			return apperrors.NewValidationError("product cannot be empty", nil)
		}
		patch.Product = &trimmed
	}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		if trimmed == "" {
			return apperrors.NewValidationError("description cannot be empty", nil)
		}
		patch.Description = &trimmed
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return apperrors.NewValidationError("invalid status", map[string]any{
			"allowed": []domain.TicketStatus{domain.TicketStatusNew, domain.TicketStatusOpen, domain.TicketStatusClosed},
		})
	}
	if patch.SetTutor && patch.TutorID != nil {
		if _, err := uuid.Parse(*patch.TutorID); err != nil {
			return apperrors.NewValidationError("tutor not found", nil)
		}
		if _, err := s.users.GetByID(ctx, *patch.TutorID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewValidationError("tutor not found", nil)
			}
			return apperrors.NewInternalError(err)
		}
	}
	return nil
}

// loadRequester loads the acting user. A missing record is reported as
// unauthenticated rather than not found.
func (s *TicketService) loadRequester(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, apperrors.NewUnauthorized(msgUserNotFound)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized(msgUserNotFound)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// loadAccessible runs the shared chain of the single-ticket operations:
// load requester, load ticket, check ownership or admin.
func (s *TicketService) loadAccessible(ctx context.Context, userID, ticketID string) (*domain.User, *domain.Ticket, error) {
	user, err := s.loadRequester(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, nil, apperrors.NewNotFound("Ticket")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("Ticket")
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	if !domain.CanAccess(ticket, user) {
		return nil, nil, apperrors.NewForbidden(msgNotAuthorized)
	}
	return user, ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery failed",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func (s *TicketService) observe(operation string, errp *error) {
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = apperrors.ToDomainError(*errp).Code
	}
	s.metrics.RecordTicketOperation(operation, outcome)
}
