package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type ticketFixture struct {
	svc      *TicketService
	tickets  *fakeTicketRepo
	users    *fakeUserRepo
	events   *[]events.Event
	metrics  *observability.Metrics
	owner    *domain.User
	stranger *domain.User
	admin    *domain.User
	tutor    *domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		owner:    &domain.User{ID: uuid.NewString(), Name: "Owner"},
		stranger: &domain.User{ID: uuid.NewString(), Name: "Stranger"},
		admin:    &domain.User{ID: uuid.NewString(), Name: "Admin", IsAdmin: true},
		tutor:    &domain.User{ID: uuid.NewString(), Name: "Tutor", IsTutor: true},
		tickets:  newFakeTicketRepo(),
		metrics:  observability.NewMetrics(),
	}
	f.users = newFakeUserRepo(f.owner, f.stranger, f.admin, f.tutor)

	f.events = &[]events.Event{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			*f.events = append(*f.events, e)
			return nil
		})
	}

	f.svc = NewTicketService(TicketDependencies{
		TicketRepo: f.tickets,
		UserRepo:   f.users,
		Dispatcher: dispatcher,
		Metrics:    f.metrics,
	})
	return f
}

func (f *ticketFixture) create(t *testing.T, owner *domain.User) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), owner.ID, TicketCreateInput{Product: "Laptop", Description: "Won't boot"})
	require.NoError(t, err)
	return ticket
}

func assertCode(t *testing.T, err error, code, message string) {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, code, de.Code)
	if message != "" {
		assert.Equal(t, message, de.Message)
	}
}

func TestCreateTicket_ForcesInitialState(t *testing.T) {
	f := newTicketFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), f.owner.ID, TicketCreateInput{Product: " Laptop ", Description: "Won't boot"})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "Laptop", ticket.Product)
	assert.Equal(t, "Won't boot", ticket.Description)
	assert.Equal(t, f.owner.ID, ticket.UserID)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Nil(t, ticket.TutorID)

	got, err := f.svc.GetTicket(context.Background(), f.owner.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, got.Status)
	assert.Nil(t, got.TutorID)
	assert.Equal(t, f.owner.ID, got.UserID)

	require.Len(t, *f.events, 1)
	assert.Equal(t, events.EventTicketCreated, (*f.events)[0].Type)
	series, err := testutil.GatherAndCount(f.metrics.Registry(), "tickets_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "create and get outcomes")
}

func TestCreateTicket_RepeatedCallsCreateDistinctTickets(t *testing.T) {
	f := newTicketFixture(t)

	first := f.create(t, f.owner)
	second := f.create(t, f.owner)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateTicket_Validation(t *testing.T) {
	f := newTicketFixture(t)

	cases := []TicketCreateInput{
		{Product: "", Description: "x"},
		{Product: "Laptop", Description: ""},
		{Product: "   ", Description: "x"},
	}
	for _, input := range cases {
		_, err := f.svc.CreateTicket(context.Background(), f.owner.ID, input)
		assertCode(t, err, apperrors.CodeValidation, "Please add a product and description")
	}
	assert.Zero(t, f.tickets.writes)
}

func TestCreateTicket_UnknownUser(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.CreateTicket(context.Background(), uuid.NewString(), TicketCreateInput{Product: "Laptop", Description: "x"})
	assertCode(t, err, apperrors.CodeUnauthorized, "User not found")
}

func TestListUserTickets(t *testing.T) {
	f := newTicketFixture(t)
	mine := f.create(t, f.owner)
	f.create(t, f.stranger)

	tickets, err := f.svc.ListUserTickets(context.Background(), f.owner.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, mine.ID, tickets[0].ID)

	none, err := f.svc.ListUserTickets(context.Background(), f.tutor.ID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.svc.ListUserTickets(context.Background(), uuid.NewString())
	assertCode(t, err, apperrors.CodeUnauthorized, "User not found")
}

func TestListAllTickets(t *testing.T) {
	f := newTicketFixture(t)
	f.create(t, f.owner)
	f.create(t, f.stranger)

	for _, viewer := range []*domain.User{f.admin, f.tutor} {
		tickets, err := f.svc.ListAllTickets(context.Background(), viewer.ID)
		require.NoError(t, err)
		assert.Len(t, tickets, 2)
	}

	_, err := f.svc.ListAllTickets(context.Background(), f.owner.ID)
	assertCode(t, err, apperrors.CodeForbidden, "Not a tutor.")

	_, err = f.svc.ListAllTickets(context.Background(), uuid.NewString())
	assertCode(t, err, apperrors.CodeUnauthorized, "User not found")
}

func TestListAllTickets_StoreFailureIsInternal(t *testing.T) {
	f := newTicketFixture(t)
	storeErr := errors.New("connection refused")
	f.tickets.err = storeErr

	_, err := f.svc.ListAllTickets(context.Background(), f.admin.ID)
	assertCode(t, err, apperrors.CodeInternal, "")
	assert.ErrorIs(t, err, storeErr)
}

func TestGetTicket_NotFound(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.GetTicket(context.Background(), f.owner.ID, "missing")
	assertCode(t, err, apperrors.CodeNotFound, "Ticket not found")

	_, err = f.svc.GetTicket(context.Background(), f.owner.ID, uuid.NewString())
	assertCode(t, err, apperrors.CodeNotFound, "Ticket not found")
}

func TestGetTicket_MissingUserCheckedFirst(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.GetTicket(context.Background(), uuid.NewString(), "missing")
	assertCode(t, err, apperrors.CodeUnauthorized, "User not found")
}

func TestSingleTicketOperations_Authorization(t *testing.T) {
	status := domain.TicketStatusOpen
	patch := domain.TicketPatch{Status: &status}

	ops := map[string]func(f *ticketFixture, userID, ticketID string) error{
		"get": func(f *ticketFixture, userID, ticketID string) error {
			_, err := f.svc.GetTicket(context.Background(), userID, ticketID)
			return err
		},
		"update": func(f *ticketFixture, userID, ticketID string) error {
			_, err := f.svc.UpdateTicket(context.Background(), userID, ticketID, StaticPatch(patch))
			return err
		},
		"delete": func(f *ticketFixture, userID, ticketID string) error {
			return f.svc.DeleteTicket(context.Background(), userID, ticketID)
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			f := newTicketFixture(t)

			for _, denied := range []*domain.User{f.stranger, f.tutor} {
				ticket := f.create(t, f.owner)
				assertCode(t, op(f, denied.ID, ticket.ID), apperrors.CodeForbidden, "Not authorized")
			}

			for _, allowed := range []*domain.User{f.owner, f.admin} {
				ticket := f.create(t, f.owner)
				assert.NoError(t, op(f, allowed.ID, ticket.ID))
			}
		})
	}
}

func TestDeleteTicket_TwiceIsNotFound(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.owner)

	require.NoError(t, f.svc.DeleteTicket(context.Background(), f.owner.ID, ticket.ID))
	err := f.svc.DeleteTicket(context.Background(), f.owner.ID, ticket.ID)
	assertCode(t, err, apperrors.CodeNotFound, "Ticket not found")

	last := (*f.events)[len(*f.events)-1]
	assert.Equal(t, events.EventTicketDeleted, last.Type)
}

func TestUpdateTicket_EmptyPatchReturnsUnchanged(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.owner)
	writes := f.tickets.writes

	got, err := f.svc.UpdateTicket(context.Background(), f.owner.ID, ticket.ID, StaticPatch(domain.TicketPatch{}))
	require.NoError(t, err)
	assert.Equal(t, ticket, got)
	assert.Equal(t, writes, f.tickets.writes)
}

func TestUpdateTicket_AppliesAllowedFields(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.owner)

	status := domain.TicketStatusOpen
	product := "  Desktop "
	got, err := f.svc.UpdateTicket(context.Background(), f.admin.ID, ticket.ID, StaticPatch(domain.TicketPatch{
		Product:  &product,
		Status:   &status,
		SetTutor: true,
		TutorID:  &f.tutor.ID,
	}))
	require.NoError(t, err)
	assert.Equal(t, "Desktop", got.Product)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)
	require.NotNil(t, got.TutorID)
	assert.Equal(t, f.tutor.ID, *got.TutorID)
	assert.Equal(t, f.owner.ID, got.UserID)

	types := []events.EventType{}
	for _, e := range *f.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.EventType{events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketTutorAssigned}, types)

	cleared, err := f.svc.UpdateTicket(context.Background(), f.owner.ID, ticket.ID, StaticPatch(domain.TicketPatch{SetTutor: true}))
	require.NoError(t, err)
	assert.Nil(t, cleared.TutorID)
}

func TestUpdateTicket_RejectsInvalidValues(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.owner)

	empty := " "
	bogus := domain.TicketStatus("archived")
	unknownTutor := uuid.NewString()
	notAnID := "tutor"

	cases := map[string]domain.TicketPatch{
		"empty product":     {Product: &empty},
		"empty description": {Description: &empty},
		"unknown status":    {Status: &bogus},
		"unknown tutor":     {SetTutor: true, TutorID: &unknownTutor},
		"malformed tutor":   {SetTutor: true, TutorID: &notAnID},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdateTicket(context.Background(), f.owner.ID, ticket.ID, StaticPatch(patch))
			assertCode(t, err, apperrors.CodeValidation, "")
		})
	}
}

func TestUpdateTicket_AuthorizesBeforeDecoding(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.owner)

	decoded := 0
	rejectBody := func() (domain.TicketPatch, error) {
		decoded++
		return domain.TicketPatch{}, apperrors.NewValidationError("fields cannot be updated", nil)
	}

	_, err := f.svc.UpdateTicket(context.Background(), f.stranger.ID, ticket.ID, rejectBody)
	assertCode(t, err, apperrors.CodeForbidden, "Not authorized")

	_, err = f.svc.UpdateTicket(context.Background(), f.owner.ID, uuid.NewString(), rejectBody)
	assertCode(t, err, apperrors.CodeNotFound, "Ticket not found")

	_, err = f.svc.UpdateTicket(context.Background(), uuid.NewString(), ticket.ID, rejectBody)
	assertCode(t, err, apperrors.CodeUnauthorized, "User not found")

	assert.Zero(t, decoded)

	_, err = f.svc.UpdateTicket(context.Background(), f.owner.ID, ticket.ID, rejectBody)
	assertCode(t, err, apperrors.CodeValidation, "fields cannot be updated")
	assert.Equal(t, 1, decoded)
}

func TestConcurrentUpdates_LastWriteWins(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.create(t, f.owner)

	open := domain.TicketStatusOpen
	closed := domain.TicketStatusClosed
	_, err := f.svc.UpdateTicket(context.Background(), f.owner.ID, ticket.ID, StaticPatch(domain.TicketPatch{Status: &open}))
	require.NoError(t, err)
	_, err = f.svc.UpdateTicket(context.Background(), f.admin.ID, ticket.ID, StaticPatch(domain.TicketPatch{Status: &closed}))
	require.NoError(t, err)

	got, err := f.svc.GetTicket(context.Background(), f.owner.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, got.Status)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newTicketFixture(t)
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		return errors.New("broker down")
	})
	f.svc.dispatcher = dispatcher

	_, err := f.svc.CreateTicket(context.Background(), f.owner.ID, TicketCreateInput{Product: "Laptop", Description: "x"})
	assert.NoError(t, err)
}
