package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestNewDB_NilPoolFailsCleanly(t *testing.T) {
	db := NewDB(nil)
	ctx := context.Background()

	tickets := NewTicketRepository(db)
	_, err := tickets.GetByID(ctx, "t1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = tickets.ListAll(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, tickets.Delete(ctx, "t1"), ErrStoreUnavailable)
	assert.ErrorIs(t, tickets.Create(ctx, &domain.Ticket{UserID: "u1"}), ErrStoreUnavailable)

	users := NewUserRepository(db)
	_, err = users.GetByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
