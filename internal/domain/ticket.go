package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew    TicketStatus = "new"
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is a support request owned by exactly one user.
type Ticket struct {
	ID          string
	UserID      string
	Product     string
	Description string
	Status      TicketStatus
	TutorID     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TicketPatch lists the fields a caller may change on an existing ticket.
// Nil pointers are left untouched. SetTutor distinguishes clearing the tutor
// (SetTutor with a nil TutorID) from leaving it alone.
type TicketPatch struct {
	Product     *string
	Description *string
	Status      *TicketStatus
	SetTutor    bool
	TutorID     *string
}

// Empty reports whether the patch changes nothing.
func (p TicketPatch) Empty() bool {
	return p.Product == nil && p.Description == nil && p.Status == nil && !p.SetTutor
}

// Fields returns the names of the columns the patch touches.
func (p TicketPatch) Fields() []string {
	var fields []string
	if p.Product != nil {
		fields = append(fields, "product")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.SetTutor {
		fields = append(fields, "tutor")
	}
	return fields
}
