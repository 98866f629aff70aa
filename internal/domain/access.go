package domain

// CanAccess reports whether user may read, change or delete ticket.
func CanAccess(ticket *Ticket, user *User) bool {
	if ticket == nil || user == nil {
		return false
	}
	return ticket.UserID == user.ID || user.IsAdmin
}

// CanViewAll reports whether user may list every ticket in the desk.
func CanViewAll(user *User) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin || user.IsTutor
}
