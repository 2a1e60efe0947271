package models

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	UserID  int64
	IsStaff bool
}

// CanAccess reports whether the actor may act on a record owned by ownerID.
func (a Actor) CanAccess(ownerID int64) bool {
	return a.IsStaff || (a.UserID > 0 && a.UserID == ownerID)
}
