package domain

import "fmt"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Actor is an operator as known to the external auth collaborator.
type Actor struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Role Role   `json:"role"`
}

// Context returns the scope a ledger call runs under.
func (a Actor) Context() ActorContext {
	return ActorContext{ActorID: a.ID, Role: a.Role}
}

// ActorContext identifies the caller of every ledger operation.
type ActorContext struct {
	ActorID string `json:"actor_id"`
	Role    Role   `json:"role"`
}

// Validate rejects anonymous callers and unknown roles.
func (a ActorContext) Validate() error {
	if a.ActorID == "" {
		return fmt.Errorf("%w: actor id is required", ErrForbidden)
	}
	if !a.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, string(a.Role))
	}
	return nil
}

// Unrestricted is true for admins and managers, who see every row.
func (a ActorContext) Unrestricted() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

// CanAccess reports whether rows owned by ownerID are visible and writable.
func (a ActorContext) CanAccess(ownerID string) bool {
	return a.Unrestricted() || a.ActorID == ownerID
}
