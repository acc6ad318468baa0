package service

import (
	"fmt"

	"iou-ledger/internal/domain"
)

// accessScope applies an actor's role to ledger rows. Users see and mutate
// only debts they own; admins and managers are unrestricted.
type accessScope struct {
	actor domain.ActorContext
}

func newAccessScope(actor domain.ActorContext) (accessScope, error) {
	if err := actor.Validate(); err != nil {
		return accessScope{}, err
	}
	return accessScope{actor: actor}, nil
}

// ownerFilter is the owner id reads are restricted to, empty for no restriction.
func (s accessScope) ownerFilter() string {
	if s.actor.Unrestricted() {
		return ""
	}
	return s.actor.ActorID
}

// authorizeWrite fails with ErrForbidden when the debt belongs to someone the
// actor may not act for.
func (s accessScope) authorizeWrite(debt *domain.Debt) error {
	if !s.actor.CanAccess(debt.OwnerID) {
		return fmt.Errorf("actor %s on debt %s: %w", s.actor.ActorID, debt.ID, domain.ErrForbidden)
	}
	return nil
}

// authorizeRead hides invisible debts entirely.
func (s accessScope) authorizeRead(debt *domain.Debt) error {
	if !s.actor.CanAccess(debt.OwnerID) {
		return fmt.Errorf("debt %s: %w", debt.ID, domain.ErrDebtNotFound)
	}
	return nil
}

// ownerFor resolves the owner id of a new debt.
func (s accessScope) ownerFor(requested string) (string, error) {
	if requested == "" || requested == s.actor.ActorID {
		return s.actor.ActorID, nil
	}
	if !s.actor.Unrestricted() {
		return "", fmt.Errorf("actor %s cannot create debts for %s: %w", s.actor.ActorID, requested, domain.ErrForbidden)
	}
	return requested, nil
}

func (s accessScope) requireAdmin() error {
	if s.actor.Role != domain.RoleAdmin {
		return fmt.Errorf("actor %s needs the admin role: %w", s.actor.ActorID, domain.ErrForbidden)
	}
	return nil
}
