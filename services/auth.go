package services

import (
	"fmt"

	"eatwhat-bot/models"
)

// Authorizer decides who may toggle the plugin and delete menu entries:
// group owners and admins, plus the configured bot owners.
type Authorizer struct {
	owners map[string]struct{}
}

func NewAuthorizer(ownerIDs []string) *Authorizer {
	a := &Authorizer{owners: make(map[string]struct{}, len(ownerIDs))}
	for _, id := range ownerIDs {
		a.owners[id] = struct{}{}
	}
	return a
}

func (a *Authorizer) IsAuthorized(role, userID string) bool {
	if role == models.RoleOwner || role == models.RoleAdmin {
		return true
	}
	if a == nil {
		return false
	}
	_, ok := a.owners[userID]
	return ok
}

// Require returns ErrPermissionDenied for callers that are not authorized.
func (a *Authorizer) Require(role, userID string) error {
	if !a.IsAuthorized(role, userID) {
		return fmt.Errorf("%w: user %s with role %q", ErrPermissionDenied, userID, role)
	}
	return nil
}
