package auth

import (
	"context"
	"database/sql"
)

// RoleAuthorizer is the default capability gate. Roles are read from the
// account table on every call so a disabled account loses access at once.
//
//	borrow : any enabled account
//	approve: admin, manager
//	return : admin, manager, staff
type RoleAuthorizer struct {
	store AccountStore
}

func NewRoleAuthorizer(conn *sql.DB) *RoleAuthorizer {
	return &RoleAuthorizer{store: NewStore(conn)}
}

func (a *RoleAuthorizer) role(ctx context.Context, userID string) (string, bool, error) {
	if userID == "" {
		return "", false, nil
	}
	acct, err := a.store.GetByID(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if acct == nil || acct.IsDisabled {
		return "", false, nil
	}
	return acct.Role, true, nil
}

func (a *RoleAuthorizer) CanBorrow(ctx context.Context, userID string) (bool, error) {
	_, ok, err := a.role(ctx, userID)
	return ok, err
}

func (a *RoleAuthorizer) CanApprove(ctx context.Context, userID string) (bool, error) {
	r, ok, err := a.role(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return r == RoleAdmin || r == RoleManager, nil
}

// CanReturn does not depend on the borrowing yet; the id is part of the
// interface so per-borrowing rules can be added without touching callers.
func (a *RoleAuthorizer) CanReturn(ctx context.Context, userID, borrowingID string) (bool, error) {
	r, ok, err := a.role(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	return r == RoleAdmin || r == RoleManager || r == RoleStaff, nil
}
