// Package claims resolves the fine-grained permission flags consulted on
// every authorized request. The resolver output is the authoritative claim
// set; the copies embedded into tokens are snapshots only.
package claims

import (
	"context"

	"github.com/fieldform/backend/internal/repo"
)

// Claim is a named permission flag attached to a user or role.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// TrueValue is the value carried by granted permission flags.
const TrueValue = "True"

// Permission catalog. The admin role receives all of these; other roles
// only what their role/user claim rows grant.
const (
	PermUsersCreate       = "users_create"
	PermUsersRead         = "users_read"
	PermUsersUpdate       = "users_update"
	PermUsersDelete       = "users_delete"
	PermDeviceUsersCreate = "device_users_create"
	PermDeviceUsersRead   = "device_users_read"
	PermDeviceUsersUpdate = "device_users_update"
	PermDeviceUsersDelete = "device_users_delete"
	PermFormsCreate       = "forms_create"
	PermFormsRead         = "forms_read"
	PermFormsUpdate       = "forms_update"
	PermFormsDelete       = "forms_delete"
	PermCasesRead         = "cases_read"
	PermCasesUpdate       = "cases_update"
	PermWorkflowsRead     = "workflows_read"
)

// Catalog is the full permission set, in declaration order.
var Catalog = []string{
	PermUsersCreate,
	PermUsersRead,
	PermUsersUpdate,
	PermUsersDelete,
	PermDeviceUsersCreate,
	PermDeviceUsersRead,
	PermDeviceUsersUpdate,
	PermDeviceUsersDelete,
	PermFormsCreate,
	PermFormsRead,
	PermFormsUpdate,
	PermFormsDelete,
	PermCasesRead,
	PermCasesUpdate,
	PermWorkflowsRead,
}

type Resolver struct {
	Repo *repo.GormRepo
}

func NewResolver(r *repo.GormRepo) *Resolver {
	return &Resolver{Repo: r}
}

// UserPermissions computes the permission flags for a user. Admins get the
// whole catalog; everyone else the union of their user claims and the
// claims of every role they hold.
func (r *Resolver) UserPermissions(ctx context.Context, userID uint, isAdmin bool) ([]Claim, error) {
	if isAdmin {
		out := make([]Claim, 0, len(Catalog))
		for _, perm := range Catalog {
			out = append(out, Claim{Type: perm, Value: TrueValue})
		}
		return out, nil
	}

	seen := make(map[string]struct{})
	var out []Claim
	add := func(claimType, claimValue string) {
		if _, ok := seen[claimType]; ok {
			return
		}
		seen[claimType] = struct{}{}
		out = append(out, Claim{Type: claimType, Value: claimValue})
	}

	userClaims, err := r.Repo.UserClaims(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range userClaims {
		add(c.ClaimType, c.ClaimValue)
	}

	roles, err := r.Repo.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		roleClaims, err := r.Repo.RoleClaims(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range roleClaims {
			add(c.ClaimType, c.ClaimValue)
		}
	}

	return out, nil
}
