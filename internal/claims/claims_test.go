package claims

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fieldform/backend/internal/models"
	"github.com/fieldform/backend/internal/repo"
)

func newTestResolver(t *testing.T) (*Resolver, *repo.GormRepo) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	r := repo.New(db)
	return NewResolver(r), r
}

func TestUserPermissions_AdminGetsFullCatalog(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t)

	perms, err := resolver.UserPermissions(context.Background(), 1, true)
	require.NoError(t, err)
	require.Len(t, perms, len(Catalog))
	for i, perm := range Catalog {
		assert.Equal(t, Claim{Type: perm, Value: TrueValue}, perms[i])
	}
}

func TestUserPermissions_UnionOfUserAndRoleClaims(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver, r := newTestResolver(t)

	user := models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, r.DB.Create(&user).Error)

	role, err := r.EnsureRole(ctx, "inspector")
	require.NoError(t, err)
	require.NoError(t, r.AssignRole(ctx, user.ID, role.ID))

	require.NoError(t, r.DB.Create(&models.UserClaim{
		UserID: user.ID, ClaimType: PermFormsRead, ClaimValue: TrueValue,
	}).Error)
	require.NoError(t, r.DB.Create(&models.RoleClaim{
		RoleID: role.ID, ClaimType: PermCasesRead, ClaimValue: TrueValue,
	}).Error)

	perms, err := resolver.UserPermissions(ctx, user.ID, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Claim{
		{Type: PermFormsRead, Value: TrueValue},
		{Type: PermCasesRead, Value: TrueValue},
	}, perms)
}

func TestUserPermissions_UserClaimWinsOverRoleClaim(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver, r := newTestResolver(t)

	user := models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, r.DB.Create(&user).Error)

	role, err := r.EnsureRole(ctx, "inspector")
	require.NoError(t, err)
	require.NoError(t, r.AssignRole(ctx, user.ID, role.ID))

	require.NoError(t, r.DB.Create(&models.UserClaim{
		UserID: user.ID, ClaimType: PermFormsRead, ClaimValue: "False",
	}).Error)
	require.NoError(t, r.DB.Create(&models.RoleClaim{
		RoleID: role.ID, ClaimType: PermFormsRead, ClaimValue: TrueValue,
	}).Error)

	perms, err := resolver.UserPermissions(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, Claim{Type: PermFormsRead, Value: "False"}, perms[0])
}

func TestUserPermissions_NoGrants(t *testing.T) {
	t.Parallel()

	resolver, _ := newTestResolver(t)

	perms, err := resolver.UserPermissions(context.Background(), 42, false)
	require.NoError(t, err)
	assert.Empty(t, perms)
}
