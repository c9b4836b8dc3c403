package auth

import (
	"testing"
	"time"

	"wrapreel/internal/model"
	"wrapreel/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ownerPassword = "wrap123456"

func newTestService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	svc := NewService(st, "test-secret", 2*time.Minute, 24*time.Hour)
	require.NoError(t, svc.SeedOwner("shop-1", "owner@wrap.local", ownerPassword))
	return svc, st
}

func loginClaims(t *testing.T, svc *Service, email, password string) (Claims, Tokens) {
	t.Helper()
	_, tokens, err := svc.Login(email, password)
	require.NoError(t, err)
	claims, err := svc.ParseAccess(tokens.AccessToken)
	require.NoError(t, err)
	return claims, tokens
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, _ := newTestService(t)

	claims, tokens := loginClaims(t, svc, "owner@wrap.local", ownerPassword)
	assert.Equal(t, "shop-1", claims.ShopID)
	assert.Equal(t, model.RoleOwner, claims.Role)
	assert.Equal(t, []string{"shop-1"}, []string(claims.Audience))

	rotated, err := svc.Refresh(tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized, "rotated refresh token must not be reusable")

	require.NoError(t, svc.Logout(rotated.RefreshToken))
	_, err = svc.Refresh(rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSeedOwnerKeepsExistingAccount(t *testing.T) {
	svc, st := newTestService(t)
	require.NoError(t, svc.SeedOwner("shop-2", "owner@wrap.local", "other-password"))

	assert.Len(t, st.ListShopUsers("shop-1"), 1)
	assert.Empty(t, st.ListShopUsers("shop-2"))
	_, _, err := svc.Login("owner@wrap.local", ownerPassword)
	assert.NoError(t, err)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Login("owner@wrap.local", "nope-nope")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshRejectsTamperedSecret(t *testing.T) {
	svc, _ := newTestService(t)
	_, tokens := loginClaims(t, svc, "owner@wrap.local", ownerPassword)

	_, err := svc.Refresh(tokens.RefreshToken + "x")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Refresh("no-separator")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Refresh(tokens.RefreshToken)
	assert.NoError(t, err, "a failed guess must not burn the real token")
}

func TestRefreshExpired(t *testing.T) {
	svc, _ := newTestService(t)
	_, tokens := loginClaims(t, svc, "owner@wrap.local", ownerPassword)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err := svc.Refresh(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NoError(t, svc.Logout(tokens.RefreshToken), "expired tokens can still be logged out")
}

func TestParseAccessRejectsForeignSecret(t *testing.T) {
	svc, st := newTestService(t)
	other := NewService(st, "secret-b", time.Minute, time.Hour)

	_, tokens := loginClaims(t, svc, "owner@wrap.local", ownerPassword)
	_, err := other.ParseAccess(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestParseAccessExpired(t *testing.T) {
	svc, _ := newTestService(t)
	_, tokens := loginClaims(t, svc, "owner@wrap.local", ownerPassword)

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err := svc.ParseAccess(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestStaffLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	owner, _ := loginClaims(t, svc, "owner@wrap.local", ownerPassword)

	staff, err := svc.AddStaff(owner, "editor@wrap.local", "staff12345")
	require.NoError(t, err)
	assert.Equal(t, "shop-1", staff.ShopID)
	assert.Equal(t, model.RoleStaff, staff.Role)

	_, err = svc.AddStaff(owner, "EDITOR@wrap.local", "staff12345")
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.AddStaff(owner, "short@wrap.local", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	staffClaims, staffTokens := loginClaims(t, svc, "editor@wrap.local", "staff12345")
	assert.True(t, staffClaims.Can(PermEditBlueprint))
	assert.False(t, staffClaims.Can(PermRender))

	_, err = svc.AddStaff(staffClaims, "another@wrap.local", "staff12345")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.DisableStaff(owner, owner.UserID)
	assert.ErrorIs(t, err, ErrNotStaff, "owners cannot be disabled")

	disabled, err := svc.DisableStaff(owner, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserDisabled, disabled.Status)

	_, _, err = svc.Login("editor@wrap.local", "staff12345")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Refresh(staffTokens.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Len(t, svc.ShopMembers("shop-1"), 2)
}

func TestDisableStaffStaysInShop(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.SeedOwner("shop-2", "boss@other.local", ownerPassword))
	owner, _ := loginClaims(t, svc, "owner@wrap.local", ownerPassword)
	rival, _ := loginClaims(t, svc, "boss@other.local", ownerPassword)

	staff, err := svc.AddStaff(owner, "editor@wrap.local", "staff12345")
	require.NoError(t, err)

	_, err = svc.DisableStaff(rival, staff.ID)
	assert.ErrorIs(t, err, ErrNotStaff)
}

func TestPermissionsByRole(t *testing.T) {
	assert.True(t, Allowed(model.RoleOwner, PermManageStaff))
	assert.False(t, Allowed(model.RoleStaff, PermDeleteProject))
	assert.Empty(t, Permissions("guest"))
	assert.ElementsMatch(t, []Permission{PermEditProject, PermEditBlueprint, PermExport}, Permissions(model.RoleStaff))
}
