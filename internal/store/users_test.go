package store

import (
	"testing"
	"time"

	"wrapreel/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.CreateUser(model.User{ID: "u1", ShopID: "shop-a", Email: "Owner@Shop.test"})
	require.NoError(t, err)

	_, err = st.CreateUser(model.User{ID: "u2", ShopID: "shop-b", Email: "owner@shop.test"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := st.GetUserByEmail("OWNER@shop.test")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Empty(t, st.ListShopUsers("shop-b"))
}

func TestSetUserStatusChecksShop(t *testing.T) {
	st := NewMemoryStore()
	_, err := st.CreateUser(model.User{ID: "u1", ShopID: "shop-a", Email: "a@shop.test", Status: model.UserActive})
	require.NoError(t, err)

	_, err = st.SetUserStatus("shop-b", "u1", model.UserDisabled)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = st.SetUserStatus("shop-a", "nobody", model.UserDisabled)
	assert.ErrorIs(t, err, ErrNotFound)

	user, err := st.SetUserStatus("shop-a", "u1", model.UserDisabled)
	require.NoError(t, err)
	assert.Equal(t, model.UserDisabled, user.Status)
}

func TestRevokeUserTokens(t *testing.T) {
	st := NewMemoryStore()
	now := time.Now().UTC()
	st.SaveRefreshToken(model.RefreshToken{ID: "t1", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	st.SaveRefreshToken(model.RefreshToken{ID: "t2", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	st.SaveRefreshToken(model.RefreshToken{ID: "t3", UserID: "u2", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, st.RevokeRefreshToken("t1", now))

	assert.Equal(t, 1, st.RevokeUserTokens("u1", now))

	for id, revoked := range map[string]bool{"t1": true, "t2": true, "t3": false} {
		tok, err := st.GetRefreshToken(id)
		require.NoError(t, err)
		assert.Equal(t, revoked, tok.RevokedAt != nil, id)
	}
}
