package store

import (
	"sort"
	"strings"
	"time"

	"wrapreel/internal/model"
)

// CreateUser registers a new account. Emails are unique across shops so a
// login always resolves to exactly one shop.
func (s *MemoryStore) CreateUser(user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, taken := s.userByEmail[key]; taken {
		return model.User{}, ErrConflict
	}
	s.users[user.ID] = user
	s.userByEmail[key] = user.ID
	s.usersByShop[user.ShopID] = append(s.usersByShop[user.ShopID], user.ID)
	return user, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.userByEmail[strings.ToLower(email)]; ok {
		if user, ok := s.users[id]; ok {
			return user, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (s *MemoryStore) GetUserByID(id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return model.User{}, ErrNotFound
}

// SetUserStatus changes an account's status. The account must belong to shopID.
func (s *MemoryStore) SetUserStatus(shopID, userID string, status model.UserStatus) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	if user.ShopID != shopID {
		return model.User{}, ErrForbidden
	}
	user.Status = status
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return user, nil
}

// ListShopUsers returns the shop's accounts, oldest first.
func (s *MemoryStore) ListShopUsers(shopID string) []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.usersByShop[shopID]
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.users[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) SaveRefreshToken(tok model.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[tok.ID] = tok
}

func (s *MemoryStore) GetRefreshToken(id string) (model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tok, ok := s.refreshTokens[id]; ok {
		return tok, nil
	}
	return model.RefreshToken{}, ErrNotFound
}

func (s *MemoryStore) RevokeRefreshToken(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.refreshTokens[id]
	if !ok {
		return ErrNotFound
	}
	if tok.RevokedAt == nil {
		tok.RevokedAt = &at
		s.refreshTokens[id] = tok
	}
	return nil
}

// RevokeUserTokens revokes every live refresh token of a user and reports
// how many it touched.
func (s *MemoryStore) RevokeUserTokens(userID string, at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, tok := range s.refreshTokens {
		if tok.UserID != userID || tok.RevokedAt != nil {
			continue
		}
		tok.RevokedAt = &at
		s.refreshTokens[id] = tok
		n++
	}
	return n
}
