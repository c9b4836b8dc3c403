// Package auth signs in shop members and authorizes what their role allows.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"wrapreel/internal/model"
	"wrapreel/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer            = "wrapreel"
	minPasswordLength = 8
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrForbidden    = errors.New("role not permitted")
	ErrEmailTaken   = errors.New("email already registered")
	ErrWeakPassword = errors.New("password too short")
	ErrNotStaff     = errors.New("account is not a staff member of this shop")
)

// Store is the account persistence the service needs.
type Store interface {
	CreateUser(user model.User) (model.User, error)
	GetUserByEmail(email string) (model.User, error)
	GetUserByID(id string) (model.User, error)
	SetUserStatus(shopID, userID string, status model.UserStatus) (model.User, error)
	ListShopUsers(shopID string) []model.User
	SaveRefreshToken(tok model.RefreshToken)
	GetRefreshToken(id string) (model.RefreshToken, error)
	RevokeRefreshToken(id string, at time.Time) error
	RevokeUserTokens(userID string, at time.Time) int
}

// Claims travel in the access token. Every request is scoped to ShopID.
type Claims struct {
	UserID string         `json:"uid"`
	ShopID string         `json:"shop_id"`
	Email  string         `json:"email"`
	Role   model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (c Claims) Can(p Permission) bool { return Allowed(c.Role, p) }

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresInSec int64  `json:"expires_in_sec"`
}

type Service struct {
	store      Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewService(st Store, secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		store:      st,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// SeedOwner makes sure shopID has an owner account for email. An existing
// account is left alone.
func (s *Service) SeedOwner(shopID, email, password string) error {
	_, err := s.register(shopID, email, password, model.RoleOwner)
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	return err
}

// AddStaff creates a staff account in the caller's shop.
func (s *Service) AddStaff(caller Claims, email, password string) (model.User, error) {
	if !caller.Can(PermManageStaff) {
		return model.User{}, ErrForbidden
	}
	return s.register(caller.ShopID, email, password, model.RoleStaff)
}

// DisableStaff locks a staff account out and revokes its refresh tokens.
// Access tokens already issued stay valid until they expire.
func (s *Service) DisableStaff(caller Claims, userID string) (model.User, error) {
	if !caller.Can(PermManageStaff) {
		return model.User{}, ErrForbidden
	}
	target, err := s.store.GetUserByID(userID)
	if err != nil || target.ShopID != caller.ShopID || target.Role != model.RoleStaff {
		return model.User{}, ErrNotStaff
	}
	user, err := s.store.SetUserStatus(caller.ShopID, userID, model.UserDisabled)
	if err != nil {
		return model.User{}, err
	}
	s.store.RevokeUserTokens(userID, s.now().UTC())
	return user, nil
}

func (s *Service) ShopMembers(shopID string) []model.User {
	return s.store.ListShopUsers(shopID)
}

func (s *Service) register(shopID, email, password string, role model.UserRole) (model.User, error) {
	if len(password) < minPasswordLength {
		return model.User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password for %s: %w", email, err)
	}
	now := s.now().UTC()
	user, err := s.store.CreateUser(model.User{
		ID:           uuid.NewString(),
		ShopID:       shopID,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		Role:         role,
		Status:       model.UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, store.ErrConflict) {
		return model.User{}, ErrEmailTaken
	}
	return user, err
}

func (s *Service) Login(email, password string) (model.User, Tokens, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil || user.Status != model.UserActive {
		return model.User{}, Tokens{}, ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return model.User{}, Tokens{}, ErrUnauthorized
	}
	tokens, err := s.issue(user)
	return user, tokens, err
}

func (s *Service) ParseAccess(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil, claims.ShopID == "":
		return Claims{}, ErrUnauthorized
	}
	return claims, nil
}

// Refresh rotates a refresh token. The presented token is revoked even when
// the account has since been disabled.
func (s *Service) Refresh(raw string) (Tokens, error) {
	stored, err := s.lookupRefresh(raw)
	if err != nil {
		return Tokens{}, err
	}
	_ = s.store.RevokeRefreshToken(stored.ID, s.now().UTC())
	user, err := s.store.GetUserByID(stored.UserID)
	if err != nil || user.Status != model.UserActive {
		return Tokens{}, ErrUnauthorized
	}
	return s.issue(user)
}

func (s *Service) Logout(raw string) error {
	stored, err := s.lookupRefresh(raw)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return err
	}
	return s.store.RevokeRefreshToken(stored.ID, s.now().UTC())
}

// lookupRefresh resolves a live refresh token. Expired tokens are returned
// alongside ErrTokenExpired so Logout can still revoke them.
func (s *Service) lookupRefresh(raw string) (model.RefreshToken, error) {
	id, _, ok := strings.Cut(raw, ".")
	if !ok || id == "" {
		return model.RefreshToken{}, ErrUnauthorized
	}
	stored, err := s.store.GetRefreshToken(id)
	if err != nil || stored.RevokedAt != nil {
		return model.RefreshToken{}, ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(stored.TokenHash), []byte(digest(raw))) != 1 {
		return model.RefreshToken{}, ErrUnauthorized
	}
	if !s.now().UTC().Before(stored.ExpiresAt) {
		return stored, ErrTokenExpired
	}
	return stored, nil
}

func (s *Service) issue(user model.User) (Tokens, error) {
	now := s.now().UTC()
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		ShopID: user.ShopID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			Audience:  jwt.ClaimStrings{user.ShopID},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}).SignedString(s.secret)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return Tokens{}, fmt.Errorf("generate refresh secret: %w", err)
	}
	id := uuid.NewString()
	refresh := id + "." + base64.RawURLEncoding.EncodeToString(secret)
	s.store.SaveRefreshToken(model.RefreshToken{
		ID:        id,
		UserID:    user.ID,
		TokenHash: digest(refresh),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	})
	return Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresInSec: int64(s.accessTTL / time.Second),
	}, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
