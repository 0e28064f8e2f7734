package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/database"
	"github.com/tony-42069/abare-v2/pkg/jwtutil"
	"golang.org/x/crypto/bcrypt"
)

const usersCollection = "users"

// TokenIssuer signs and verifies access tokens whose subject is a user's email.
type TokenIssuer interface {
	GenerateToken(subject string) (string, error)
	ValidateToken(token string) (*jwtutil.Claims, error)
}

// AuthService registers users, checks their credentials and resolves access tokens.
type AuthService struct {
	users  database.Collection
	tokens TokenIssuer
	cost   int
}

// NewAuthService creates an AuthService over store. cost is the bcrypt work factor.
func NewAuthService(store database.Store, tokens TokenIssuer, cost int) *AuthService {
	return &AuthService{
		users:  store.Collection(usersCollection),
		tokens: tokens,
		cost:   cost,
	}
}

// Register creates an active, non-admin account.
func (s *AuthService) Register(ctx context.Context, in model.UserCreate) (*model.User, error) {
	if err := CheckPassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.findByEmail(ctx, in.Email); err == nil {
		return nil, newError(ErrConflict, "Email already registered")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := timestamp()
	user := &model.User{
		Email:          in.Email,
		HashedPassword: string(hash),
		FullName:       in.FullName,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := s.users.InsertOne(ctx, user)
	if errors.Is(err, database.ErrDuplicateKey) {
		return nil, newError(ErrConflict, "Email already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return user, nil
}

// Authenticate checks an email and password pair and records the login time.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.findByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(ErrInvalidCredentials, "Incorrect email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, newError(ErrInvalidCredentials, "Incorrect email or password")
	}

	now := timestamp()
	if _, err := s.users.UpdateOne(ctx,
		database.Filter{database.IDField: user.ID},
		database.Patch{"last_login": now},
	); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now
	return user, nil
}

// IssueToken signs an access token for user.
func (s *AuthService) IssueToken(user *model.User) (*model.Token, error) {
	token, err := s.tokens.GenerateToken(user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &model.Token{AccessToken: token, TokenType: "bearer"}, nil
}

// ResolveToken verifies token and loads the user it names.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, newError(ErrInvalidToken, "Could not validate credentials")
	}
	user, err := s.findByEmail(ctx, claims.Subject)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(ErrInvalidToken, "Could not validate credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return user, nil
}

// RequireActive rejects deactivated accounts.
func RequireActive(user *model.User) error {
	if !user.IsActive {
		return newError(ErrInactiveUser, "Inactive user")
	}
	return nil
}

// RequireAdmin rejects accounts that are inactive or not administrators.
func RequireAdmin(user *model.User) error {
	if err := RequireActive(user); err != nil {
		return err
	}
	if !user.IsAdmin {
		return newError(ErrForbidden, "Not enough permissions")
	}
	return nil
}

// UpdateProfile applies a user's changes to their own account.
func (s *AuthService) UpdateProfile(ctx context.Context, user *model.User, in model.ProfileUpdate) (*model.User, error) {
	patch := database.Patch{}
	if in.FullName != nil {
		patch["full_name"] = *in.FullName
	}
	if in.Password != nil {
		if err := CheckPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		patch["hashed_password"] = string(hash)
	}
	return s.patchUser(ctx, user.ID, patch)
}

// ListUsers returns a page of accounts.
func (s *AuthService) ListUsers(ctx context.Context, skip, limit int64) ([]model.User, error) {
	users := []model.User{}
	if err := s.users.Find(ctx, database.Filter{}, &users,
		database.WithSkip(skip), database.WithLimit(limit)); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser loads one account by id.
func (s *AuthService) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.users.FindOne(ctx, database.Filter{database.IDField: id}, &user)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpdateUser applies an administrator's changes to any account.
func (s *AuthService) UpdateUser(ctx context.Context, id string, in model.UserAdminUpdate) (*model.User, error) {
	patch := database.Patch{}
	if in.FullName != nil {
		patch["full_name"] = *in.FullName
	}
	if in.IsActive != nil {
		patch["is_active"] = *in.IsActive
	}
	if in.IsAdmin != nil {
		patch["is_admin"] = *in.IsAdmin
	}
	return s.patchUser(ctx, id, patch)
}

func (s *AuthService) patchUser(ctx context.Context, id string, patch database.Patch) (*model.User, error) {
	patch["updated_at"] = timestamp()
	n, err := s.users.UpdateOne(ctx, database.Filter{database.IDField: id}, patch)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return nil, notFound("User")
	}
	return s.GetUser(ctx, id)
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.users.FindOne(ctx, database.Filter{"email": email}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// timestamp is the current time at the millisecond precision every backend stores.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
