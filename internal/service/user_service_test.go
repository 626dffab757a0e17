package service

import (
	"context"
	"testing"
	"time"

	"backoffice/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users  map[string]*model.User
	tokens map[string]*model.RefreshToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	f.users[user.ID.String()] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) List(_ context.Context, tenantID string, _, _ int) ([]model.User, int64, error) {
	var out []model.User
	for _, user := range f.users {
		if user.TenantID == tenantID {
			out = append(out, *user)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	f.users[user.ID.String()] = &cp
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) CreateRefreshToken(_ context.Context, token *model.RefreshToken) error {
	cp := *token
	f.tokens[token.Token] = &cp
	return nil
}

func (f *fakeUserRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	stored, ok := f.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *stored
	return &cp, nil
}

func (f *fakeUserRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeUserRepo) DeleteRefreshTokensForUser(_ context.Context, userID string) error {
	for token, stored := range f.tokens {
		if stored.UserID.String() == userID {
			delete(f.tokens, token)
		}
	}
	return nil
}

func newTestUser(t *testing.T, repo *fakeUserRepo) *UserResponse {
	t.Helper()
	svc := NewUserService(repo)
	res, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
		TenantID: "acme",
		Roles:    []string{model.UserRoleStaff},
	})
	require.NoError(t, err)
	return res
}

func TestUserService_CreateUser(t *testing.T) {
	repo := newFakeUserRepo()
	res := newTestUser(t, repo)

	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "acme", res.TenantID)
	assert.Equal(t, []string{model.UserRoleStaff}, res.Roles)

	// Password must be stored hashed.
	stored, err := repo.GetByID(context.Background(), res.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.Password)
	assert.NotEmpty(t, stored.Password)
}

func TestUserService_CreateUserRejectsDuplicatesAndBadRoles(t *testing.T) {
	repo := newFakeUserRepo()
	newTestUser(t, repo)
	svc := NewUserService(repo)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "alice", Email: "other@example.com", Password: "secret123",
		TenantID: "acme", Roles: []string{model.UserRoleStaff},
	})
	assert.ErrorContains(t, err, "username already exists")

	_, err = svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "bob", Email: "alice@example.com", Password: "secret123",
		TenantID: "acme", Roles: []string{model.UserRoleStaff},
	})
	assert.ErrorContains(t, err, "email already exists")

	_, err = svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "bob", Email: "bob@example.com", Password: "secret123",
		TenantID: "acme", Roles: []string{"WIZARD"},
	})
	assert.ErrorContains(t, err, "invalid roles")
}

func TestUserService_LoginIssuesTenantScopedClaims(t *testing.T) {
	repo := newFakeUserRepo()
	created := newTestUser(t, repo)
	svc := NewUserService(repo)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{
		Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.Token)
	require.NotEmpty(t, tokens.RefreshToken)

	parsed, err := jwt.Parse(tokens.Token, func(token *jwt.Token) (interface{}, error) {
		return []byte("default_super_secret_key"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, created.ID.String(), claims["sub"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, "acme", claims["tid"])
	assert.Equal(t, []interface{}{model.UserRoleStaff}, claims["roles"])
}

func TestUserService_LoginRejectsBadCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	newTestUser(t, repo)
	svc := NewUserService(repo)

	_, err := svc.Login(context.Background(), LoginUserRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorContains(t, err, "invalid email or password")

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorContains(t, err, "invalid email or password")
}

func TestUserService_RefreshRotatesToken(t *testing.T) {
	repo := newFakeUserRepo()
	newTestUser(t, repo)
	svc := NewUserService(repo)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{
		Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The consumed token must not be redeemable again.
	_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorContains(t, err, "invalid refresh token")
}

func TestUserService_RefreshRejectsExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	created := newTestUser(t, repo)
	svc := NewUserService(repo)

	expired := &model.RefreshToken{
		UserID:    created.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), expired))

	_, err := svc.Refresh(context.Background(), expired.Token)
	assert.ErrorContains(t, err, "refresh token expired")
	_, lookErr := repo.GetRefreshToken(context.Background(), expired.Token)
	assert.Error(t, lookErr)
}

func TestUserService_UpdateUser(t *testing.T) {
	repo := newFakeUserRepo()
	created := newTestUser(t, repo)
	svc := NewUserService(repo)

	res, err := svc.UpdateUser(context.Background(), created.ID.String(), UpdateUserRequest{
		Username: "alice2",
		Roles:    []string{model.UserRoleManager},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", res.Username)
	assert.Equal(t, []string{model.UserRoleManager}, res.Roles)

	_, err = svc.UpdateUser(context.Background(), created.ID.String(), UpdateUserRequest{Roles: []string{"WIZARD"}})
	assert.ErrorContains(t, err, "invalid roles")
}

func TestUserService_DeleteUserRevokesTokens(t *testing.T) {
	repo := newFakeUserRepo()
	created := newTestUser(t, repo)
	svc := NewUserService(repo)

	tokens, err := svc.Login(context.Background(), LoginUserRequest{
		Email: "alice@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(context.Background(), created.ID.String()))

	_, err = svc.GetUserByID(context.Background(), created.ID.String())
	assert.ErrorContains(t, err, "user not found")
	_, err = repo.GetRefreshToken(context.Background(), tokens.RefreshToken)
	assert.Error(t, err)
}
