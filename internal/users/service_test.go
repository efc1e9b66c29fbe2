package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/evergreen-pos/evergreen-pos/internal/platform/httpx"
)

type memoryRepo struct {
	users  map[int64]User
	hashes map[int64]string
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: map[int64]User{}, hashes: map[int64]string{}, nextID: 1}
}

func (m *memoryRepo) ListUsers(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryRepo) GetUser(_ context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, httpx.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) CreateUser(_ context.Context, email, name, passwordHash, role string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return User{}, httpx.ErrConflict
		}
	}
	u := User{ID: m.nextID, Email: email, Name: name, Role: role, IsActive: true}
	m.nextID++
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	return u, nil
}

func (m *memoryRepo) UpdateUser(_ context.Context, id int64, name, role string, isActive bool) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, httpx.ErrNotFound
	}
	u.Name = name
	u.Role = role
	u.IsActive = isActive
	m.users[id] = u
	return u, nil
}

func (m *memoryRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	if _, ok := m.users[id]; !ok {
		return httpx.ErrNotFound
	}
	m.hashes[id] = passwordHash
	return nil
}

func (m *memoryRepo) SetActive(_ context.Context, id int64, isActive bool) error {
	u, ok := m.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.IsActive = isActive
	m.users[id] = u
	return nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email:    "cashier@evergreen.local",
		Name:     "Front Counter",
		Role:     "cashier",
		Password: "leafy-greens-1",
	})
	require.NoError(t, err)
	require.True(t, created.IsActive)

	hash := repo.hashes[created.ID]
	require.NotEqual(t, "leafy-greens-1", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("leafy-greens-1")))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email: "dup@evergreen.local", Name: "One", Role: "cashier", Password: "password-one",
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(context.Background(), CreateUserRequest{
		Email: "dup@evergreen.local", Name: "Two", Role: "manager", Password: "password-two",
	})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestResetPasswordReplacesHash(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email: "reset@evergreen.local", Name: "Reset Me", Role: "cashier", Password: "old-password",
	})
	require.NoError(t, err)
	oldHash := repo.hashes[created.ID]

	require.NoError(t, svc.ResetPassword(context.Background(), created.ID, ResetPasswordRequest{Password: "new-password"}))
	require.NotEqual(t, oldHash, repo.hashes[created.ID])
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.hashes[created.ID]), []byte("new-password")))
}

func TestDeactivateUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Email: "leaving@evergreen.local", Name: "Leaving", Role: "manager", Password: "password-xyz",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID))
	got, err := svc.GetUser(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}
