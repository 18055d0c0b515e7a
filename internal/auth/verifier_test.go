package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crucial707/tools-sys/internal/models"
	"github.com/crucial707/tools-sys/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	users map[string]*models.User
	err   error
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u, nil
}

func newStore(t *testing.T, h Hasher, creds map[string]string) *memStore {
	t.Helper()
	s := &memStore{users: map[string]*models.User{}}
	var id int64
	for name, pw := range creds {
		id++
		digest, err := h.Hash(pw)
		require.NoError(t, err)
		s.users[name] = &models.User{ID: id, Username: name, PasswordHash: digest}
	}
	return s
}

func TestSHA256Hasher_KnownDigest(t *testing.T) {
	got, err := SHA256Hasher{}.Hash("pw123")
	require.NoError(t, err)
	assert.Equal(t, "23d47445adfb8991789b459b6ba1b974d727d310aa9d80b7c2875b9430c0ba25", got)
	assert.True(t, SHA256Hasher{}.Matches(got, "pw123"))
	assert.False(t, SHA256Hasher{}.Matches(got, "pw124"))
	assert.False(t, SHA256Hasher{}.Matches(got[:63], "pw123"))
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}
	stored, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.True(t, h.Matches(stored, "s3cret"))
	assert.False(t, h.Matches(stored, "S3cret"))
	assert.False(t, h.Matches("not-a-bcrypt-hash", "s3cret"))
}

func TestBcryptHasher_PasswordTooLong(t *testing.T) {
	h := BcryptHasher{Cost: 4}

	_, err := h.Hash(strings.Repeat("a", BcryptMaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	stored, err := h.Hash(strings.Repeat("a", BcryptMaxPasswordBytes))
	require.NoError(t, err)
	assert.True(t, h.Matches(stored, strings.Repeat("a", BcryptMaxPasswordBytes)))

	// No cap on the sha256 digest.
	_, err = SHA256Hasher{}.Hash(strings.Repeat("a", 200))
	assert.NoError(t, err)
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("sha256")
	require.NoError(t, err)
	assert.IsType(t, SHA256Hasher{}, h)

	h, err = NewHasher("bcrypt")
	require.NoError(t, err)
	assert.IsType(t, BcryptHasher{}, h)

	_, err = NewHasher("md5")
	assert.Error(t, err)
}

func TestVerifier(t *testing.T) {
	for _, h := range []Hasher{SHA256Hasher{}, BcryptHasher{Cost: 4}} {
		store := newStore(t, h, map[string]string{"alice": "pw123", "bob": "hunter2"})
		v := NewVerifier(store, h)
		ctx := context.Background()

		for name, pw := range map[string]string{"alice": "pw123", "bob": "hunter2"} {
			id, err := v.Verify(ctx, name, pw)
			require.NoError(t, err)
			assert.Equal(t, name, id.Username)
			assert.Equal(t, store.users[name].ID, id.ID)
		}

		_, wrongPassword := v.Verify(ctx, "alice", "pw1234")
		_, unknownUser := v.Verify(ctx, "mallory", "pw123")
		_, caseMismatch := v.Verify(ctx, "Alice", "pw123")

		assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
		assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
		assert.ErrorIs(t, caseMismatch, ErrInvalidCredentials)
		// Same value, so the caller cannot tell which field was wrong.
		assert.Equal(t, wrongPassword, unknownUser)
	}
}

func TestVerifier_StoreFailureIsNotCredentialError(t *testing.T) {
	boom := errors.New("connection refused")
	v := NewVerifier(&memStore{err: boom}, SHA256Hasher{})

	_, err := v.Verify(context.Background(), "alice", "pw123")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
