package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHasher struct {
	calls int
	err   error
}

func (h *countingHasher) Hash(plain string) (string, error) {
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

func TestUser_HashPendingPassword(t *testing.T) {
	h := &countingHasher{}
	u := &User{Name: "Alice"}
	u.SetPassword("Passw0rd!")
	require.True(t, u.PasswordChanged())

	require.NoError(t, u.HashPendingPassword(h))
	assert.Equal(t, "hashed:Passw0rd!", u.PasswordHash)
	assert.False(t, u.PasswordChanged())
	assert.Equal(t, 1, h.calls)

	// unrelated update: nothing staged, no re-hash
	require.NoError(t, u.HashPendingPassword(h))
	assert.Equal(t, 1, h.calls)
	assert.Equal(t, "hashed:Passw0rd!", u.PasswordHash)
}

func TestUser_HashPendingPassword_System(t *testing.T) {
	h := &countingHasher{}
	u := &User{Name: "mock", IsSystem: true}
	u.SetPassword("ignored")

	require.NoError(t, u.HashPendingPassword(h))
	assert.Zero(t, h.calls)
	assert.Empty(t, u.PasswordHash)
	assert.False(t, u.CanLogin())
}

func TestUser_HashPendingPassword_Errors(t *testing.T) {
	u := &User{Name: "Bob"}
	assert.ErrorIs(t, u.HashPendingPassword(&countingHasher{}), ErrNoPassword)

	boom := errors.New("boom")
	u.SetPassword("Passw0rd!")
	assert.ErrorIs(t, u.HashPendingPassword(&countingHasher{err: boom}), boom)
	assert.Empty(t, u.PasswordHash)
}

func TestUser_JSONHidesPassword(t *testing.T) {
	u := User{ID: "u1", Name: "Alice", Email: "a@example.com", PasswordHash: "secret-hash", Role: RoleUser}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret-hash")
	assert.NotContains(t, string(b), "password")
}

func TestUser_Summary(t *testing.T) {
	u := &User{ID: "u1", Name: "Alice", Email: "a@example.com", Role: RoleUser}

	s := u.Summary(&Channel{Name: DefaultChannelName("Alice")})
	require.NotNil(t, s.ChannelName)
	assert.Equal(t, "Alice's Channel", *s.ChannelName)

	assert.Nil(t, u.Summary(nil).ChannelName)
}
