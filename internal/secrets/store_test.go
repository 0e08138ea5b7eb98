package secrets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastproxy/internal/security"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Upsert(key string, secret []byte) error {
	m.data[key] = append([]byte(nil), secret...)
	return nil
}

func (m *memStore) Fetch(key string) ([]byte, error) {
	secret, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return secret, nil
}

func (m *memStore) Delete(key string) error {
	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}

// failingStore fails every Upsert of one key, to exercise rollback.
type failingStore struct {
	*memStore
	failKey string
}

func (f *failingStore) Upsert(key string, secret []byte) error {
	if key == f.failKey {
		return errors.New("backend write failed")
	}
	return f.memStore.Upsert(key, secret)
}

func TestStoreCredentialsWritesBothEntries(t *testing.T) {
	s := newMemStore()
	require.NoError(t, StoreCredentials(s, "alice", "hunter2"))

	password, err := s.Fetch(PasswordKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(password))

	shared, err := s.Fetch(SharedSecretKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, security.DeriveSecret("hunter2", "alice"), string(shared))
}

func TestStoreCredentialsIdempotent(t *testing.T) {
	s := newMemStore()
	require.NoError(t, StoreCredentials(s, "alice", "hunter2"))
	require.NoError(t, StoreCredentials(s, "alice", "hunter2"))

	password, err := s.Fetch(PasswordKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(password))
	assert.Len(t, s.data, 2)
}

func TestStoreCredentialsOverwrites(t *testing.T) {
	s := newMemStore()
	require.NoError(t, StoreCredentials(s, "alice", "old"))
	require.NoError(t, StoreCredentials(s, "alice", "new"))

	password, err := s.Fetch(PasswordKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(password))

	shared, err := s.Fetch(SharedSecretKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, security.DeriveSecret("new", "alice"), string(shared))
}

func TestStoreCredentialsRollsBackFreshPassword(t *testing.T) {
	s := &failingStore{memStore: newMemStore(), failKey: SharedSecretKey("alice")}

	err := StoreCredentials(s, "alice", "hunter2")
	require.Error(t, err)

	// Neither entry may remain after a failed pair write.
	_, err = s.Fetch(PasswordKey("alice"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Fetch(SharedSecretKey("alice"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCredentialsRollbackRestoresPrevious(t *testing.T) {
	inner := newMemStore()
	require.NoError(t, StoreCredentials(inner, "alice", "old"))

	s := &failingStore{memStore: inner, failKey: SharedSecretKey("alice")}
	err := StoreCredentials(s, "alice", "new")
	require.Error(t, err)

	password, err := inner.Fetch(PasswordKey("alice"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(password))
}

func TestStoreCredentialsIsolatedPerUsername(t *testing.T) {
	s := newMemStore()
	require.NoError(t, StoreCredentials(s, "alice", "pw-a"))
	require.NoError(t, StoreCredentials(s, "bob", "pw-b"))

	alice, err := s.Fetch(PasswordKey("alice"))
	require.NoError(t, err)
	bob, err := s.Fetch(PasswordKey("bob"))
	require.NoError(t, err)
	assert.Equal(t, "pw-a", string(alice))
	assert.Equal(t, "pw-b", string(bob))

	sharedA, err := s.Fetch(SharedSecretKey("alice"))
	require.NoError(t, err)
	sharedB, err := s.Fetch(SharedSecretKey("bob"))
	require.NoError(t, err)
	assert.NotEqual(t, string(sharedA), string(sharedB))
}

func TestDeleteCredentials(t *testing.T) {
	s := newMemStore()
	require.NoError(t, StoreCredentials(s, "alice", "hunter2"))
	require.NoError(t, DeleteCredentials(s, "alice"))

	_, err := s.Fetch(PasswordKey("alice"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Fetch(SharedSecretKey("alice"))
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, DeleteCredentials(s, "alice"))
}
