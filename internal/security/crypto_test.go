package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	cm, err := NewCryptoManager("master-password", salt)
	require.NoError(t, err)

	ciphertext, err := cm.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, ciphertext, "hunter2")

	plaintext, err := cm.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
}

func TestSameSaltRebuildsSameKey(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	first, err := NewCryptoManager("pw", salt)
	require.NoError(t, err)
	ciphertext, err := first.Encrypt("payload")
	require.NoError(t, err)

	// A second manager with the same passphrase and salt can read what
	// the first one wrote.
	second, err := NewCryptoManager("pw", salt)
	require.NoError(t, err)
	plaintext, err := second.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "payload", plaintext)
}

func TestWrongPassphraseFails(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	cm, err := NewCryptoManager("right", salt)
	require.NoError(t, err)
	ciphertext, err := cm.Encrypt("payload")
	require.NoError(t, err)

	other, err := NewCryptoManager("wrong", salt)
	require.NoError(t, err)
	_, err = other.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestNewCryptoManagerValidation(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	_, err = NewCryptoManager("", salt)
	assert.Error(t, err)

	_, err = NewCryptoManager("pw", nil)
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)
	cm, err := NewCryptoManager("pw", salt)
	require.NoError(t, err)

	_, err = cm.Decrypt("not base64 at all!!!")
	assert.Error(t, err)

	_, err = cm.Decrypt("AAAA")
	assert.Error(t, err)
}

func TestDeriveSecretDeterministic(t *testing.T) {
	a := DeriveSecret("hunter2", "alice")
	b := DeriveSecret("hunter2", "alice")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestDeriveSecretScoped(t *testing.T) {
	alice := DeriveSecret("hunter2", "alice")
	bob := DeriveSecret("hunter2", "bob")
	assert.NotEqual(t, alice, bob)

	other := DeriveSecret("different", "alice")
	assert.NotEqual(t, alice, other)
}
