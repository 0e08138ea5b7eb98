package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize    = 32
	saltSize   = 16
	iterations = 100000
)

// CryptoManager seals small payloads with AES-256-GCM. The key is derived
// from a passphrase and a salt; callers persist the salt next to the
// ciphertext so the same key can be rebuilt after a restart.
type CryptoManager struct {
	masterKey []byte
}

func NewCryptoManager(password string, salt []byte) (*CryptoManager, error) {
	if password == "" {
		return nil, errors.New("master password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)

	return &CryptoManager{
		masterKey: key,
	}, nil
}

func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

func (cm *CryptoManager) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (cm *CryptoManager) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(cm.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(data) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	nonce := data[:gcm.NonceSize()]
	encryptedData := data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, encryptedData, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// DeriveSecret deterministically derives a shared secret from a password.
// The scope keeps secrets for different accounts distinct; the result is
// hex-encoded so it can travel as a plain string.
func DeriveSecret(password, scope string) string {
	salt := []byte("fastproxy/" + scope)
	key := pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return hex.EncodeToString(key)
}
