// Package secrets persists proxy credentials. Two backends implement the
// same Store interface: the OS keyring and an encrypted file for hosts
// without one.
package secrets

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"fastproxy/internal/security"
)

var (
	ErrNotFound    = errors.New("secret not found")
	ErrUnavailable = errors.New("secret store unavailable")
)

type Store interface {
	Upsert(key string, secret []byte) error
	Fetch(key string) ([]byte, error)
	Delete(key string) error
}

func PasswordKey(username string) string {
	return "password:" + username
}

func SharedSecretKey(username string) string {
	return "shared_secret:" + username
}

// StoreCredentials writes the password and its derived shared secret for
// a username. The pair is transactional: if the second write fails the
// first is rolled back, so the store never holds one without the other.
// Re-storing the same credentials is a no-op overwrite.
func StoreCredentials(s Store, username, password string) error {
	passKey := PasswordKey(username)
	secretKey := SharedSecretKey(username)

	prev, err := s.Fetch(passKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to read existing password: %w", err)
	}
	hadPrev := err == nil

	if err := s.Upsert(passKey, []byte(password)); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}

	shared := security.DeriveSecret(password, username)
	if err := s.Upsert(secretKey, []byte(shared)); err != nil {
		rollbackPassword(s, passKey, prev, hadPrev)
		return fmt.Errorf("failed to store shared secret: %w", err)
	}

	return nil
}

func rollbackPassword(s Store, key string, prev []byte, hadPrev bool) {
	var err error
	if hadPrev {
		err = s.Upsert(key, prev)
	} else {
		err = s.Delete(key)
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.WithField("key", key).Errorf("Failed to roll back password: %v", err)
	}
}

// DeleteCredentials removes both entries for a username. Missing entries
// are not an error.
func DeleteCredentials(s Store, username string) error {
	for _, key := range []string{PasswordKey(username), SharedSecretKey(username)} {
		if err := s.Delete(key); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}
