package secrets

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"fastproxy/internal/security"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the on-disk form of the store: the key salt in the clear,
// the entries sealed by the passphrase-derived key.
type envelope struct {
	Salt string `json:"salt"`
	Data string `json:"data"`
}

// FileStore keeps secrets in a single AES-256-GCM encrypted file. It is
// the fallback for hosts without a usable OS keyring.
type FileStore struct {
	path       string
	passphrase string

	mu      sync.Mutex
	cm      *security.CryptoManager
	salt    []byte
	entries map[string][]byte
}

func NewFileStore(path, passphrase string) (*FileStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: empty passphrase", ErrUnavailable)
	}

	s := &FileStore{
		path:       path,
		passphrase: passphrase,
		entries:    make(map[string][]byte),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		salt, err := security.NewSalt()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return s.setKey(salt)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: malformed store: %v", ErrUnavailable, err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return fmt.Errorf("%w: malformed salt: %v", ErrUnavailable, err)
	}
	if err := s.setKey(salt); err != nil {
		return err
	}

	plaintext, err := s.cm.Decrypt(env.Data)
	if err != nil {
		return fmt.Errorf("%w: wrong passphrase or corrupted store: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal([]byte(plaintext), &s.entries); err != nil {
		return fmt.Errorf("%w: malformed entries: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) setKey(salt []byte) error {
	cm, err := security.NewCryptoManager(s.passphrase, salt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.cm = cm
	s.salt = salt
	return nil
}

func (s *FileStore) save() error {
	payload, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sealed, err := s.cm.Encrypt(string(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out, err := json.Marshal(envelope{
		Salt: base64.StdEncoding.EncodeToString(s.salt),
		Data: sealed,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.WriteFile(s.path, out, 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *FileStore) Upsert(key string, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = append([]byte(nil), secret...)
	return s.save()
}

func (s *FileStore) Fetch(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), secret...), nil
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return ErrNotFound
	}
	delete(s.entries, key)
	return s.save()
}
