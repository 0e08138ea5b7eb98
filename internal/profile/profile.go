// Package profile stores named connection profiles so descriptors do not
// have to be retyped.
package profile

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"fastproxy/internal/descriptor"
	"fastproxy/internal/storage"
)

const profilesFile = "profiles.yaml"

var (
	ErrNotFound      = errors.New("profile not found")
	ErrDuplicateName = errors.New("profile name already exists")
)

// Profile names a connection descriptor. The stored descriptor keeps its
// password, so the profiles file is written with private permissions.
type Profile struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Descriptor  string    `yaml:"descriptor"`
	Username    string    `yaml:"username"`
	AutoConnect bool      `yaml:"auto_connect"`
	Created     time.Time `yaml:"created"`
	LastUsed    time.Time `yaml:"last_used,omitempty"`
}

type Manager struct {
	storage  *storage.AppStorage
	path     string
	profiles []*Profile
}

func NewManager(appStorage *storage.AppStorage) (*Manager, error) {
	m := &Manager{
		storage: appStorage,
		path:    filepath.Join(appStorage.ConfigPath(), profilesFile),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	if !m.storage.FileExists(m.path) {
		return nil
	}

	data, err := m.storage.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read profiles: %w", err)
	}
	if err := yaml.Unmarshal(data, &m.profiles); err != nil {
		return fmt.Errorf("failed to parse profiles: %w", err)
	}
	return nil
}

func (m *Manager) save() error {
	data, err := yaml.Marshal(m.profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	return m.storage.WritePrivateFile(m.path, data)
}

// Add validates the descriptor and stores a new profile under name.
func (m *Manager) Add(name, rawDescriptor string, autoConnect bool) (*Profile, error) {
	if name == "" {
		return nil, errors.New("empty profile name")
	}
	if m.byName(name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	desc, err := descriptor.Parse(rawDescriptor)
	if err != nil {
		return nil, fmt.Errorf("invalid descriptor: %w", err)
	}

	p := &Profile{
		ID:          uuid.NewString(),
		Name:        name,
		Descriptor:  rawDescriptor,
		Username:    desc.Username,
		AutoConnect: autoConnect,
		Created:     time.Now(),
	}

	m.profiles = append(m.profiles, p)
	if err := m.save(); err != nil {
		m.profiles = m.profiles[:len(m.profiles)-1]
		return nil, err
	}
	return p, nil
}

func (m *Manager) Get(name string) (*Profile, error) {
	if p := m.byName(name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (m *Manager) Remove(name string) error {
	for i, p := range m.profiles {
		if p.Name == name {
			m.profiles = append(m.profiles[:i], m.profiles[i+1:]...)
			return m.save()
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (m *Manager) List() []*Profile {
	out := make([]*Profile, len(m.profiles))
	copy(out, m.profiles)
	return out
}

// Touch records that a profile was used.
func (m *Manager) Touch(name string) error {
	p := m.byName(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	p.LastUsed = time.Now()
	return m.save()
}

// AutoConnectProfile returns the first profile marked for automatic
// connection, or nil.
func (m *Manager) AutoConnectProfile() *Profile {
	for _, p := range m.profiles {
		if p.AutoConnect {
			return p
		}
	}
	return nil
}

func (m *Manager) byName(name string) *Profile {
	for _, p := range m.profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}
