package backend

import (
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// SessionState remembers the last session across restarts. The descriptor is
// stored in redacted form, never with the password.
type SessionState struct {
	LastProfile     string
	LastDescriptor  string
	LastResolvedIP  string
	LastConnectedAt time.Time
	AutoReconnect   bool
}

type MaintenanceState struct {
	HistoryRetentionDays int
	MaxCacheSizeMB       int
}

// State is the persisted application state. It holds runtime bookkeeping,
// not configuration; settings live in the config file and environment.
type State struct {
	LastLaunchedVersion string
	Session             SessionState
	Maintenance         MaintenanceState
}

func DefaultState(appVersionTag string) *State {
	return &State{
		LastLaunchedVersion: appVersionTag,
		Maintenance: MaintenanceState{
			HistoryRetentionDays: 30,
			MaxCacheSizeMB:       50,
		},
	}
}

func ReadStateFile(filepath, appVersionTag string) (*State, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s := DefaultState(appVersionTag)
	if err := toml.NewDecoder(f).Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

var writeLock sync.Mutex

func (s *State) WriteStateFile(filepath string) error {
	if !writeLock.TryLock() {
		// another write is already in flight
		return nil
	}
	defer writeLock.Unlock()

	b, err := toml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, b, 0o644)
}
