// Package backend owns the application lifecycle: storage paths, the
// persisted state file, the single-instance lock and shutdown housekeeping.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"fastproxy/internal/storage"
	"fastproxy/pkg/datehelper"
)

const (
	stateFile = "state.toml"
	pidFile   = "fastproxy.pid"

	stateWriteInterval = 2 * time.Minute
)

var ErrAnotherInstance = errors.New("another instance is already running")

// HistoryPruner trims old session events at shutdown.
type HistoryPruner interface {
	PruneBefore(cutoff time.Time) (int64, error)
}

type App struct {
	State *State

	storage *storage.AppStorage

	appName        string
	displayAppName string
	appVersion     string
	appVersionTag  string

	isFirstLaunch bool // set by the state file reader
	bgrndCtx      context.Context
	cancel        context.CancelFunc

	lastWrittenState State
}

// StartupApp initializes storage under the user config dir, takes the
// single-instance lock, loads persisted state and starts the background
// state writer. Returns ErrAnotherInstance when a live process already
// holds the lock.
func StartupApp(appName, displayAppName, appVersion, appVersionTag string) (*App, error) {
	appStorage, err := storage.NewAppStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return StartupAppWithStorage(appStorage, appName, displayAppName, appVersion, appVersionTag)
}

func StartupAppWithStorage(appStorage *storage.AppStorage, appName, displayAppName, appVersion, appVersionTag string) (*App, error) {
	a := &App{
		storage:        appStorage,
		appName:        appName,
		displayAppName: displayAppName,
		appVersion:     appVersion,
		appVersionTag:  appVersionTag,
	}

	if err := a.acquireInstanceLock(); err != nil {
		return nil, err
	}

	a.bgrndCtx, a.cancel = context.WithCancel(context.Background())
	a.readState()

	log.Infof("Starting %s %s", displayAppName, appVersion)
	log.WithFields(log.Fields{
		"config": appStorage.ConfigPath(),
		"db":     appStorage.DBPath(),
		"cache":  appStorage.CachePath(),
	}).Debug("Storage paths")

	a.State.Maintenance.HistoryRetentionDays = clamp(a.State.Maintenance.HistoryRetentionDays, 1, 365)
	a.State.Maintenance.MaxCacheSizeMB = clamp(a.State.Maintenance.MaxCacheSizeMB, 1, 1024)

	a.startStateWriter(a.bgrndCtx)
	return a, nil
}

func (a *App) Ctx() context.Context { return a.bgrndCtx }

func (a *App) Storage() *storage.AppStorage { return a.storage }

func (a *App) IsFirstLaunch() bool { return a.isFirstLaunch }

func (a *App) VersionTag() string { return a.appVersionTag }

func (a *App) stateFilePath() string {
	return filepath.Join(a.storage.ConfigPath(), stateFile)
}

func (a *App) pidFilePath() string {
	return filepath.Join(a.storage.ConfigPath(), pidFile)
}

// acquireInstanceLock writes our pid to the lock file. A lock held by a
// dead process is stale and gets overwritten.
func (a *App) acquireInstanceLock() error {
	pidPath := a.pidFilePath()
	if data, err := os.ReadFile(pidPath); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid != os.Getpid() && pidAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrAnotherInstance, pid)
		}
	}
	if err := os.MkdirAll(a.storage.ConfigPath(), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (a *App) releaseInstanceLock() {
	pidPath := a.pidFilePath()
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return
	}
	// only remove a lock we own
	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == os.Getpid() {
		_ = os.Remove(pidPath)
	}
}

func pidAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	// EPERM means the process exists but belongs to someone else
	return err == nil || errors.Is(err, syscall.EPERM)
}

func (a *App) readState() {
	statePath := a.stateFilePath()
	a.isFirstLaunch = !a.storage.FileExists(statePath)

	state, err := ReadStateFile(statePath, a.appVersionTag)
	if err != nil {
		if !a.isFirstLaunch {
			log.Warnf("Error reading state file: %v", err)
			backupName := stateFile + ".bak"
			log.Warnf("State file may be malformed: copying to %s", backupName)
			_ = a.storage.CopyFile(statePath, filepath.Join(a.storage.ConfigPath(), backupName))
		}
		state = DefaultState(a.appVersionTag)
	}
	a.State = state
}

func (a *App) startStateWriter(ctx context.Context) {
	tick := time.NewTicker(stateWriteInterval)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if !reflect.DeepEqual(&a.lastWrittenState, a.State) {
					a.SaveStateFile()
				}
			}
		}
	}()
}

func (a *App) SaveStateFile() {
	a.State.LastLaunchedVersion = a.appVersionTag
	if err := a.State.WriteStateFile(a.stateFilePath()); err != nil {
		log.Errorf("Failed to save state file: %v", err)
	}
	a.lastWrittenState = *a.State
}

// RecordConnection updates the persisted session bookkeeping after a
// successful connect. The descriptor must already be redacted.
func (a *App) RecordConnection(profileName, redactedDescriptor, resolvedAddr string) {
	a.State.Session.LastProfile = profileName
	a.State.Session.LastDescriptor = redactedDescriptor
	a.State.Session.LastResolvedIP = resolvedAddr
	a.State.Session.LastConnectedAt = time.Now()
}

// Shutdown persists state, prunes old history, trims the cache when it
// grew past the configured cap and releases the instance lock.
func (a *App) Shutdown(history HistoryPruner) {
	a.SaveStateFile()

	if history != nil {
		cutoff := datehelper.DaysAgo(a.State.Maintenance.HistoryRetentionDays)
		if pruned, err := history.PruneBefore(cutoff); err != nil {
			log.Warnf("Failed to prune session history: %v", err)
		} else if pruned > 0 {
			log.Debugf("Pruned %d old session events", pruned)
		}
	}

	if size, err := a.storage.GetCacheSize(); err == nil {
		maxSize := int64(a.State.Maintenance.MaxCacheSizeMB) * 1024 * 1024
		if size > maxSize {
			_ = a.storage.ClearCache()
		}
	}

	a.releaseInstanceLock()
	a.cancel()
}

func clamp(i, min, max int) int {
	if i < min {
		i = min
	} else if i > max {
		i = max
	}
	return i
}
