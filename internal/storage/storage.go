package storage

import (
	"os"
	"path/filepath"
)

// AppStorage lays out the per-user data directory: config, the event
// database and a cache, each in its own subdirectory.
type AppStorage struct {
	configPath string
	dbPath     string
	cachePath  string
}

func NewAppStorage() (*AppStorage, error) {
	baseDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return NewAppStorageAt(filepath.Join(baseDir, "fastproxy"))
}

// NewAppStorageAt roots the layout at an explicit directory.
func NewAppStorageAt(baseDir string) (*AppStorage, error) {
	configPath := filepath.Join(baseDir, "config")
	dbPath := filepath.Join(baseDir, "db")
	cachePath := filepath.Join(baseDir, "cache")

	dirs := []string{configPath, dbPath, cachePath}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return &AppStorage{
		configPath: configPath,
		dbPath:     dbPath,
		cachePath:  cachePath,
	}, nil
}

func (s *AppStorage) ConfigPath() string {
	return s.configPath
}

func (s *AppStorage) DBPath() string {
	return s.dbPath
}

func (s *AppStorage) CachePath() string {
	return s.cachePath
}

func (s *AppStorage) EnsureFilePermissions(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		file.Close()
	}

	return os.Chmod(path, 0o644)
}

func (s *AppStorage) EnsureDirPermissions(dirpath string) error {
	if err := os.MkdirAll(dirpath, 0o755); err != nil {
		return err
	}
	return os.Chmod(dirpath, 0o755)
}

func (s *AppStorage) WriteFile(filepath string, data []byte) error {
	if err := s.EnsureFilePermissions(filepath); err != nil {
		return err
	}
	return os.WriteFile(filepath, data, 0o644)
}

// WritePrivateFile is WriteFile for data that may carry credentials.
func (s *AppStorage) WritePrivateFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (s *AppStorage) ReadFile(filepath string) ([]byte, error) {
	return os.ReadFile(filepath)
}

func (s *AppStorage) FileExists(filepath string) bool {
	_, err := os.Stat(filepath)
	return err == nil
}

func (s *AppStorage) DeleteFile(filepath string) error {
	return os.Remove(filepath)
}

func (s *AppStorage) CopyFile(src, dst string) error {
	data, err := s.ReadFile(src)
	if err != nil {
		return err
	}
	return s.WriteFile(dst, data)
}

func (s *AppStorage) ClearCache() error {
	entries, err := os.ReadDir(s.cachePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(s.cachePath, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

func (s *AppStorage) GetCacheSize() (int64, error) {
	var size int64
	err := filepath.Walk(s.cachePath, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
