package config

import (
	"os"
	"sync"
	"time"

	"fastproxy/pkg/logger"

	"github.com/ilyakaznacheev/cleanenv"

	"fastproxy/internal/models"
)

type Config struct {
	Env      string         `yaml:"env" env:"APP_ENV" env-default:"production" env-description:"Environment [production, local, sandbox]"`
	Logger   logger.Config  `yaml:"logger"`
	Session  SessionConfig  `yaml:"session"`
	Provider ProviderConfig `yaml:"provider"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	History  HistoryConfig  `yaml:"history"`
	Debug    bool           `yaml:"debug" env:"APP_DEBUG" env-default:"false" env-description:"Enables debug mode"`
}

type SessionConfig struct {
	DNSTimeout      time.Duration `yaml:"dns_timeout" env:"SESSION_DNS_TIMEOUT" env-default:"10s" env-description:"Timeout for resolving the proxy host"`
	StartTimeout    time.Duration `yaml:"start_timeout" env:"SESSION_START_TIMEOUT" env-default:"30s" env-description:"Timeout for the tunnel to come up"`
	StopTimeout     time.Duration `yaml:"stop_timeout" env:"SESSION_STOP_TIMEOUT" env-default:"5s" env-description:"Timeout for tunnel teardown"`
	CheckURL        string        `yaml:"check_url" env:"SESSION_CHECK_URL" env-description:"Probe target, empty for the default"`
	HealthInterval  time.Duration `yaml:"health_interval" env:"SESSION_HEALTH_INTERVAL" env-default:"30s" env-description:"Interval between health probes"`
	HealthThreshold int           `yaml:"health_threshold" env:"SESSION_HEALTH_THRESHOLD" env-default:"3" env-description:"Consecutive probe failures before the session is unhealthy"`
}

type ProviderConfig struct {
	Driver  string   `yaml:"driver" env:"PROVIDER_DRIVER" env-default:"emulated" env-description:"VPN provider driver [emulated, system]"`
	Device  string   `yaml:"device" env:"PROVIDER_DEVICE" env-default:"fastproxy0" env-description:"TUN device name"`
	Address string   `yaml:"address" env:"PROVIDER_ADDRESS" env-default:"10.8.0.2/24" env-description:"Tunnel interface address"`
	Gateway string   `yaml:"gateway" env:"PROVIDER_GATEWAY" env-default:"10.8.0.1" env-description:"Tunnel gateway address"`
	MTU     int      `yaml:"mtu" env:"PROVIDER_MTU" env-default:"1500" env-description:"Tunnel interface MTU"`
	DNS     []string `yaml:"dns" env:"PROVIDER_DNS" env-default:"1.1.1.1,8.8.8.8" env-description:"DNS servers pushed onto the tunnel"`
}

type SecretsConfig struct {
	Backend    string `yaml:"backend" env:"SECRETS_BACKEND" env-default:"keyring" env-description:"Secret store backend [keyring, file]"`
	Service    string `yaml:"service" env:"SECRETS_SERVICE" env-default:"fastproxy" env-description:"Keyring service name"`
	Passphrase string `yaml:"passphrase" env:"FASTPROXY_PASSPHRASE" env-description:"Passphrase for the file backend"`
}

type HistoryConfig struct {
	Enabled       bool `yaml:"enabled" env:"HISTORY_ENABLED" env-default:"true" env-description:"Record session events"`
	RetentionDays int  `yaml:"retention_days" env:"HISTORY_RETENTION_DAYS" env-default:"30" env-description:"Days of history to keep"`
}

// TunConfig translates the provider section into device settings.
func (p ProviderConfig) TunConfig() models.TunConfig {
	return models.TunConfig{
		DeviceName: p.Device,
		Address:    p.Address,
		Gateway:    p.Gateway,
		MTU:        p.MTU,
		DNSServers: p.DNS,
	}
}

var (
	once   = sync.Once{}
	cfg    = &Config{}
	errCfg error
)

func New(configPath string, skipConfig bool) (*Config, error) {
	once.Do(func() {
		cfg = &Config{}

		if skipConfig {
			errCfg = cleanenv.ReadEnv(cfg)
			return
		}

		// A missing config file is fine, the environment still applies.
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			errCfg = cleanenv.ReadEnv(cfg)
			return
		}

		errCfg = cleanenv.ReadConfig(configPath, cfg)
	})

	return cfg, errCfg
}
