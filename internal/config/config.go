// Package config loads CLI and daemon configuration from a config
// file, environment variables, and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys. Environment variables use the NEUROSYNC prefix,
// e.g. NEUROSYNC_REMOTE_URL.
const (
	KeyLocalDBPath      = "local.db_path"
	KeyRemoteURL        = "remote.url"
	KeyRemoteAuthToken  = "remote.auth_token"
	KeyRemoteUserID     = "remote.user_id"
	KeySyncInterval     = "daemon.sync_interval"
	KeyDebounceInterval = "daemon.debounce_interval"
	KeyFeedPollInterval = "daemon.feed_poll_interval"
	KeyDashboardPort    = "dashboard.port"
	KeyLogFile          = "log.file"
)

// Config is the resolved configuration for a run.
type Config struct {
	LocalDBPath string

	RemoteURL       string
	RemoteAuthToken string
	RemoteUserID    string

	SyncInterval     time.Duration
	DebounceInterval time.Duration
	FeedPollInterval time.Duration

	DashboardPort int
	LogFile       string
}

// Load reads configuration from cfgFile (or the default location),
// environment, and any flags already bound to viper. A missing config
// file is not an error; everything has a default or can come from the
// environment.
func Load(cfgFile string) (*Config, error) {
	return load(viper.GetViper(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	v.SetDefault(KeyLocalDBPath, defaultDBPath())
	v.SetDefault(KeySyncInterval, 5*time.Minute)
	v.SetDefault(KeyDebounceInterval, 500*time.Millisecond)
	v.SetDefault(KeyFeedPollInterval, 500*time.Millisecond)
	v.SetDefault(KeyDashboardPort, 8345)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".neurosync")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("NEUROSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Config{
		LocalDBPath:      v.GetString(KeyLocalDBPath),
		RemoteURL:        v.GetString(KeyRemoteURL),
		RemoteAuthToken:  v.GetString(KeyRemoteAuthToken),
		RemoteUserID:     v.GetString(KeyRemoteUserID),
		SyncInterval:     v.GetDuration(KeySyncInterval),
		DebounceInterval: v.GetDuration(KeyDebounceInterval),
		FeedPollInterval: v.GetDuration(KeyFeedPollInterval),
		DashboardPort:    v.GetInt(KeyDashboardPort),
		LogFile:          v.GetString(KeyLogFile),
	}, nil
}

// Configured reports whether a remote backend is set up at all.
func (c *Config) Configured() bool {
	return c.RemoteURL != ""
}

// Authenticated reports whether the remote backend has credentials and
// a user to scope data to.
func (c *Config) Authenticated() bool {
	return c.Configured() && c.RemoteAuthToken != "" && c.RemoteUserID != ""
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "neurosync.db"
	}
	return filepath.Join(home, ".neurosync", "neurosync.db")
}
