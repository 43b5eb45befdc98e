package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the serve command's configuration, loaded from a TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Cache   CacheConfig   `toml:"cache"`
	Quota   QuotaConfig   `toml:"quota"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address string `toml:"address"`
	// BaseURL is the public prefix artifact URLs are built with. A path
	// prefix ("/files") or an absolute URL ("https://cdn.example.com/files")
	// both work.
	BaseURL string `toml:"base_url"`
}

// StorageConfig controls where artifacts are persisted.
type StorageConfig struct {
	DataDir string `toml:"data_dir"`
}

// CacheConfig selects the render cache backend.
type CacheConfig struct {
	// Backend is one of "none", "file", "redis".
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
}

// QuotaConfig selects the subscription ledger backend.
type QuotaConfig struct {
	// Backend is one of "memory", "mongo".
	Backend  string `toml:"backend"`
	MongoURI string `toml:"mongo_uri"`
	MongoDB  string `toml:"mongo_db"`

	// Memory-backend plan template, applied to every new user.
	Plan          string `toml:"plan"`
	ArtifactLimit int    `toml:"artifact_limit"`
	DownloadLimit int    `toml:"download_limit"`
	ProjectLimit  int    `toml:"project_limit"`
}

// DefaultConfig returns the configuration used when no file is given:
// local file storage, no render cache, and a permissive in-memory quota.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address: ":8080",
			BaseURL: "/files",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Cache: CacheConfig{
			Backend: "none",
		},
		Quota: QuotaConfig{
			Backend:       "memory",
			Plan:          "dev",
			ArtifactLimit: 1000,
			DownloadLimit: 10000,
			ProjectLimit:  100,
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "", "none", "file":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache backend redis needs redis_addr")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.Quota.Backend {
	case "", "memory":
	case "mongo":
		if c.Quota.MongoURI == "" {
			return fmt.Errorf("quota backend mongo needs mongo_uri")
		}
	default:
		return fmt.Errorf("unknown quota backend %q", c.Quota.Backend)
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage data_dir is required")
	}
	return nil
}
