package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"scrapbook/internal/storage"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP bind address and the optional frontend build.
type Server struct {
	Addr      string `toml:"addr"`
	StaticDir string `toml:"static_dir"`
}

// Database selects the store. SQLite uses Path; postgres and mysql use DSN.
type Database struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	Path   string `toml:"path"`
}

// Editor contains settings for editor clients.
type Editor struct {
	SaveDelayMS int    `toml:"save_delay_ms"`
	APIBase     string `toml:"api_base"`
}

// Assets contains the custom sticker, photo and font library settings.
type Assets struct {
	Dir        string `toml:"dir"`
	QuotaBytes int64  `toml:"quota_bytes"`
}

// Backup contains snapshot settings. Snapshots go to Dir, and also to
// MongoDB when MongoURI is set.
type Backup struct {
	Enabled       bool   `toml:"enabled"`
	Schedule      string `toml:"schedule"`
	Dir           string `toml:"dir"`
	Keep          int    `toml:"keep"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

type Logging struct {
	Level string `toml:"level"`
}

type Config struct {
	Server   Server   `toml:"server"`
	Database Database `toml:"database"`
	Editor   Editor   `toml:"editor"`
	Assets   Assets   `toml:"assets"`
	Backup   Backup   `toml:"backup"`
	Logging  Logging  `toml:"logging"`
}

// EnvCandidates are the .env files tried in order; the first one found wins.
var EnvCandidates = []string{".env", filepath.Join("server", ".env"), filepath.Join("server", "db", ".env")}

func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scrapbook/config.toml")
}

// Load reads the config file at path (or the default locations when path is
// empty), applies environment overrides, then normalizes and validates the
// result. It returns the resolved path and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if _, err := LoadDotEnv(EnvCandidates...); err != nil {
		return nil, "", false, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scrapbook.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// LoadDotEnv loads the first candidate file that exists. Variables already
// set in the environment are left alone. It returns the file it loaded, or
// "" when none exist.
func LoadDotEnv(candidates ...string) (string, error) {
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return "", fmt.Errorf("load env (%s): %w", path, err)
		}
		return path, nil
	}
	return "", nil
}

// applyEnv lets PORT and DATABASE_URL override the file.
func (c *Config) applyEnv() error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Server.Addr = ":" + port
	}
	if raw := strings.TrimSpace(os.Getenv("DATABASE_URL")); raw != "" {
		opts, err := storage.OptionsFromURL(raw)
		if err != nil {
			return fmt.Errorf("DATABASE_URL: %w", err)
		}
		c.Database = Database{Driver: string(opts.Driver), DSN: opts.DSN, Path: opts.Path}
	}
	return nil
}

// StorageOptions converts the database section for storage.Open.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver: storage.Driver(c.Database.Driver),
		DSN:    c.Database.DSN,
		Path:   c.Database.Path,
	}
}

func (c *Config) SaveDelay() time.Duration {
	return time.Duration(c.Editor.SaveDelayMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a commented starter config to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
