package config

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateEditor(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path must be set for sqlite")
		}
	case "postgres", "mysql":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set for %s (or set DATABASE_URL)", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver %q is not supported (want sqlite, postgres or mysql)", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateEditor() error {
	if c.Editor.SaveDelayMS < 0 {
		return errors.New("editor.save_delay_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateAssets() error {
	if c.Assets.QuotaBytes < 0 {
		return errors.New("assets.quota_bytes must be zero (unlimited) or positive")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.Keep < 0 {
		return errors.New("backup.keep must be zero (keep all) or positive")
	}
	if !c.Backup.Enabled {
		return nil
	}
	if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
		return fmt.Errorf("backup.schedule: %w", err)
	}
	if c.Backup.Dir == "" && c.Backup.MongoURI == "" {
		return errors.New("backup is enabled but neither backup.dir nor backup.mongo_uri is set")
	}
	return nil
}
