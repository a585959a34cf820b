package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeServer(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeEditor()
	if err := c.normalizeAssets(); err != nil {
		return err
	}
	if err := c.normalizeBackup(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeServer() error {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	var err error
	if c.Server.StaticDir, err = expandPath(strings.TrimSpace(c.Server.StaticDir)); err != nil {
		return fmt.Errorf("server.static_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "":
		c.Database.Driver = defaultDriver
	case "postgresql":
		c.Database.Driver = "postgres"
	case "sqlite3":
		c.Database.Driver = "sqlite"
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.Driver != defaultDriver {
		return nil
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		c.Database.Path = defaultDatabasePath
	}
	var err error
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeEditor() {
	c.Editor.APIBase = strings.TrimRight(strings.TrimSpace(c.Editor.APIBase), "/")
	if c.Editor.APIBase == "" {
		c.Editor.APIBase = defaultAPIBase
	}
}

func (c *Config) normalizeAssets() error {
	if strings.TrimSpace(c.Assets.Dir) == "" {
		c.Assets.Dir = defaultAssetsDir
	}
	var err error
	if c.Assets.Dir, err = expandPath(c.Assets.Dir); err != nil {
		return fmt.Errorf("assets.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBackup() error {
	c.Backup.Schedule = strings.TrimSpace(c.Backup.Schedule)
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = defaultBackupCron
	}
	c.Backup.MongoURI = strings.TrimSpace(c.Backup.MongoURI)
	c.Backup.MongoDatabase = strings.TrimSpace(c.Backup.MongoDatabase)
	var err error
	if c.Backup.Dir, err = expandPath(strings.TrimSpace(c.Backup.Dir)); err != nil {
		return fmt.Errorf("backup.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
