package config

const (
	defaultAddr         = ":4000"
	defaultDriver       = "sqlite"
	defaultDatabasePath = "~/.local/share/scrapbook/scrapbook.db"
	defaultSaveDelayMS  = 600
	defaultAPIBase      = "http://localhost:4000"
	defaultAssetsDir    = "~/.local/share/scrapbook/assets"
	defaultAssetsQuota  = 5 << 20
	defaultBackupDir    = "~/.local/share/scrapbook/backups"
	defaultBackupKeep   = 14
	defaultBackupCron   = "@daily"
	defaultLogLevel     = "info"
)

// Default returns a configuration populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{Addr: defaultAddr},
		Database: Database{
			Driver: defaultDriver,
			Path:   defaultDatabasePath,
		},
		Editor: Editor{
			SaveDelayMS: defaultSaveDelayMS,
			APIBase:     defaultAPIBase,
		},
		Assets: Assets{
			Dir:        defaultAssetsDir,
			QuotaBytes: defaultAssetsQuota,
		},
		Backup: Backup{
			Schedule: defaultBackupCron,
			Dir:      defaultBackupDir,
			Keep:     defaultBackupKeep,
		},
		Logging: Logging{Level: defaultLogLevel},
	}
}
