package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Database
		Cache
		Drive
		Sync
		Credential
		Tasks
		Logging
		Global
	}

	HTTP struct {
		Port int32
		Host string
	}
	Database struct {
		Path string
	}
	Cache struct {
		Path             string
		MaxDownloadBytes int64
	}
	Drive struct {
		ClientID     string
		ClientSecret string
		FolderID     string // Empty lists every EPUB visible to the account
		CallbackPort int    // Loopback port for drive-auth
	}
	Sync struct {
		Enabled      bool
		Schedule     string // Cron format: "*/15 * * * *" = every 15 minutes
		RoundTimeout time.Duration
		DeviceName   string
	}
	Credential struct {
		RefreshMargin time.Duration
		EncryptionKey string
		KeyFile       string
	}
	Tasks struct {
		Enabled            bool
		Workers            int
		ReleaseAfter       time.Duration
		CleanupInterval    time.Duration
		AuditRetentionDays int
	}
	Logging struct {
		Level      string
		File       string // Empty logs to stderr only
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		JSON       bool
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("blob_cache_path", DefaultBlobCachePath)
	v.SetDefault("max_download_bytes", 512<<20)

	// Google Drive defaults
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("drive_folder_id", "")
	v.SetDefault("drive_callback_port", 4200)

	// Sync defaults
	v.SetDefault("sync_enabled", true)
	v.SetDefault("sync_schedule", DefaultSyncSchedule)
	v.SetDefault("sync_round_timeout", "2m")
	v.SetDefault("device_name", "")

	// Credential defaults
	v.SetDefault("credential_refresh_margin", "60s")
	v.SetDefault("token_encryption_key", "")
	v.SetDefault("token_key_file", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("audit_retention_days", 30)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", 20)
	v.SetDefault("log_max_backups", 3)
	v.SetDefault("log_max_age_days", 28)
	v.SetDefault("log_json", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Cache: Cache{
			Path:             v.GetString("BLOB_CACHE_PATH"),
			MaxDownloadBytes: v.GetInt64("MAX_DOWNLOAD_BYTES"),
		},
		Drive: Drive{
			ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
			FolderID:     v.GetString("DRIVE_FOLDER_ID"),
			CallbackPort: v.GetInt("DRIVE_CALLBACK_PORT"),
		},
		Sync: Sync{
			Enabled:      v.GetBool("SYNC_ENABLED"),
			Schedule:     v.GetString("SYNC_SCHEDULE"),
			RoundTimeout: v.GetDuration("SYNC_ROUND_TIMEOUT"),
			DeviceName:   v.GetString("DEVICE_NAME"),
		},
		Credential: Credential{
			RefreshMargin: v.GetDuration("CREDENTIAL_REFRESH_MARGIN"),
			EncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
			KeyFile:       v.GetString("TOKEN_KEY_FILE"),
		},
		Tasks: Tasks{
			Enabled:            v.GetBool("TASKS_ENABLED"),
			Workers:            v.GetInt("TASK_WORKERS"),
			ReleaseAfter:       v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:    v.GetDuration("TASK_CLEANUP_INTERVAL"),
			AuditRetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Logging: Logging{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
			JSON:       v.GetBool("LOG_JSON"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
	}
}
