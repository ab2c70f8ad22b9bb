package config

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Registry
		Library
		Tasks
		Inbox
		Metadata
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Registry struct {
		Path string // JSON file listing the known libraries
	}
	// Library is registered and selected at startup when the registry
	// does not know a library at DefaultPath yet.
	Library struct {
		DefaultName string
		DefaultPath string
	}
	Tasks struct {
		Enabled         bool
		DatabasePath    string
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Inbox struct {
		Enabled  bool
		Dir      string
		Schedule string // Cron format: "*/5 * * * *" = every 5 minutes
	}
	Metadata struct {
		OpenLibraryEnabled bool
		OpenLibraryURL     string
		GoogleBooksEnabled bool
		GoogleBooksURL     string
		GoogleBooksAPIKey  string
	}
)

// NewConfig reads the configuration from the environment, after loading
// DefaultEnvFile into it when that file exists.
func NewConfig() *Config {
	LoadEnvFile(DefaultEnvFile)
	return fromViper(newViper())
}

// LoadEnvFile loads path into the process environment. Variables that are
// already set win over the file. A missing file is not an error.
func LoadEnvFile(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load %s: %v", path, err)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("registry_path", DefaultRegistryPath)
	v.SetDefault("library_name", "Library")
	v.SetDefault("library_path", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", DefaultTasksDatabasePath)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "2h")
	v.SetDefault("task_cleanup_interval", "1h")

	// Inbox defaults
	v.SetDefault("inbox_enabled", false)
	v.SetDefault("inbox_dir", "./inbox")
	v.SetDefault("inbox_schedule", "*/5 * * * *")

	// Metadata provider defaults
	v.SetDefault("openlibrary_enabled", true)
	v.SetDefault("openlibrary_url", "https://openlibrary.org")
	v.SetDefault("googlebooks_enabled", false)
	v.SetDefault("googlebooks_url", "https://www.googleapis.com/books/v1")
	v.SetDefault("googlebooks_api_key", "")
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Registry: Registry{
			Path: v.GetString("REGISTRY_PATH"),
		},
		Library: Library{
			DefaultName: v.GetString("LIBRARY_NAME"),
			DefaultPath: v.GetString("LIBRARY_PATH"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DatabasePath:    v.GetString("TASKS_DATABASE_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Inbox: Inbox{
			Enabled:  v.GetBool("INBOX_ENABLED"),
			Dir:      v.GetString("INBOX_DIR"),
			Schedule: v.GetString("INBOX_SCHEDULE"),
		},
		Metadata: Metadata{
			OpenLibraryEnabled: v.GetBool("OPENLIBRARY_ENABLED"),
			OpenLibraryURL:     v.GetString("OPENLIBRARY_URL"),
			GoogleBooksEnabled: v.GetBool("GOOGLEBOOKS_ENABLED"),
			GoogleBooksURL:     v.GetString("GOOGLEBOOKS_URL"),
			GoogleBooksAPIKey:  v.GetString("GOOGLEBOOKS_API_KEY"),
		},
	}
}
