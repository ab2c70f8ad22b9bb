package config

// Default paths
const (
	// DefaultRegistryPath is the library registry state file.
	DefaultRegistryPath = "./libraryState.json"

	// DefaultTasksDatabasePath is the background task queue database.
	DefaultTasksDatabasePath = "./bookshelf-tasks.db"

	// DefaultEnvFile is loaded into the environment when present.
	DefaultEnvFile = ".env"
)
