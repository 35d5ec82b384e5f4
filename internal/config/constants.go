package config

// Default paths for local state
const (
	// DefaultDatabasePath is the default path for the library database
	DefaultDatabasePath = "./data/lumina.db"

	// DefaultBlobCachePath is the default path for cached book content
	DefaultBlobCachePath = "./data/blobs.db"

	// DefaultSyncSchedule runs a round every 15 minutes
	DefaultSyncSchedule = "*/15 * * * *"
)
