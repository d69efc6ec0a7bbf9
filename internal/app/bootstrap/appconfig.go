// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for the catalogue.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig keeps the
// framework-level settings (ports, TLS, logging, CORS, body limits).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Academic calendar
	MaxPostponeYears int // how far ahead trainings are extended

	// Background jobs
	PostponementInterval time.Duration // 0 disables the scheduled year postponement
	ClipboardTTL         time.Duration

	// Requests per minute and per user on postponement and import routes
	BatchRateLimit int

	// Audit logging: "all", "db", "log" or "off"
	AuditLogPostponement string
	AuditLogStructure    string

	// Operation timeouts; zero keeps the package defaults
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
	TimeoutBatch  time.Duration
}
