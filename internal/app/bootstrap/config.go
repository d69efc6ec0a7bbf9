// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys of the catalogue.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, max_postpone_years, etc.
//   - Environment variables: CATALOG_MONGO_URI, CATALOG_MAX_POSTPONE_YEARS, etc.
//   - Command-line flags: --mongo_uri, --max_postpone_years, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "catalog", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "max_postpone_years", Default: 6, Desc: "Number of academic years ahead of the current one that trainings are extended to"},

	// Background jobs
	{Name: "postponement_interval", Default: "24h", Desc: "Interval of the scheduled year postponement (0 disables it)"},
	{Name: "clipboard_ttl", Default: "24h", Desc: "Lifetime of a clipboard selection"},
	{Name: "batch_rate_limit", Default: 10, Desc: "Requests per minute and per user on postponement and import routes"},

	// Audit logging settings
	{Name: "audit_log_postponement", Default: "all", Desc: "Postponement event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_structure", Default: "all", Desc: "Structure event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout of single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout of multi-document operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout of tree-wide operations"},
	{Name: "timeout_batch", Default: "30m", Desc: "Timeout of batch postponements and imports"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CATALOG_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}
	return coreCfg, AppConfigFrom(appValues), nil
}

// EnvPrefix prefixes the environment variables of the catalogue.
const EnvPrefix = "CATALOG"

// AppConfigKeys returns the keys LoadConfig reads, for tools that extend
// them with their own.
func AppConfigKeys() []config.AppKey {
	return append([]config.AppKey(nil), appConfigKeys...)
}

// Values is the subset of WAFFLE's loaded app values AppConfigFrom reads.
type Values interface {
	String(name string) string
	Int(name string) int
	Duration(name string, def time.Duration) time.Duration
}

// AppConfigFrom builds an AppConfig from loaded values.
func AppConfigFrom(v Values) AppConfig {
	return AppConfig{
		MongoURI:         v.String("mongo_uri"),
		MongoDatabase:    v.String("mongo_database"),
		MongoMaxPoolSize: uint64(v.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(v.Int("mongo_min_pool_size")),

		MaxPostponeYears: v.Int("max_postpone_years"),

		PostponementInterval: v.Duration("postponement_interval", 24*time.Hour),
		ClipboardTTL:         v.Duration("clipboard_ttl", 24*time.Hour),
		BatchRateLimit:       v.Int("batch_rate_limit"),

		AuditLogPostponement: v.String("audit_log_postponement"),
		AuditLogStructure:    v.String("audit_log_structure"),

		TimeoutShort:  v.Duration("timeout_short", 0),
		TimeoutMedium: v.Duration("timeout_medium", 0),
		TimeoutLong:   v.Duration("timeout_long", 0),
		TimeoutBatch:  v.Duration("timeout_batch", 0),
	}
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked to catch configuration errors early,
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}
	if appCfg.MaxPostponeYears < 1 {
		return fmt.Errorf("max_postpone_years must be at least 1, got %d", appCfg.MaxPostponeYears)
	}
	if appCfg.PostponementInterval < 0 {
		return fmt.Errorf("postponement_interval must not be negative")
	}
	if appCfg.BatchRateLimit < 1 {
		return fmt.Errorf("batch_rate_limit must be at least 1")
	}
	if appCfg.ClipboardTTL <= 0 {
		return fmt.Errorf("clipboard_ttl must be positive")
	}
	for name, v := range map[string]string{
		"audit_log_postponement": appCfg.AuditLogPostponement,
		"audit_log_structure":    appCfg.AuditLogStructure,
	} {
		if !auditModes[v] {
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", name, v)
		}
	}
	return nil
}
