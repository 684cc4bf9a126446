package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/secrets"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Storage       StorageConfig
	Secrets       SecretsConfig
	Email         EmailConfig
	Notifications NotificationsConfig
	Shipping      ShippingConfig
	Documents     DocumentsConfig
	Jobs          JobsConfig
	Logging       LoggingConfig
	Server        ServerConfig
	CORS          CORSConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
	// PublicURL is the base URL of the web application, used for links in emails
	PublicURL string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// AuthConfig configures access token validation and the integration API key
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
	// TokenTTLMinutes is the lifetime of tokens issued by the admin CLI
	TokenTTLMinutes int
	APIKey          string
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
	// SignedURLTTL is the lifetime of download links in seconds
	SignedURLTTL int
	// SigningSecret signs local download links; defaults to the JWT secret
	SigningSecret string
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

// EmailConfig configures transactional email delivery
type EmailConfig struct {
	// Mode is "smtp" or "log"
	Mode        string
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
	UseTLS      bool
	// QueueSize bounds the number of emails waiting for delivery
	QueueSize int
	Workers   int
	// SendTimeout is the per-email delivery timeout in seconds
	SendTimeout int
}

// NotificationsConfig configures realtime fan-out of notifications
type NotificationsConfig struct {
	// NatsURL enables cross-replica fan-out when set
	NatsURL string
	// NatsSubject is the subject prefix; the user ID is appended
	NatsSubject string
	// HeartbeatSeconds is the SSE keep-alive interval
	HeartbeatSeconds int
	// SubscriberBuffer is the per-connection event buffer
	SubscriberBuffer int
	// RetentionDays controls how long read notifications are kept
	RetentionDays int
}

type ShippingConfig struct {
	MaxWeightKg float64
}

// DocumentsConfig holds the issuer details printed on quotes and invoices
type DocumentsConfig struct {
	VATRate        float64
	CompanyName    string
	CompanyAddress string
	CompanyNIF     string
	CompanyRC      string
	CompanyEmail   string
	Currency       string
}

// JobsConfig holds cron specs (with seconds) for background jobs
type JobsConfig struct {
	Enabled                bool
	CloseExpiredQuotes     string
	PurgeReadNotifications string
	JobTimeoutSeconds      int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	BurstSize             int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// TokenTTL returns the issued token lifetime
func (a *AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

// SignedURLTTLDuration returns the download link lifetime
func (s *StorageConfig) SignedURLTTLDuration() time.Duration {
	return time.Duration(s.SignedURLTTL) * time.Second
}

// SendTimeoutDuration returns the per-email delivery timeout
func (e *EmailConfig) SendTimeoutDuration() time.Duration {
	return time.Duration(e.SendTimeout) * time.Second
}

// HeartbeatDuration returns the SSE keep-alive interval
func (n *NotificationsConfig) HeartbeatDuration() time.Duration {
	return time.Duration(n.HeartbeatSeconds) * time.Second
}

// RetentionDuration returns how long read notifications are kept
func (n *NotificationsConfig) RetentionDuration() time.Duration {
	return time.Duration(n.RetentionDays) * 24 * time.Hour
}

// JobTimeoutDuration returns the maximum run time of one job execution
func (j *JobsConfig) JobTimeoutDuration() time.Duration {
	return time.Duration(j.JobTimeoutSeconds) * time.Second
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if cfg.Storage.SigningSecret == "" {
		cfg.Storage.SigningSecret = cfg.Auth.JWTSecret
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or
// production; otherwise secrets come from environment variables.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	if err := applySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

// secretSource is the subset of the secrets provider used to overlay configuration
type secretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error)
}

// applySecrets overlays vault secrets onto the configuration. Missing secrets keep
// the value already loaded from the environment.
func applySecrets(ctx context.Context, cfg *Config, provider secretSource) error {
	overlay := []struct {
		secret string
		env    string
		target *string
	}{
		{"POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host},
		{"POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User},
		{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password},
		{"jwt-secret", "JWT_SECRET", &cfg.Auth.JWTSecret},
		{"admin-api-key", "ADMIN_API_KEY", &cfg.Auth.APIKey},
		{"smtp-password", "EMAIL_PASSWORD", &cfg.Email.Password},
		{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", &cfg.Storage.CloudConnectionString},
		{"storage-signing-secret", "STORAGE_SIGNINGSECRET", &cfg.Storage.SigningSecret},
	}

	for _, item := range overlay {
		value, err := provider.GetSecretOrEnv(ctx, item.secret, item.env)
		if err != nil {
			continue
		}
		if value != "" {
			*item.target = value
		}
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is not configured")
	}
	if cfg.Storage.SigningSecret == "" {
		cfg.Storage.SigningSecret = cfg.Auth.JWTSecret
	}
	if dbName := os.Getenv("DEFAULT_DATABASE"); dbName != "" {
		cfg.Database.Name = dbName
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "CNC Marketplace API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.publicURL", "http://localhost:3000")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "marketplace")
	v.SetDefault("database.user", "marketplace_user")
	v.SetDefault("database.password", "marketplace_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Auth defaults
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.tokenTTLMinutes", 60)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	// Storage defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "marketplace-files")
	v.SetDefault("storage.maxUploadSizeMB", 50)
	v.SetDefault("storage.signedURLTTL", 900)

	// Email defaults
	v.SetDefault("email.mode", "log")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.fromAddress", "noreply@atelier.dz")
	v.SetDefault("email.fromName", "Atelier DZ")
	v.SetDefault("email.useTLS", true)
	v.SetDefault("email.queueSize", 256)
	v.SetDefault("email.workers", 2)
	v.SetDefault("email.sendTimeout", 15)

	// Notification defaults
	v.SetDefault("notifications.natsSubject", "marketplace.notifications")
	v.SetDefault("notifications.heartbeatSeconds", 25)
	v.SetDefault("notifications.subscriberBuffer", 16)
	v.SetDefault("notifications.retentionDays", 90)

	// Shipping defaults
	v.SetDefault("shipping.maxWeightKg", 1000)

	// Document defaults
	v.SetDefault("documents.vatRate", 0.19)
	v.SetDefault("documents.companyName", "Atelier DZ SARL")
	v.SetDefault("documents.companyAddress", "Alger, Algérie")
	v.SetDefault("documents.currency", "DZD")

	// Job defaults (cron with seconds)
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.closeExpiredQuotes", "0 */5 * * * *")
	v.SetDefault("jobs.purgeReadNotifications", "0 30 3 * * *")
	v.SetDefault("jobs.jobTimeoutSeconds", 120)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 0) // SSE streams stay open
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 240)
	v.SetDefault("rateLimit.burstSize", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready", "/metrics"})

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
