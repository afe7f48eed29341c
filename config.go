package formadmin

import (
	"strings"
	"time"
)

// Config consolidates settings for the admin server and its collaborators
type Config struct {
	Database DatabaseConfig `json:"database"`
	Query    QueryConfig    `json:"query"`
	Admin    AdminConfig    `json:"admin"`
	Upload   UploadConfig   `json:"upload"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Database        string        `json:"database"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"sslMode"`
	MaxConnections  int           `json:"maxConnections"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime"`
	Timeout         time.Duration `json:"timeout"`
	// UseIAM replaces Password with a short-lived Aurora DSQL auth token per connection.
	UseIAM bool   `json:"useIAM"`
	Region string `json:"region"`
}

// QueryConfig contains list paging settings
type QueryConfig struct {
	DefaultTimeout  time.Duration `json:"defaultTimeout"`
	DefaultPageSize int           `json:"defaultPageSize"`
	MaxPageSize     int           `json:"maxPageSize"`
}

// AdminConfig contains routing and model definition settings
type AdminConfig struct {
	RoutePrefix    string `json:"routePrefix"`
	ModelDirectory string `json:"modelDirectory"`
	// WebRoot is the directory relative upload paths are resolved against.
	WebRoot string `json:"webRoot"`
}

// UploadBackend selects the FileStore implementation.
type UploadBackend string

const (
	UploadBackendLocal UploadBackend = "local"
	UploadBackendS3    UploadBackend = "s3"
)

// UploadConfig contains upload storage settings
type UploadConfig struct {
	Backend       UploadBackend `json:"backend"`
	MaxUploadSize int64         `json:"maxUploadSize"`
	S3            S3Config      `json:"s3"`
}

// S3Config contains object storage settings for the s3 upload backend
type S3Config struct {
	Bucket       string `json:"bucket"`
	Region       string `json:"region"`
	Endpoint     string `json:"endpoint"`
	Prefix       string `json:"prefix"`
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	UsePathStyle bool   `json:"usePathStyle"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	IdleTimeout     time.Duration `json:"idleTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "formadmin",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		Query: QueryConfig{
			DefaultTimeout:  30 * time.Second,
			DefaultPageSize: 10,
			MaxPageSize:     100,
		},
		Admin: AdminConfig{
			RoutePrefix:    "/admin",
			ModelDirectory: "models",
			WebRoot:        "web",
		},
		Upload: UploadConfig{
			Backend:       UploadBackendLocal,
			MaxUploadSize: 10 << 20,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Database.UseIAM && c.Database.Region == "" {
		return &ConfigError{Field: "database.region", Message: "is required when useIAM is enabled"}
	}

	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}

	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return &ConfigError{Field: "query.maxPageSize", Message: "must be greater than or equal to defaultPageSize"}
	}

	if !strings.HasPrefix(c.Admin.RoutePrefix, "/") || strings.HasSuffix(c.Admin.RoutePrefix, "/") {
		return &ConfigError{Field: "admin.routePrefix", Message: "must start with '/' and must not end with '/'"}
	}

	if c.Admin.ModelDirectory == "" {
		return &ConfigError{Field: "admin.modelDirectory", Message: "is required"}
	}

	switch c.Upload.Backend {
	case UploadBackendLocal:
		if c.Admin.WebRoot == "" {
			return &ConfigError{Field: "admin.webRoot", Message: "is required for the local upload backend"}
		}
	case UploadBackendS3:
		if c.Upload.S3.Bucket == "" {
			return &ConfigError{Field: "upload.s3.bucket", Message: "is required for the s3 upload backend"}
		}
		if (c.Upload.S3.AccessKey == "") != (c.Upload.S3.SecretKey == "") {
			return &ConfigError{Field: "upload.s3.accessKey", Message: "accessKey and secretKey must be set together"}
		}
	default:
		return &ConfigError{Field: "upload.backend", Message: "must be one of local, s3"}
	}

	if c.Upload.MaxUploadSize <= 0 {
		return &ConfigError{Field: "upload.maxUploadSize", Message: "must be greater than 0"}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be a valid TCP port"}
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be one of json, console"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
