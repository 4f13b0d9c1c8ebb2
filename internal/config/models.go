package config

import (
	"errors"
	"time"
)

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	ListenAddress   string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the record store backend
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// GoogleConfig is the OAuth client used to exchange refresh tokens
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NERConfig configures the entity recognition service
type NERConfig struct {
	Endpoint    string
	APIToken    string
	Timeout     time.Duration
	MaxAttempts int
}

// ExtractorConfig maps entity types onto record fields
type ExtractorConfig struct {
	CompanyEntity  string
	PositionEntity string
}

// SyncConfig configures the mailbox ingestion pipeline and its scheduler
type SyncConfig struct {
	Enabled        bool
	Interval       time.Duration
	MaxResults     int
	UserTimeout    time.Duration
	MessageTimeout time.Duration
	FetchAttempts  int
	RunOnStart     bool
}

// GetServer returns the server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		AllowedOrigins:  c.GetStringSlice("server.allowed_origins"),
		ShutdownTimeout: timeout,
	}, nil
}

// GetDatabase returns the database configuration
func (c *Config) GetDatabase() DatabaseConfig {
	return DatabaseConfig{
		Driver: c.GetString("database.driver"),
		DSN:    c.GetString("database.dsn"),
	}
}

// GetGoogle returns the Google OAuth client configuration
func (c *Config) GetGoogle() GoogleConfig {
	return GoogleConfig{
		ClientID:     c.GetString("google.client_id"),
		ClientSecret: c.GetString("google.client_secret"),
		RedirectURL:  c.GetString("google.redirect_url"),
	}
}

// GetNER returns the entity recognition service configuration
func (c *Config) GetNER() (NERConfig, error) {
	timeout, err := c.GetDuration("ner.timeout")
	if err != nil {
		return NERConfig{}, err
	}
	attempts := c.GetInt("ner.max_attempts")
	if attempts < 1 {
		attempts = 1
	}
	return NERConfig{
		Endpoint:    c.GetString("ner.endpoint"),
		APIToken:    c.GetString("ner.api_token"),
		Timeout:     timeout,
		MaxAttempts: attempts,
	}, nil
}

// GetExtractor returns the entity-to-field mapping
func (c *Config) GetExtractor() ExtractorConfig {
	return ExtractorConfig{
		CompanyEntity:  c.GetString("extractor.company_entity"),
		PositionEntity: c.GetString("extractor.position_entity"),
	}
}

// GetSync returns the sync pipeline configuration
func (c *Config) GetSync() (SyncConfig, error) {
	interval, err := c.GetDuration("sync.interval")
	if err != nil {
		return SyncConfig{}, err
	}
	if interval <= 0 {
		return SyncConfig{}, errors.New("sync.interval must be positive")
	}
	userTimeout, err := c.GetDuration("sync.user_timeout")
	if err != nil {
		return SyncConfig{}, err
	}
	messageTimeout, err := c.GetDuration("sync.message_timeout")
	if err != nil {
		return SyncConfig{}, err
	}
	attempts := c.GetInt("sync.fetch_attempts")
	if attempts < 1 {
		attempts = 1
	}
	return SyncConfig{
		Enabled:        c.GetBool("sync.enabled"),
		Interval:       interval,
		MaxResults:     c.GetInt("sync.max_results"),
		UserTimeout:    userTimeout,
		MessageTimeout: messageTimeout,
		FetchAttempts:  attempts,
		RunOnStart:     c.GetBool("sync.run_on_start"),
	}, nil
}
