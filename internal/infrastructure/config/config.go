package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Authentication modes accepted by security.mode.
const (
	AuthModeAPIKey      = "api_key"
	AuthModeJWT         = "jwt"
	AuthModeIPAllowlist = "ip_allowlist"
)

// Config is the root configuration structure for the gateway.
// Values come from YAML and can be overridden by APIWS_* environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Projects  []ProjectConfig `yaml:"projects"`
}

// ServiceConfig identifies this deployment.
type ServiceConfig struct {
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
// An empty AllowedOrigins list reflects any origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains socket relay settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
	SendBuffer     int    `yaml:"send_buffer"`

	// MessageRate is the sustained number of inbound frames per second a
	// single connection may send; MessageBurst is the bucket depth.
	MessageRate  float64 `yaml:"message_rate"`
	MessageBurst int     `yaml:"message_burst"`

	// RequireAuthForSend rejects "send" frames from sessions that have not
	// completed the authenticate handshake.
	RequireAuthForSend bool `yaml:"require_auth_for_send"`
}

// MQTTConfig contains settings for the optional MQTT event mirror.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains reconnection back-off settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// RedisConfig contains settings for the rate-limit statistics store.
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Prefix    string `yaml:"prefix"`
	TTLHours  int    `yaml:"ttl_hours"`
	TrackKeys bool   `yaml:"track_keys"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig selects the request authenticator and holds its settings.
type SecurityConfig struct {
	// Mode is one of api_key, jwt or ip_allowlist.
	Mode string `yaml:"mode"`

	// AdminKey guards the project listing and test emit endpoints
	// (x-admin-key header). Empty disables those endpoints.
	AdminKey string `yaml:"admin_key"`

	// AllowClientRoleAssertion lets a socket client request the admin role
	// in its authenticate frame. When false only elevated projects are admin.
	AllowClientRoleAssertion bool `yaml:"allow_client_role_assertion"`

	JWT         JWTConfig         `yaml:"jwt"`
	Users       []UserConfig      `yaml:"users"`
	IPAllowlist IPAllowlistConfig `yaml:"ip_allowlist"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// UserConfig is a login account for the jwt mode.
// PasswordHash is an argon2id PHC string.
type UserConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
	Project      string `yaml:"project"`
}

// IPAllowlistConfig configures the ip_allowlist mode.
type IPAllowlistConfig struct {
	Addresses []string `yaml:"addresses"`
	// Project is the key of the project every allowed address acts as.
	Project string `yaml:"project"`
	// TrustedProxies lists peers (addresses or CIDR blocks) whose
	// X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// RateLimitConfig contains limiter housekeeping settings.
// Quotas themselves are per project.
type RateLimitConfig struct {
	Enabled       bool `yaml:"enabled"`
	SweepInterval int  `yaml:"sweep_interval"` // seconds
}

// ProjectConfig declares one tenant.
type ProjectConfig struct {
	Key            string                 `yaml:"key"`
	Name           string                 `yaml:"name"`
	Domain         string                 `yaml:"domain"`
	AllowedOrigins []string               `yaml:"allowed_origins"`
	RateLimit      ProjectRateLimitConfig `yaml:"rate_limit"`
	Features       []string               `yaml:"features"`
	Elevated       bool                   `yaml:"elevated"`
}

// ProjectRateLimitConfig is a project's quota. Window uses the
// <n><s|m|h|d> notation, e.g. "15m" or "1h".
type ProjectRateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

// Load reads configuration from a YAML file and applies environment overrides.
//
// The loading order is:
//  1. Default values
//  2. YAML file values
//  3. APIWS_* environment variables
//
// Default projects are only installed when the file declares none.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if len(cfg.Projects) == 0 {
		cfg.Projects = DefaultProjects()
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "api-websocket-messages",
		},
		Database: DatabaseConfig{
			Path:        "./data/messages.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 16384,
			PingInterval:   25,
			PongTimeout:    20,
			SendBuffer:     256,
			MessageRate:    10,
			MessageBurst:   20,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "api-websocket-messages",
			},
			QoS:         1,
			TopicPrefix: "apiws",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Prefix:   "apiws:ratelimit",
			TTLHours: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			Mode: AuthModeAPIKey,
			JWT: JWTConfig{
				AccessTokenTTL: 24 * 60,
			},
			RateLimit: RateLimitConfig{
				Enabled:       true,
				SweepInterval: 60,
			},
		},
	}
}

// DefaultProjects returns the two tenants the service shipped with.
func DefaultProjects() []ProjectConfig {
	origins := []string{"https://api-websocket-messages.vercel.app"}
	return []ProjectConfig{
		{
			Key:            "proj_abc123def456_project1",
			Name:           "Proyecto Web Principal",
			Domain:         "mi-proyecto-web.com",
			AllowedOrigins: origins,
			RateLimit:      ProjectRateLimitConfig{Requests: 1000, Window: "1h"},
			Features:       []string{"read", "write", "delete"},
		},
		{
			Key:            "proj_xyz789ghi012_project2",
			Name:           "Aplicación Móvil",
			Domain:         "mi-app-movil.com",
			AllowedOrigins: origins,
			RateLimit:      ProjectRateLimitConfig{Requests: 500, Window: "1h"},
			Features:       []string{"read", "write"},
			Elevated:       true,
		},
	}
}

// applyEnvOverrides applies APIWS_SECTION_KEY environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APIWS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("APIWS_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("APIWS_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("APIWS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("APIWS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("APIWS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("APIWS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("APIWS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("APIWS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("APIWS_AUTH_MODE"); v != "" {
		cfg.Security.Mode = v
	}
	if v := os.Getenv("APIWS_ADMIN_KEY"); v != "" {
		cfg.Security.AdminKey = v
	}
	if v := os.Getenv("APIWS_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.WebSocket.MaxMessageSize <= 0 {
		errs = append(errs, "websocket.max_message_size must be positive")
	}
	if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongTimeout <= 0 {
		errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	errs = append(errs, c.validateProjects()...)
	errs = append(errs, c.validateSecurity()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func (c *Config) validateProjects() []string {
	var errs []string
	if len(c.Projects) == 0 {
		errs = append(errs, "at least one project is required")
	}
	seen := make(map[string]bool, len(c.Projects))
	for i, p := range c.Projects {
		if p.Key == "" {
			errs = append(errs, fmt.Sprintf("projects[%d].key is required", i))
			continue
		}
		if seen[p.Key] {
			errs = append(errs, fmt.Sprintf("projects[%d].key %q is duplicated", i, p.Key))
		}
		seen[p.Key] = true
		if p.RateLimit.Requests <= 0 {
			errs = append(errs, fmt.Sprintf("projects[%d].rate_limit.requests must be positive", i))
		}
	}
	return errs
}

func (c *Config) validateSecurity() []string {
	var errs []string

	switch c.Security.Mode {
	case AuthModeAPIKey:
	case AuthModeJWT:
		const minJWTSecretLength = 32
		if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters in jwt mode (set APIWS_JWT_SECRET)")
		}
		if len(c.Security.Users) == 0 {
			errs = append(errs, "security.users must list at least one account in jwt mode")
		}
		for i, u := range c.Security.Users {
			if u.Username == "" || u.PasswordHash == "" {
				errs = append(errs, fmt.Sprintf("security.users[%d] needs username and password_hash", i))
			}
			if !c.hasProject(u.Project) {
				errs = append(errs, fmt.Sprintf("security.users[%d].project %q is not a configured project", i, u.Project))
			}
		}
	case AuthModeIPAllowlist:
		if len(c.Security.IPAllowlist.Addresses) == 0 {
			errs = append(errs, "security.ip_allowlist.addresses is required in ip_allowlist mode")
		}
		if !c.hasProject(c.Security.IPAllowlist.Project) {
			errs = append(errs, "security.ip_allowlist.project must name a configured project")
		}
		for i, p := range c.Security.IPAllowlist.TrustedProxies {
			if !validProxy(p) {
				errs = append(errs, fmt.Sprintf("security.ip_allowlist.trusted_proxies[%d] %q is not an address or CIDR block", i, p))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("security.mode %q must be api_key, jwt or ip_allowlist", c.Security.Mode))
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.SweepInterval <= 0 {
		errs = append(errs, "security.rate_limit.sweep_interval must be positive")
	}

	return errs
}

func (c *Config) hasProject(key string) bool {
	for _, p := range c.Projects {
		if p.Key == key {
			return true
		}
	}
	return false
}

// validProxy reports whether s is an IP address or a CIDR block.
func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetSweepInterval returns how often stale rate-limit buckets are evicted.
func (c *Config) GetSweepInterval() time.Duration {
	return time.Duration(c.Security.RateLimit.SweepInterval) * time.Second
}
