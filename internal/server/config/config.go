// Package config handles configuration for the sessiond server, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the sessiond server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - DatabaseDSN: postgres:// DSN (pgx) or a sqlite file path.
//   - RedisAddr: optional; when set, refresh tokens are stored in Redis
//     instead of the SQL database.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Loaded once at
//     startup; changing it invalidates all previously issued access tokens.
//   - AccessTokenValidityDuration: access-token lifetime.
//   - TimeZone: IANA zone used for the human-readable expiry returned to
//     clients; the token's internal expiry is always epoch time.
type Config struct {
	EndpointAddr                string
	DatabaseDSN                 string
	RedisAddr                   string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	TimeZone                    string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = "sessiond.db"
	c.RedisAddr = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.TimeZone = "UTC"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
