// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the RunaVault server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP API.
//   - AWSRegion: region for the DynamoDB and Cognito clients.
//   - AWSEndpoint: optional endpoint override for local development
//     (DynamoDB Local, cognito-local). Empty means the real AWS endpoints.
//   - AWSAccessKeyID / AWSSecretAccessKey: static credentials, only used
//     together with an endpoint override; empty falls back to the default
//     credential chain.
//   - TablePrefix: prefix for the passwords table name.
//   - GroupIndex / UserIndex: GSI names for the shared-with lookups.
//   - UserPoolID: Cognito user pool the tokens are verified against.
//   - ReadTimeout: HTTP read-header timeout.
type Config struct {
	EndpointAddr       string
	AWSRegion          string
	AWSEndpoint        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	TablePrefix        string
	GroupIndex         string
	UserIndex          string
	UserPoolID         string
	ReadTimeout        time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.AWSRegion = "us-east-1"
	c.AWSEndpoint = ""
	c.AWSAccessKeyID = ""
	c.AWSSecretAccessKey = ""
	c.TablePrefix = "RunaVault_"
	c.GroupIndex = "shared_with_groups-index"
	c.UserIndex = "shared_with_users-index"
	c.UserPoolID = ""
	c.ReadTimeout = 10 * time.Second
}

// TableName is the full passwords table name.
func (c *Config) TableName() string {
	return c.TablePrefix + "passwords"
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
