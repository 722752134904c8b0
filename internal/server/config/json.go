package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sharekeeper/internal/flagx"
	"github.com/dmitrijs2005/sharekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "1m" and integer nanoseconds are accepted.
//
// Only keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	ServerSecret                *string         `json:"server_secret"`
	RequestTimeout              *timex.Duration `json:"request_timeout"`
	LogLevel                    *string         `json:"log_level"`
	RetractHasSharesOnDelete    *bool           `json:"retract_has_shares_on_delete"`
}

// parseJson loads configuration values from the JSON file named by the
// -c or -config flag. Without the flag nothing is loaded. An unreadable
// file or invalid JSON panics: the server must not start half-configured.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != nil {
		config.EndpointAddrHTTP = *c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.ServerSecret != nil {
		config.ServerSecret = *c.ServerSecret
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.LogLevel != nil {
		config.LogLevel = *c.LogLevel
	}
	if c.RetractHasSharesOnDelete != nil {
		config.RetractHasSharesOnDelete = *c.RetractHasSharesOnDelete
	}
}
