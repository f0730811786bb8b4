package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/runavault/runavault/internal/flagx"
	"github.com/runavault/runavault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "10s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr       string         `json:"endpoint_addr"`
	AWSRegion          string         `json:"aws_region"`
	AWSEndpoint        string         `json:"aws_endpoint"`
	AWSAccessKeyID     string         `json:"aws_access_key_id"`
	AWSSecretAccessKey string         `json:"aws_secret_access_key"`
	TablePrefix        string         `json:"table_prefix"`
	GroupIndex         string         `json:"group_index"`
	UserIndex          string         `json:"user_index"`
	UserPoolID         string         `json:"user_pool_id"`
	ReadTimeout        timex.Duration `json:"read_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. An unreadable or
// invalid file panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.AWSRegion = c.AWSRegion
	config.AWSEndpoint = c.AWSEndpoint
	config.AWSAccessKeyID = c.AWSAccessKeyID
	config.AWSSecretAccessKey = c.AWSSecretAccessKey
	config.TablePrefix = c.TablePrefix
	config.GroupIndex = c.GroupIndex
	config.UserIndex = c.UserIndex
	config.UserPoolID = c.UserPoolID
	config.ReadTimeout = time.Duration(c.ReadTimeout.Duration)
}
