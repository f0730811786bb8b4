package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-g", "eu-central-1", "-e", "http://127.0.0.1:8000",
			"-k", "local", "-s", "localsecret", "-x", "Dev_", "-u", "eu-central-1_xyz", "-t", "15",
		}, expectPanic: false,
			expected: &Config{
				EndpointAddr:       "127.0.0.1:9090",
				AWSRegion:          "eu-central-1",
				AWSEndpoint:        "http://127.0.0.1:8000",
				AWSAccessKeyID:     "local",
				AWSSecretAccessKey: "localsecret",
				TablePrefix:        "Dev_",
				UserPoolID:         "eu-central-1_xyz",
				ReadTimeout:        15 * time.Second,
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
