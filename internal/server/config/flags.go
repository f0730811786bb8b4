package config

import (
	"flag"
	"os"
	"time"

	"github.com/runavault/runavault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   AWS region
//	-e string   AWS endpoint override (e.g., "http://127.0.0.1:8000")
//	-k string   AWS access key id (local dev)
//	-s string   AWS secret access key (local dev)
//	-x string   table name prefix
//	-u string   Cognito user pool id
//	-t int      HTTP read timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-e", "-k", "-s", "-x", "-u", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.AWSEndpoint, "e", config.AWSEndpoint, "AWS endpoint override")
	fs.StringVar(&config.AWSAccessKeyID, "k", config.AWSAccessKeyID, "AWS access key id")
	fs.StringVar(&config.AWSSecretAccessKey, "s", config.AWSSecretAccessKey, "AWS secret access key")
	fs.StringVar(&config.TablePrefix, "x", config.TablePrefix, "table name prefix")
	fs.StringVar(&config.UserPoolID, "u", config.UserPoolID, "Cognito user pool id")

	readTimeout := fs.Int("t", int(config.ReadTimeout.Seconds()), "read timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ReadTimeout = time.Duration(*readTimeout) * time.Second
}
