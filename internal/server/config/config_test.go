package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.EndpointAddr, ":8080")
	assert.Equal(t, c.AWSRegion, "us-east-1")
	assert.Equal(t, c.AWSEndpoint, "")
	assert.Equal(t, c.TablePrefix, "RunaVault_")
	assert.Equal(t, c.GroupIndex, "shared_with_groups-index")
	assert.Equal(t, c.UserIndex, "shared_with_users-index")
	assert.Equal(t, c.ReadTimeout, 10*time.Second)
}

func TestTableName(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "RunaVault_passwords", c.TableName())

	c.TablePrefix = "Dev_"
	assert.Equal(t, "Dev_passwords", c.TableName())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.EndpointAddr, ":8080")
	assert.Equal(t, c.AWSRegion, "us-east-1")
	assert.Equal(t, c.TablePrefix, "RunaVault_")
	assert.Equal(t, c.ReadTimeout, 10*time.Second)
}
