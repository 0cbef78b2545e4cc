package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:         "3000",
		Env:          "development",
		JWTSecret:    "secure-secret-at-least-32-chars-long",
		DBDriver:     "postgres",
		DBPassword:   "secure-password",
		BlobBackend:  "local",
		BlobLocalDir: "/tmp/blobs",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Valid development config", func(*Config) {}, false},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Missing JWT secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Unknown DB driver", func(c *Config) { c.DBDriver = "oracle" }, true},
		{"SQLite driver", func(c *Config) { c.DBDriver = "sqlite" }, false},
		{"MySQL driver", func(c *Config) { c.DBDriver = "mysql" }, false},
		{"Unknown blob backend", func(c *Config) { c.BlobBackend = "s3" }, true},
		{"GCS without bucket", func(c *Config) { c.BlobBackend = "gcs" }, true},
		{"GCS with bucket", func(c *Config) { c.BlobBackend = "gcs"; c.GCSBucket = "photos" }, false},
		{"GridFS without URI", func(c *Config) { c.BlobBackend = "gridfs"; c.MongoURI = "" }, true},
		{"Local without dir", func(c *Config) { c.BlobLocalDir = "" }, true},
		{"Production default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = defaultJWTSecret }, true},
		{"Production short secret", func(c *Config) { c.Env = "production"; c.JWTSecret = "short" }, true},
		{"Production weak DB password", func(c *Config) { c.Env = "prod"; c.DBPassword = "password" }, true},
		{"Production sqlite ignores DB password", func(c *Config) {
			c.Env = "production"
			c.DBDriver = "sqlite"
			c.DBPassword = ""
		}, false},
		{"Production strong config", func(c *Config) { c.Env = "production" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	c := &Config{}
	assert.Equal(t, time.Hour, c.TokenTTL())
	assert.Equal(t, time.Hour, c.ResetTokenTTL())
	assert.Equal(t, int64(10*1024*1024), c.UploadMaxBytes())

	c.JWTTTLMinutes = 15
	c.ResetTokenTTLMinutes = 30
	c.UploadMaxSizeMB = 2
	assert.Equal(t, 15*time.Minute, c.TokenTTL())
	assert.Equal(t, 30*time.Minute, c.ResetTokenTTL())
	assert.Equal(t, int64(2*1024*1024), c.UploadMaxBytes())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_DRIVER")
	defer os.Unsetenv("BLOB_BACKEND")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")
	os.Setenv("DB_DRIVER", "  SQLITE ")
	os.Setenv("BLOB_BACKEND", "Local")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "local", c.BlobBackend)
	assert.Equal(t, "photos", c.GridFSBucket)
	assert.Equal(t, time.Hour, c.ResetSweepInterval)
}
