package common

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/lib/dbm"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
	assert.Error(t, InitLoggers("verbose"))
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerFactory(&buf)("dbm")

	l.Infof("hidden %d", 1)
	assert.Empty(t, buf.String(), "default level is warning")

	l.SetLevel(logger.DEBUG)
	l.Debugf("store %s ready", "test")
	assert.Contains(t, buf.String(), "DEBUG | dbm      | store test ready")

	buf.Reset()
	l.SetLevel(logger.ERROR)
	l.Warningf("dropped")
	l.Errorf("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "ERROR | dbm      | kept")
}

func TestParseBackendType(t *testing.T) {
	for _, bt := range BackendTypes {
		got, err := ParseBackendType(strings.ToUpper(string(bt)))
		require.NoError(t, err)
		assert.Equal(t, bt, got)
	}
	_, err := ParseBackendType("redis")
	assert.Error(t, err)
}

func TestStoreConfig(t *testing.T) {
	c := &StoreConfig{
		Name:           "cli",
		Capacity:       30,
		MaxKeyLength:   32,
		MaxValueLength: 64,
		LockTimeout:    dbm.InfiniteTimeout,
		Backend:        BackendMinio,
		BackendTimeout: 5 * time.Second,
		ObjectStore: ObjectStoreConfig{
			Endpoint:  "localhost:9000",
			Bucket:    "tkv",
			Prefix:    "nvm/",
			SecretKey: "super-secret",
		},
		LogLevel: "info",
	}

	dc := c.ToStoreConfig()
	assert.Equal(t, "cli", dc.Name)
	assert.Equal(t, 30, dc.Capacity)
	assert.Equal(t, dbm.InfiniteTimeout, dc.LockTimeout)

	out := c.String()
	assert.Contains(t, out, "TABLE")
	assert.Contains(t, out, "infinite")
	assert.Contains(t, out, "localhost:9000")
	assert.Contains(t, out, "Region                : (default)")
	assert.NotContains(t, out, "super-secret")
}
