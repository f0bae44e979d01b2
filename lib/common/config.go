package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/tKV/lib/dbm"
)

// --------------------------------------------------------------------------
// Backend types
// --------------------------------------------------------------------------

type BackendType string

const (
	BackendMemory BackendType = "memory"
	BackendFile   BackendType = "file"
	BackendDynamo BackendType = "dynamo"
	BackendMinio  BackendType = "minio"
	BackendS3     BackendType = "s3"
)

// BackendTypes lists all supported backends
var BackendTypes = []BackendType{BackendMemory, BackendFile, BackendDynamo, BackendMinio, BackendS3}

// ParseBackendType validates s and converts it to a BackendType
func ParseBackendType(s string) (BackendType, error) {
	for _, t := range BackendTypes {
		if string(t) == strings.ToLower(s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid backend %q (expected one of memory, file, dynamo, minio, s3)", s)
}

// --------------------------------------------------------------------------
// Store configuration struct
// --------------------------------------------------------------------------

// FileConfig configures the snapshot file backend
type FileConfig struct {
	DataDir string
	Codec   string
	Sync    bool
}

// ObjectStoreConfig configures the S3 compatible backends (minio, s3)
type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// DynamoConfig configures the DynamoDB backend
type DynamoConfig struct {
	Table    string
	Endpoint string
	Region   string
}

// StoreConfig holds all configuration parameters of a tkv store and its backend
type StoreConfig struct {
	Name string

	// table parameters
	Capacity       int
	MaxKeyLength   int
	MaxValueLength int
	LockTimeout    time.Duration
	StagedIO       bool

	// backend parameters
	Backend        BackendType
	BackendTimeout time.Duration
	File           FileConfig
	Dynamo         DynamoConfig
	ObjectStore    ObjectStoreConfig

	// Logging configuration
	LogLevel string
}

// ToStoreConfig converts the StoreConfig to the dbm.Config of the table
func (c *StoreConfig) ToStoreConfig() dbm.Config {
	return dbm.Config{
		Name:            c.Name,
		Capacity:        c.Capacity,
		MaxKeyLength:    c.MaxKeyLength,
		MaxValueLength:  c.MaxValueLength,
		LockTimeout:     c.LockTimeout,
		StagedBackendIO: c.StagedIO,
	}
}

// String returns a formatted string representation of the configuration.
// Secrets are never printed.
func (c *StoreConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	lockTimeout := c.LockTimeout.String()
	if c.LockTimeout < 0 {
		lockTimeout = "infinite"
	}

	addSection("Table")
	addField("Name", c.Name)
	addField("Capacity", strconv.Itoa(c.Capacity))
	addField("Max Key Length", fmt.Sprintf("%d bytes", c.MaxKeyLength))
	addField("Max Value Length", fmt.Sprintf("%d bytes", c.MaxValueLength))
	addField("Lock Timeout", lockTimeout)
	addField("Staged Backend I/O", strconv.FormatBool(c.StagedIO))

	addSection("Backend")
	addField("Type", string(c.Backend))
	addField("Timeout", c.BackendTimeout.String())

	switch c.Backend {
	case BackendFile:
		addField("Data Directory", c.File.DataDir)
		addField("Codec", c.File.Codec)
		addField("Sync", strconv.FormatBool(c.File.Sync))
	case BackendDynamo:
		addField("Table", c.Dynamo.Table)
		addField("Region", orDefault(c.Dynamo.Region))
		addField("Endpoint", orDefault(c.Dynamo.Endpoint))
	case BackendMinio, BackendS3:
		addField("Endpoint", orDefault(c.ObjectStore.Endpoint))
		addField("Region", orDefault(c.ObjectStore.Region))
		addField("Bucket", c.ObjectStore.Bucket)
		addField("Prefix", c.ObjectStore.Prefix)
		if c.Backend == BackendMinio {
			addField("Secure", strconv.FormatBool(c.ObjectStore.Secure))
		}
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
