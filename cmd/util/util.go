package util

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ValentinKolb/tKV/lib/backend/dynamo"
	"github.com/ValentinKolb/tKV/lib/backend/file"
	"github.com/ValentinKolb/tKV/lib/backend/memory"
	miniobackend "github.com/ValentinKolb/tKV/lib/backend/minio"
	s3backend "github.com/ValentinKolb/tKV/lib/backend/s3"
	"github.com/ValentinKolb/tKV/lib/common"
	"github.com/ValentinKolb/tKV/lib/dbm"
	"github.com/ValentinKolb/tKV/lib/lockmgr"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the table and backend flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	// table
	key := "name"
	flags.String(key, "default", WrapString("Name of the store. Used for metric labels and the snapshot file name"))
	key = "capacity"
	flags.Int(key, dbm.DefaultCapacity, WrapString("Number of slots in the table"))
	key = "max-key-length"
	flags.Int(key, dbm.DefaultMaxKeyLength, WrapString("Maximum key length in bytes"))
	key = "max-value-length"
	flags.Int(key, dbm.DefaultMaxValueLength, WrapString("Maximum value length in bytes"))
	key = "lock-timeout"
	flags.Duration(key, dbm.InfiniteTimeout, WrapString("How long an operation waits for the table lock (negative waits forever, 0 tries once)"))
	key = "staged-io"
	flags.Bool(key, false, WrapString("Release the table lock while backend calls are in flight"))

	// backend
	key = "backend"
	flags.String(key, string(common.BackendFile), WrapString("Backend for NVM entries (memory, file, dynamo, minio, s3)"))
	key = "backend-timeout"
	flags.Duration(key, 10*time.Second, WrapString("Timeout of a single request to a remote backend"))
	key = "data-dir"
	flags.String(key, "./data", WrapString("Directory of the snapshot file (file backend)"))
	key = "codec"
	flags.String(key, "zstd", WrapString("Compression of the snapshot file (none, zstd, lz4)"))
	key = "sync"
	flags.Bool(key, true, WrapString("Whether to fsync the snapshot file after every write"))
	key = "dynamo-table"
	flags.String(key, "tkv-nvm", WrapString("DynamoDB table with a string partition key named pk"))
	key = "dynamo-endpoint"
	flags.String(key, "", WrapString("Custom DynamoDB endpoint (e.g. http://localhost:8000 for DynamoDB local)"))
	key = "region"
	flags.String(key, "", WrapString("AWS region, defaults to the region of the AWS SDK configuration"))
	key = "bucket"
	flags.String(key, "tkv", WrapString("Bucket for the minio and s3 backends"))
	key = "prefix"
	flags.String(key, "tkv/", WrapString("Object name prefix for the minio and s3 backends"))
	key = "endpoint"
	flags.String(key, "", WrapString("Object store endpoint. Required for minio (e.g. localhost:9000), optional for s3"))
	key = "access-key"
	flags.String(key, "", WrapString("Access key for the minio backend"))
	key = "secret-key"
	flags.String(key, "", WrapString("Secret key for the minio backend"))
	key = "secure"
	flags.Bool(key, false, WrapString("Use TLS for the minio backend"))

	key = "log-level"
	flags.String(key, "warn", WrapString("Log level (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("tkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() (*common.StoreConfig, error) {
	backendType, err := common.ParseBackendType(viper.GetString("backend"))
	if err != nil {
		return nil, err
	}

	conf := &common.StoreConfig{
		Name:           viper.GetString("name"),
		Capacity:       viper.GetInt("capacity"),
		MaxKeyLength:   viper.GetInt("max-key-length"),
		MaxValueLength: viper.GetInt("max-value-length"),
		LockTimeout:    viper.GetDuration("lock-timeout"),
		StagedIO:       viper.GetBool("staged-io"),
		Backend:        backendType,
		BackendTimeout: viper.GetDuration("backend-timeout"),
		File: common.FileConfig{
			DataDir: viper.GetString("data-dir"),
			Codec:   viper.GetString("codec"),
			Sync:    viper.GetBool("sync"),
		},
		Dynamo: common.DynamoConfig{
			Table:    viper.GetString("dynamo-table"),
			Endpoint: viper.GetString("dynamo-endpoint"),
			Region:   viper.GetString("region"),
		},
		ObjectStore: common.ObjectStoreConfig{
			Endpoint:  viper.GetString("endpoint"),
			Region:    viper.GetString("region"),
			Bucket:    viper.GetString("bucket"),
			Prefix:    viper.GetString("prefix"),
			AccessKey: viper.GetString("access-key"),
			SecretKey: viper.GetString("secret-key"),
			Secure:    viper.GetBool("secure"),
		},
		LogLevel: viper.GetString("log-level"),
	}

	return conf, nil
}

// --------------------------------------------------------------------------
// Store construction
// --------------------------------------------------------------------------

// OpenBackend creates the backend selected in conf
func OpenBackend(ctx context.Context, conf *common.StoreConfig) (dbm.Backend, error) {
	switch conf.Backend {
	case common.BackendMemory:
		return memory.NewBackend(), nil

	case common.BackendFile:
		codec, err := file.ParseCodec(conf.File.Codec)
		if err != nil {
			return nil, err
		}
		b, err := file.Open(file.Options{
			Path:  filepath.Join(conf.File.DataDir, conf.Name+".tkv"),
			Codec: codec,
			Sync:  conf.File.Sync,
		})
		if err != nil {
			return nil, err
		}
		return b, nil

	case common.BackendDynamo:
		cfg, err := loadAWSConfig(ctx, conf.Dynamo.Region)
		if err != nil {
			return nil, err
		}
		client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			if conf.Dynamo.Endpoint != "" {
				o.BaseEndpoint = aws.String(conf.Dynamo.Endpoint)
			}
		})
		return dynamo.NewBackend(client, dynamo.Options{
			Table:   conf.Dynamo.Table,
			Timeout: conf.BackendTimeout,
		}), nil

	case common.BackendS3:
		cfg, err := loadAWSConfig(ctx, conf.ObjectStore.Region)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			if conf.ObjectStore.Endpoint != "" {
				o.BaseEndpoint = aws.String(conf.ObjectStore.Endpoint)
				o.UsePathStyle = true
			}
		})
		return s3backend.NewBackend(client, s3backend.Options{
			Bucket:  conf.ObjectStore.Bucket,
			Prefix:  conf.ObjectStore.Prefix,
			Timeout: conf.BackendTimeout,
		}), nil

	case common.BackendMinio:
		if conf.ObjectStore.Endpoint == "" {
			return nil, fmt.Errorf("the minio backend requires --endpoint")
		}
		client, err := minio.New(conf.ObjectStore.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(conf.ObjectStore.AccessKey, conf.ObjectStore.SecretKey, ""),
			Secure: conf.ObjectStore.Secure,
			Region: conf.ObjectStore.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		b := miniobackend.NewBackend(client, miniobackend.Options{
			Bucket:  conf.ObjectStore.Bucket,
			Prefix:  conf.ObjectStore.Prefix,
			Timeout: conf.BackendTimeout,
		})
		if err := b.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("invalid backend %s", conf.Backend)
	}
}

// OpenStore creates and initializes a store with a local mutex and the configured backend.
// The backend is returned as well so callers can clean up keys the table no longer holds.
func OpenStore(ctx context.Context, conf *common.StoreConfig) (*dbm.Store, dbm.Backend, error) {
	b, err := OpenBackend(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	store, err := dbm.New(conf.ToStoreConfig())
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(dbm.NewCapabilities(lockmgr.NewLocalMutex(), b)); err != nil {
		return nil, nil, err
	}
	return store, b, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return cfg, nil
}
