// Package dynamo implements a durable backend that stores one item per key in an
// Amazon DynamoDB table.
//
// Table schema:
//   - Partition key: pk (string) - the store key
//   - Attribute: value (binary) - the store value
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name tkv-nvm \
//	  --attribute-definitions AttributeName=pk,AttributeType=S \
//	  --key-schema AttributeName=pk,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/tKV/lib/backend"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	keyAttribute   = "pk"
	defaultTable   = "tkv-nvm"
	defaultTimeout = 5 * time.Second
)

// Client is the subset of the DynamoDB API used by the backend
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Options configures the DynamoDB backend
type Options struct {
	// Table is the table name. Default: "tkv-nvm"
	Table string
	// Timeout bounds every single request. Default: 5s
	Timeout time.Duration
}

// item is the DynamoDB representation of one entry
type item struct {
	Key   string `dynamodbav:"pk"`
	Value []byte `dynamodbav:"value"`
}

// Backend stores entries in a DynamoDB table
type Backend struct {
	client Client
	opts   Options
}

// NewBackend creates a DynamoDB backend
func NewBackend(client Client, opts Options) *Backend {
	if opts.Table == "" {
		opts.Table = defaultTable
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Backend{
		client: client,
		opts:   opts,
	}
}

func (b *Backend) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		keyAttribute: &types.AttributeValueMemberS{Value: key},
	}
}

// Insert puts the item for key, overwriting any previous item
func (b *Backend) Insert(key string, value []byte) error {
	av, err := attributevalue.MarshalMap(item{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("dynamo backend: marshal item: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	if _, err := b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.opts.Table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("dynamo backend: put %q: %w", key, err)
	}
	return nil
}

// Get reads the item for key with a strongly consistent read
func (b *Backend) Get(key string, buf []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.opts.Table),
		Key:            b.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("dynamo backend: get %q: %w", key, err)
	}
	if len(out.Item) == 0 {
		return 0, backend.ErrNotFound
	}

	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return 0, fmt.Errorf("dynamo backend: unmarshal item: %w", err)
	}
	return backend.CopyOut(buf, it.Value)
}

// Delete removes the item for key. Deleting a missing item succeeds.
func (b *Backend) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.opts.Timeout)
	defer cancel()

	if _, err := b.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(b.opts.Table),
		Key:       b.key(key),
	}); err != nil {
		return fmt.Errorf("dynamo backend: delete %q: %w", key, err)
	}
	return nil
}

var _ backend.IBackend = (*Backend)(nil)
