package dynamo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/lib/backend"
	backendtesting "github.com/ValentinKolb/tKV/lib/backend/testing"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory stand-in for the DynamoDB API
type fakeClient struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
	err    error
	ctxs   []context.Context
}

func newFakeClient() *fakeClient {
	return &fakeClient{tables: make(map[string]map[string]map[string]types.AttributeValue)}
}

func pkOf(m map[string]types.AttributeValue) string {
	return m[keyAttribute].(*types.AttributeValueMemberS).Value
}

func (f *fakeClient) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxs = append(f.ctxs, ctx)
	if f.err != nil {
		return nil, f.err
	}
	table := aws.ToString(in.TableName)
	if f.tables[table] == nil {
		f.tables[table] = make(map[string]map[string]types.AttributeValue)
	}
	f.tables[table][pkOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxs = append(f.ctxs, ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.tables[aws.ToString(in.TableName)][pkOf(in.Key)]}, nil
}

func (f *fakeClient) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxs = append(f.ctxs, ctx)
	if f.err != nil {
		return nil, f.err
	}
	delete(f.tables[aws.ToString(in.TableName)], pkOf(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func Test(t *testing.T) {
	backendtesting.RunBackendTests(t, "DynamoDB(fake)", func() backend.IBackend {
		return NewBackend(newFakeClient(), Options{})
	})
}

func TestDefaults(t *testing.T) {
	b := NewBackend(newFakeClient(), Options{})
	assert.Equal(t, defaultTable, b.opts.Table)
	assert.Equal(t, defaultTimeout, b.opts.Timeout)
}

func TestItemLayout(t *testing.T) {
	client := newFakeClient()
	b := NewBackend(client, Options{Table: "custom"})
	require.NoError(t, b.Insert("k1", []byte("v1")))

	stored := client.tables["custom"]["k1"]
	require.NotNil(t, stored)
	value, ok := stored["value"].(*types.AttributeValueMemberB)
	require.True(t, ok, "value should be stored as binary attribute")
	assert.Equal(t, []byte("v1"), value.Value)
}

func TestRequestsCarryDeadline(t *testing.T) {
	client := newFakeClient()
	b := NewBackend(client, Options{Timeout: time.Minute})
	require.NoError(t, b.Insert("k", []byte("v")))
	_, _ = b.Get("k", make([]byte, 4))
	require.NoError(t, b.Delete("k"))

	require.Len(t, client.ctxs, 3)
	for _, ctx := range client.ctxs {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
	}
}

func TestClientErrors(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("throttled")
	b := NewBackend(client, Options{})

	assert.ErrorIs(t, b.Insert("k", []byte("v")), client.err)
	_, err := b.Get("k", make([]byte, 4))
	assert.ErrorIs(t, err, client.err)
	assert.NotErrorIs(t, err, backend.ErrNotFound)
	assert.ErrorIs(t, b.Delete("k"), client.err)
}
