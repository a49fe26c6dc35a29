package preferences

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data   map[string]string
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return errors.New("unsupported value")
	}
	return nil
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.data[key], nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := NewRedisStore(kv, "shop")

	_, ok, err := store.GetCity(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	city := City{ID: "c1", Name: "Campinas", UF: "SP"}
	require.NoError(t, store.SaveCity(ctx, city))
	assert.JSONEq(t, `{"id":"c1","name":"Campinas","uf":"SP"}`, kv.data["shop:city"])

	got, ok, err := store.GetCity(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, city, got)

	require.NoError(t, store.ClearCity(ctx))
	_, ok, err = store.GetCity(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_DefaultPrefix(t *testing.T) {
	kv := newFakeKV()
	require.NoError(t, NewRedisStore(kv, "").SaveCity(context.Background(), City{ID: "c1"}))
	assert.Contains(t, kv.data, "storefront:city")
}

func TestRedisStore_Errors(t *testing.T) {
	kv := newFakeKV()
	store := NewRedisStore(kv, "")

	kv.data["storefront:city"] = "{not json"
	_, _, err := store.GetCity(context.Background())
	assert.ErrorContains(t, err, "failed to decode city")

	kv.getErr = errors.New("connection refused")
	_, _, err = store.GetCity(context.Background())
	assert.ErrorContains(t, err, "failed to load city")
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, _ := store.GetCity(ctx)
	assert.False(t, ok)

	require.NoError(t, store.SaveCity(ctx, City{ID: "c2", Name: "Recife", UF: "PE"}))
	got, ok, _ := store.GetCity(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Recife", got.Name)

	require.NoError(t, store.ClearCity(ctx))
	_, ok, _ = store.GetCity(ctx)
	assert.False(t, ok)
}
