package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-backend/internal/redisx"
)

type fakeKV struct {
	m   map[string]string
	err error
}

func newFakeKV() *fakeKV { return &fakeKV{m: map[string]string{}} }

func (kv *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	if kv.err != nil {
		return "", false, kv.err
	}
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *fakeKV) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	if kv.err != nil {
		return kv.err
	}
	kv.m[key] = val
	return nil
}

func (kv *fakeKV) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(kv.m, k)
	}
	return nil
}

func TestCache_MissThenHit(t *testing.T) {
	kv := newFakeKV()
	c := NewCache(kv)
	ctx := context.Background()

	_, ok := c.GetCategories(ctx)
	require.False(t, ok)

	cats := []Category{{ID: "c1", Name: "Books"}, {ID: "c2", Name: "Games"}}
	c.SetCategories(ctx, cats)

	got, ok := c.GetCategories(ctx)
	require.True(t, ok)
	require.Equal(t, cats, got)
}

func TestCache_InvalidateDropsKey(t *testing.T) {
	kv := newFakeKV()
	c := NewCache(kv)
	ctx := context.Background()

	c.SetCategories(ctx, []Category{{ID: "c1", Name: "Books"}})
	c.Invalidate(ctx)

	_, ok := c.GetCategories(ctx)
	require.False(t, ok)
	require.NotContains(t, kv.m, redisx.KeyCategories)
}

func TestCache_StoreErrorIsAMiss(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	c := NewCache(kv)

	_, ok := c.GetCategories(context.Background())
	require.False(t, ok)
}

func TestCache_CorruptValueIsAMiss(t *testing.T) {
	kv := newFakeKV()
	kv.m[redisx.KeyCategories] = "{not json"
	c := NewCache(kv)

	_, ok := c.GetCategories(context.Background())
	require.False(t, ok)
}
