package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/chemlite/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := &Client{rdb: db, config: &RedisConfig{}, logger: logging.NewNopLogger()}
	s.cache = NewRedisCache(client, logging.NewNopLogger(), WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

type sample struct {
	Name  string  `json:"name"`
	Coeff float64 `json:"coeff"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := sample{Name: "MNXM4", Coeff: -2}
	raw, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k1").SetVal(string(raw))

	var dest sample
	s.Require().NoError(s.cache.Get(context.Background(), "k1", &dest))
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k1").RedisNil()

	var dest sample
	err := s.cache.Get(context.Background(), "k1", &dest)
	s.Equal(ErrCacheMiss, err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGet_NullMarker() {
	s.mock.ExpectGet("test:k1").SetVal(nullMarker)

	var dest sample
	s.Equal(ErrCacheMiss, s.cache.Get(context.Background(), "k1", &dest))
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:k1").SetErr(fmt.Errorf("i/o timeout"))

	var dest sample
	err := s.cache.Get(context.Background(), "k1", &dest)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
	s.NotEqual(ErrCacheMiss, err)
}

func (s *CacheTestSuite) TestGet_CorruptPayload() {
	s.mock.ExpectGet("test:k1").SetVal("{not json")

	var dest sample
	err := s.cache.Get(context.Background(), "k1", &dest)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:a", "test:b").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:a").SetVal(1)
	ok, err := s.cache.Exists(context.Background(), "a")
	s.NoError(err)
	s.True(ok)
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	s.mock.ExpectScan(0, "test:pathway:*", 100).SetVal([]string{"test:pathway:a", "test:pathway:b"}, 7)
	s.mock.ExpectDel("test:pathway:a", "test:pathway:b").SetVal(2)
	s.mock.ExpectScan(7, "test:pathway:*", 100).SetVal([]string{"test:pathway:c"}, 0)
	s.mock.ExpectDel("test:pathway:c").SetVal(1)

	n, err := s.cache.DeleteByPrefix(context.Background(), "pathway:")
	s.NoError(err)
	s.Equal(int64(3), n)
}

// Set applies TTL jitter, so write paths run against miniredis.

func newMiniCache(t *testing.T) (Cache, *Client) {
	client, _ := newMiniClient(t)
	return NewRedisCache(client, logging.NewNopLogger(), WithPrefix("t:"), WithDefaultTTL(time.Minute)), client
}

func TestCache_SetAppliesJitteredTTL(t *testing.T) {
	cache, client := newMiniCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", sample{Name: "x"}, 0))
	ttl := client.GetUnderlyingClient().TTL(ctx, "t:k").Val()
	assert.InDelta(t, float64(time.Minute), float64(ttl), float64(7*time.Second))

	var got sample
	require.NoError(t, cache.Get(ctx, "k", &got))
	assert.Equal(t, "x", got.Name)
}

func TestCache_GetOrSet(t *testing.T) {
	cache, _ := newMiniCache(t)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (interface{}, error) {
		calls++
		return sample{Name: "loaded", Coeff: 1.5}, nil
	}

	var first, second sample
	require.NoError(t, cache.GetOrSet(ctx, "k", &first, time.Minute, loader))
	require.NoError(t, cache.GetOrSet(ctx, "k", &second, time.Minute, loader))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1.5, second.Coeff)
}

func TestCache_GetOrSet_NilIsRemembered(t *testing.T) {
	cache, client := newMiniCache(t)
	ctx := context.Background()

	var dest sample
	err := cache.GetOrSet(ctx, "absent", &dest, time.Minute, func(context.Context) (interface{}, error) { return nil, nil })
	assert.Equal(t, ErrCacheMiss, err)
	assert.Equal(t, nullMarker, client.Get(ctx, "t:absent").Val())
}

func TestCache_GetOrSet_LoaderError(t *testing.T) {
	cache, _ := newMiniCache(t)

	var dest sample
	err := cache.GetOrSet(context.Background(), "k", &dest, 0, func(context.Context) (interface{}, error) {
		return nil, fmt.Errorf("db down")
	})
	assert.EqualError(t, err, "db down")
}
