//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bindirectory/pkg/platform/sentinel"
	"bindirectory/pkg/testutil/containers"
)

type RedisKVSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	kv    *RedisKV
	ctx   context.Context
}

func TestRedisKVSuite(t *testing.T) {
	suite.Run(t, new(RedisKVSuite))
}

func (s *RedisKVSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.kv = NewRedisKV(s.redis.Client)
}

func (s *RedisKVSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisKVSuite) TestSetGetDel() {
	key := Key("411111")
	s.Require().NoError(s.kv.Set(s.ctx, key, []byte(`{"bic":"BANKMX01"}`), time.Minute))

	val, err := s.kv.Get(s.ctx, key)
	s.Require().NoError(err)
	s.JSONEq(`{"bic":"BANKMX01"}`, string(val))

	s.Require().NoError(s.kv.Del(s.ctx, key))

	_, err = s.kv.Get(s.ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisKVSuite) TestGetMissingKey() {
	_, err := s.kv.Get(s.ctx, Key("000000"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisKVSuite) TestDelIsIdempotent() {
	s.NoError(s.kv.Del(s.ctx, Key("411111"), Key("422222")))
	s.NoError(s.kv.Del(s.ctx))
}

func (s *RedisKVSuite) TestEntriesExpire() {
	key := Key("411111")
	s.Require().NoError(s.kv.Set(s.ctx, key, []byte(`{}`), 50*time.Millisecond))

	s.Eventually(func() bool {
		_, err := s.kv.Get(s.ctx, key)
		return err == sentinel.ErrNotFound
	}, 2*time.Second, 25*time.Millisecond)
}

func (s *RedisKVSuite) TestLookupRoundTripOverRedis() {
	lookup := NewLookup(s.kv)

	lookup.Put(s.ctx, "411111", sampleInstitution())

	got := lookup.TryGet(s.ctx, "411111")
	s.Require().NotNil(got)
	s.Equal("BANKAAXX", got.BIC)

	lookup.Invalidate(s.ctx, "411111")
	s.Nil(lookup.TryGet(s.ctx, "411111"))
}
