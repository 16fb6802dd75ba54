//go:build integration

package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritrail/internal/ratelimit/models"
	"veritrail/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
	ctx   context.Context
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	want := models.BucketSnapshot{
		Tokens:     2,
		LastRefill: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Put(s.ctx, "auth:10.0.0.1", want))

	got, err := s.store.Get(s.ctx, "auth:10.0.0.1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(want.Tokens, got.Tokens)
	s.True(want.LastRefill.Equal(got.LastRefill))
}

func (s *RedisStoreSuite) TestGetMissing() {
	got, err := s.store.Get(s.ctx, "auth:10.9.9.9")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Put(s.ctx, "upload:10.0.0.2", models.BucketSnapshot{Tokens: 7}))
	s.Require().NoError(s.store.Delete(s.ctx, "upload:10.0.0.2"))

	got, err := s.store.Get(s.ctx, "upload:10.0.0.2")
	s.Require().NoError(err)
	s.Nil(got)
}
