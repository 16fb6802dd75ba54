package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritrail/internal/ratelimit/models"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestGetMissing() {
	snap, err := s.store.Get(s.ctx, "auth:10.0.0.1")
	s.Require().NoError(err)
	s.Nil(snap)
}

func (s *InMemoryStoreSuite) TestPutGet() {
	want := models.BucketSnapshot{
		Tokens:     3,
		LastRefill: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Put(s.ctx, "auth:10.0.0.1", want))

	got, err := s.store.Get(s.ctx, "auth:10.0.0.1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(want, *got)
}

func (s *InMemoryStoreSuite) TestPutOverwrites() {
	key := "upload:10.0.0.2"
	s.Require().NoError(s.store.Put(s.ctx, key, models.BucketSnapshot{Tokens: 5}))
	s.Require().NoError(s.store.Put(s.ctx, key, models.BucketSnapshot{Tokens: 1}))

	got, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(1, got.Tokens)
}

func (s *InMemoryStoreSuite) TestDelete() {
	key := "export:10.0.0.3"
	s.Require().NoError(s.store.Put(s.ctx, key, models.BucketSnapshot{Tokens: 2}))
	s.Require().NoError(s.store.Delete(s.ctx, key))

	got, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *InMemoryStoreSuite) TestDeleteMissingIsNoop() {
	s.NoError(s.store.Delete(s.ctx, "never-stored"))
}
