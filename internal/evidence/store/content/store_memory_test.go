package content

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"medfund/pkg/platform/sentinel"
)

type InMemoryContentStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryContentStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryContentStoreSuite))
}

func (s *InMemoryContentStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryContentStoreSuite) TestPutAndGet() {
	s.Run("round trips bytes through a sha256 ref", func() {
		ref, err := s.store.Put(s.ctx, []byte("license scan"))
		s.Require().NoError(err)
		s.True(strings.HasPrefix(ref, "sha256:"))

		blob, err := s.store.Get(s.ctx, ref)
		s.Require().NoError(err)
		s.Equal([]byte("license scan"), blob)
	})

	s.Run("identical content yields the same ref", func() {
		first, err := s.store.Put(s.ctx, []byte("same bytes"))
		s.Require().NoError(err)
		second, err := s.store.Put(s.ctx, []byte("same bytes"))
		s.Require().NoError(err)
		s.Equal(first, second)
	})

	s.Run("different content yields different refs", func() {
		first, err := s.store.Put(s.ctx, []byte("a"))
		s.Require().NoError(err)
		second, err := s.store.Put(s.ctx, []byte("b"))
		s.Require().NoError(err)
		s.NotEqual(first, second)
	})

	s.Run("unknown ref returns ErrNotFound", func() {
		_, err := s.store.Get(s.ctx, "sha256:deadbeef")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("stored blob is isolated from caller mutation", func() {
		payload := []byte("mutable")
		ref, err := s.store.Put(s.ctx, payload)
		s.Require().NoError(err)
		payload[0] = 'X'

		blob, err := s.store.Get(s.ctx, ref)
		s.Require().NoError(err)
		s.Equal([]byte("mutable"), blob)
	})
}
