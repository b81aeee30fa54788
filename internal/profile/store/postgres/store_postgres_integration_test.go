//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"intake/internal/profile/store/postgres"
	"intake/pkg/platform/sentinel"
	"intake/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.container = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.container.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateTables(context.Background(), "intake_records"))
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestMergeCreatesRecord() {
	ctx := context.Background()

	err := s.store.Merge(ctx, "user-1", map[string]any{
		"userDetails":          map[string]any{"name": "Ada"},
		"userDetailsCompleted": true,
	})
	s.Require().NoError(err)

	rec, err := s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	s.True(rec.Flag("userDetailsCompleted"))
}

func (s *PostgresStoreSuite) TestMergeIsDeepNotShallow() {
	ctx := context.Background()

	s.Require().NoError(s.store.Merge(ctx, "user-1", map[string]any{
		"subscription": map[string]any{"tier": "free", "status": "active"},
	}))
	s.Require().NoError(s.store.Merge(ctx, "user-1", map[string]any{
		"subscription": map[string]any{"tier": "pro"},
	}))

	rec, err := s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	sub := rec.Subscription()
	s.Equal("pro", sub.Tier)
	s.Equal("active", sub.Status, "sibling keys in the sub-record must survive the merge")
}

func (s *PostgresStoreSuite) TestMergePreservesEarlierSteps() {
	ctx := context.Background()

	s.Require().NoError(s.store.Merge(ctx, "user-1", map[string]any{
		"userDetailsCompleted": true,
		"userDetails":          map[string]any{"name": "Ada"},
	}))
	s.Require().NoError(s.store.Merge(ctx, "user-1", map[string]any{
		"medicalScreeningCompleted": true,
	}))

	rec, err := s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	s.True(rec.Flag("userDetailsCompleted"))
	s.True(rec.Flag("medicalScreeningCompleted"))
}

func (s *PostgresStoreSuite) TestConcurrentMerges() {
	ctx := context.Background()

	// Seed the row first; FOR UPDATE serializes merges on an existing row.
	s.Require().NoError(s.store.Merge(ctx, "user-1", map[string]any{"seeded": true}))

	const goroutines = 50
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.Merge(ctx, "user-1", map[string]any{
				fmt.Sprintf("field%d", i): true,
			})
			if err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(0), failures.Load())

	rec, err := s.store.Get(ctx, "user-1")
	s.Require().NoError(err)
	for i := 0; i < goroutines; i++ {
		s.True(rec.Flag(fmt.Sprintf("field%d", i)), "field%d lost in concurrent merge", i)
	}
}

func (s *PostgresStoreSuite) TestUsersAreIsolated() {
	ctx := context.Background()

	s.Require().NoError(s.store.Merge(ctx, "user-1", map[string]any{"userDetailsCompleted": true}))
	s.Require().NoError(s.store.Merge(ctx, "user-2", map[string]any{"medicalScreeningCompleted": true}))

	rec, err := s.store.Get(ctx, "user-2")
	s.Require().NoError(err)
	s.False(rec.Flag("userDetailsCompleted"))
	s.True(rec.Flag("medicalScreeningCompleted"))
}
