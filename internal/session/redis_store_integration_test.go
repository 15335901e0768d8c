//go:build integration

package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"kidzy-server/internal/session"
	"kidzy-server/internal/testutil"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type RedisStoreSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
	store     *session.RedisStore
}

func (s *RedisStoreSuite) SetupSuite() {
	ctx := context.Background()
	var err error
	s.container, err = tcredis.Run(ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	s.Require().NoError(err, "Failed to start redis container")

	host, err := s.container.Host(ctx)
	s.Require().NoError(err)
	port, err := s.container.MappedPort(ctx, "6379/tcp")
	s.Require().NoError(err)

	s.client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	s.Require().NoError(s.client.Ping(ctx).Err())
	s.store = session.NewRedisStore(s.client, "kidzy-test:", zap.NewNop())
}

func (s *RedisStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

func (s *RedisStoreSuite) TestPutGetTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "a", []byte(`{"x":1}`), time.Minute))

	data, err := s.store.Get(ctx, "a")
	s.Require().NoError(err)
	s.JSONEq(`{"x":1}`, string(data))

	ttl, err := s.client.TTL(ctx, "kidzy-test:a").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)

	_, err = s.store.Get(ctx, "missing")
	s.ErrorIs(err, session.ErrKeyNotFound)
}

func (s *RedisStoreSuite) TestConcurrentUpdates() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, "counter", []byte("0"), time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Update(ctx, "counter", time.Minute, func(cur []byte) ([]byte, error) {
				var n int
				_, _ = fmt.Sscanf(string(cur), "%d", &n)
				return []byte(fmt.Sprintf("%d", n+1)), nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	data, err := s.store.Get(ctx, "counter")
	s.Require().NoError(err)
	s.Equal("5", string(data))
}

func (s *RedisStoreSuite) TestLock() {
	ctx := context.Background()
	unlock, err := s.store.Lock(ctx, "job", time.Minute)
	s.Require().NoError(err)

	_, err = s.store.Lock(ctx, "job", time.Minute)
	s.ErrorIs(err, session.ErrLockHeld)

	s.Require().NoError(unlock(ctx))
	_, err = s.store.Lock(ctx, "job", time.Minute)
	s.NoError(err)
}

func TestRedisStoreSuite(t *testing.T) {
	testutil.RequireDocker(t)
	suite.Run(t, new(RedisStoreSuite))
}
