package db

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(ctx context.Context, t *testing.T) (addr string, terminate func()) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	addr = fmt.Sprintf("redis://%s:%s/0", host, port.Port())
	terminate = func() {
		require.NoError(t, redisC.Terminate(ctx))
	}
	return addr, terminate
}

func TestRedisStorageIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	addr, terminate := startRedis(ctx, t)
	defer terminate()

	s, err := NewRedisStorage(ctx, addr, "quizbot-test", 4)
	require.NoError(t, err)
	defer s.Close(ctx)

	_, err = s.Teams.Get(ctx, "articleNo")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Teams.Save(ctx, Record{"id": "articleNo", "no": 12}))
	got, err := s.Teams.Get(ctx, "articleNo")
	require.NoError(t, err)
	require.EqualValues(t, 12, got["no"])

	// more keys than one SCAN batch
	for i := 0; i < 250; i++ {
		require.NoError(t, s.Users.Save(ctx, Record{"id": "U" + strconv.Itoa(i)}))
	}

	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)
	raw := redis.NewClient(opts)
	defer raw.Close()
	require.NoError(t, raw.Set(ctx, "quizbot-test:users:BROKEN", "{oops", 0).Err())

	all, err := s.Users.All(ctx)
	require.Len(t, all, 250)

	var pe *PartialError
	require.ErrorAs(t, err, &pe)
	require.Contains(t, pe.Failed, "BROKEN")
}
