package suite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/rocketscienceinc/damas-backend/internal/repository/storage"
)

const (
	expireDuration  = 120
	maxWaitDuration = 120 * time.Second
)

const (
	redisPort  = "6379/tcp"
	redisImage = "redis"
	redisTag   = "alpine"
)

// DockerEnv switches the suite from miniredis to a real Redis container.
const DockerEnv = "DAMAS_TEST_DOCKER"

type Suite struct {
	*testing.T
	Logger *zap.Logger

	Storage *redis.Client
	// Redis is nil when the suite runs against a docker container.
	Redis *miniredis.Miniredis
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	st := &Suite{
		T:      t,
		Logger: zaptest.NewLogger(t),
	}

	if os.Getenv(DockerEnv) == "1" {
		st.Storage = runRedisContainer(ctx, t)
	} else {
		st.Redis = miniredis.RunT(t)
		st.Storage = redis.NewClient(&redis.Options{
			Addr: st.Redis.Addr(),
		})
	}

	t.Cleanup(func() {
		_ = st.Storage.Close()
	})

	return ctx, st
}

// NewSQLStorage opens a private in-memory SQLite database with the schema applied.
func NewSQLStorage(ctx context.Context, t *testing.T) *storage.SQLStorage {
	t.Helper()

	store, err := storage.NewSQLStorage(ctx, storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("could not open sqlite: %v", err)
	}

	if err = store.Init(ctx); err != nil {
		t.Fatalf("could not init schema: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func runRedisContainer(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("could not connect to docker: %v", err)
	}

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: redisImage,
		Tag:        redisTag,
		Env:        []string{},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("could not start resource: %v", err)
	}

	// never returns error
	_ = resource.Expire(expireDuration)

	redisHost := resource.GetHostPort(redisPort)

	// the container might not accept connections yet
	pool.MaxWait = maxWaitDuration

	var redisClient *redis.Client
	if err = pool.Retry(func() error {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisHost,
		})
		return redisClient.Ping(ctx).Err()
	}); err != nil {
		if err = pool.Purge(resource); err != nil {
			t.Fatalf("could not purge resource: %v", err)
		}

		t.Fatalf("could not connect to redis: %v", err)
	}

	if err = redisClient.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("could not flush database: %v", err)
	}

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Errorf("could not purge resource: %v", err)
		}
	})

	return redisClient
}
