package app

import (
	"net/http"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit"})
}

// NewRateLimitMiddleware builds an HTTP middleware enforcing the formatted
// rate, e.g. "120-M" for 120 requests per minute per client IP.
func NewRateLimitMiddleware(store limiter.Store, formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(store, rate)
	middleware := limiterstdlib.NewMiddleware(instance)
	return middleware.Handler, nil
}

// MigrateUp applies all pending migrations from sourceURL against the
// database. A database already at the latest version is not an error.
func MigrateUp(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
