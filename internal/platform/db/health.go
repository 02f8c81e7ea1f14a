package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const healthPingTimeout = 5 * time.Second

// StoreStatus describes the booking store connection pool for the health
// endpoint.
type StoreStatus struct {
	Reachable   bool   `json:"reachable"`
	OpenConns   int32  `json:"open_conns"`
	IdleConns   int32  `json:"idle_conns"`
	InUseConns  int32  `json:"in_use_conns"`
	MaxConns    int32  `json:"max_conns"`
	Acquires    int64  `json:"acquires"`
	AcquireWait string `json:"acquire_wait"`
}

// StatusOf snapshots the pool counters.
func StatusOf(pool *pgxpool.Pool) *StoreStatus {
	stat := pool.Stat()
	return &StoreStatus{
		Reachable:   stat.TotalConns() > 0,
		OpenConns:   stat.TotalConns(),
		IdleConns:   stat.IdleConns(),
		InUseConns:  stat.AcquiredConns(),
		MaxConns:    stat.MaxConns(),
		Acquires:    stat.AcquireCount(),
		AcquireWait: stat.AcquireDuration().String(),
	}
}

// HealthHandler reports whether the booking store answers a ping, with the
// pool counters attached for operators.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		status := StatusOf(pool)
		if err := pool.Ping(ctx); err != nil {
			status.Reachable = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"store":  status,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"store":  status,
		})
	}
}
