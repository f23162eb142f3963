package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"intern-portal/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_CriticalComponentGatesHealth(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)

	dbUp := true
	c.RegisterDatabaseCheck(func(context.Context) error {
		if dbUp {
			return nil
		}
		return errors.New("connection refused")
	})
	c.RegisterRedisCheck(func(context.Context) error { return errors.New("no route") })

	assert.False(t, c.IsSystemHealthy(), "unchecked critical components count as down")

	c.RunChecks(context.Background())
	status := c.GetStatus()
	require.Contains(t, status, "database")
	assert.Equal(t, StatusUp, status["database"].Status)
	assert.Equal(t, StatusDegraded, status["redis"].Status)
	assert.Equal(t, "no route", status["redis"].Error)
	assert.True(t, c.IsSystemHealthy(), "a degraded optional component keeps the system healthy")

	dbUp = false
	c.RunChecks(context.Background())
	assert.False(t, c.IsSystemHealthy())
	assert.Equal(t, "connection refused", c.GetStatus()["database"].Error)
}

func TestChecker_GetStatusIsASnapshot(t *testing.T) {
	c := NewChecker(logger.Discard(), time.Minute)
	c.RunChecks(context.Background())

	snap := c.GetStatus()
	snap["self"].Status = StatusDown

	assert.Equal(t, StatusUp, c.GetStatus()["self"].Status)
}

func TestChecker_StartRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := make(chan struct{}, 1)
	c := NewChecker(logger.Discard(), time.Hour)
	c.RegisterCheck("probe", false, func(context.Context) (Status, string, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return StatusUp, "ok", nil
	})

	c.Start(ctx)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("checks did not run on start")
	}
}
