package circuit_breaker_test

import (
	"testing"
	"time"

	"github.com/ilyakh/library-service/pkg/circuit_breaker"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func Test_circuitBreaker_Call(t *testing.T) {
	ok := func() error { return nil }
	fail := func() error { return errors.New("service error") }

	t.Run("stays closed on successes", func(t *testing.T) {
		cb := circuit_breaker.New(10, 50*time.Millisecond, 0.5, 2)
		for i := 0; i < 30; i++ {
			require.NoError(t, cb.Call(ok))
		}
	})

	t.Run("opens after failure percentile and rejects calls", func(t *testing.T) {
		cb := circuit_breaker.New(10, time.Minute, 0.5, 2)
		for i := 0; i < 5; i++ {
			require.Error(t, cb.Call(fail))
		}
		require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)
	})

	t.Run("recovers through half-open after timeout", func(t *testing.T) {
		cb := circuit_breaker.New(4, 20*time.Millisecond, 0.5, 1)
		require.Error(t, cb.Call(fail))
		require.Error(t, cb.Call(fail))
		require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)

		time.Sleep(30 * time.Millisecond)

		// half-open: calls pass through, enough successes close it
		require.NoError(t, cb.Call(ok))
		require.NoError(t, cb.Call(ok))
		require.NoError(t, cb.Call(ok))
	})

	t.Run("half-open failure reopens", func(t *testing.T) {
		cb := circuit_breaker.New(4, 20*time.Millisecond, 0.5, 3)
		require.Error(t, cb.Call(fail))
		require.Error(t, cb.Call(fail))

		time.Sleep(30 * time.Millisecond)

		require.Error(t, cb.Call(fail))
		require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)
	})

	t.Run("reset closes an open breaker", func(t *testing.T) {
		cb := circuit_breaker.New(4, time.Minute, 0.5, 1)
		require.Error(t, cb.Call(fail))
		require.Error(t, cb.Call(fail))
		require.ErrorIs(t, cb.Call(ok), circuit_breaker.ErrOpenCB)

		cb.Reset()
		require.NoError(t, cb.Call(ok))
	})
}
