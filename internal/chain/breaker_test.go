package chain

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/circuit"
)

type flakyGateway struct {
	failing bool
	calls   int
}

func (g *flakyGateway) SubmitTransaction(context.Context, []byte) (string, error) {
	g.calls++
	if g.failing {
		return "", dErrors.New(dErrors.CodeUnavailable, "node unreachable")
	}
	return "0xabc", nil
}

func TestBreakerGateway(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("passes submissions through while healthy", func(t *testing.T) {
		next := &flakyGateway{}
		gw := NewBreakerGateway(next, logger, circuit.WithFailureThreshold(2))

		txHash, err := gw.SubmitTransaction(ctx, []byte("signed"))
		require.NoError(t, err)
		assert.Equal(t, "0xabc", txHash)
	})

	t.Run("fails fast once the node keeps failing", func(t *testing.T) {
		next := &flakyGateway{failing: true}
		gw := NewBreakerGateway(next, logger, circuit.WithFailureThreshold(2))

		for i := 0; i < 2; i++ {
			_, err := gw.SubmitTransaction(ctx, []byte("signed"))
			require.Error(t, err)
		}
		assert.Equal(t, 2, next.calls)

		// Open circuit short-circuits before reaching the node.
		_, err := gw.SubmitTransaction(ctx, []byte("signed"))
		require.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.Equal(t, 2, next.calls)
	})

	t.Run("rejected input does not trip the breaker", func(t *testing.T) {
		gw := NewBreakerGateway(NewDevGateway(), logger, circuit.WithFailureThreshold(1))

		_, err := gw.SubmitTransaction(ctx, nil)
		require.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = gw.SubmitTransaction(ctx, []byte("signed"))
		require.NoError(t, err)
	})
}
