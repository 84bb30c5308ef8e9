package chain

import (
	"context"
	"log/slog"

	dErrors "medfund/pkg/domain-errors"
	"medfund/pkg/platform/circuit"
)

// BreakerGateway wraps a Gateway with a circuit breaker. While the breaker
// is open, submissions fail fast instead of queueing behind a node that is
// down; donors get an immediate retryable error.
type BreakerGateway struct {
	next    Gateway
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerGateway(next Gateway, logger *slog.Logger, opts ...circuit.Option) *BreakerGateway {
	return &BreakerGateway{
		next:    next,
		breaker: circuit.New("chain-gateway", opts...),
		logger:  logger,
	}
}

func (g *BreakerGateway) SubmitTransaction(ctx context.Context, signedTx []byte) (string, error) {
	if g.breaker.IsOpen() {
		return "", dErrors.New(dErrors.CodeUnavailable, "chain gateway circuit is open")
	}

	txHash, err := g.next.SubmitTransaction(ctx, signedTx)
	if err != nil {
		// Client mistakes say nothing about node health.
		if dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			return "", err
		}
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "chain gateway circuit opened", "breaker", g.breaker.Name())
		}
		return "", err
	}

	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "chain gateway circuit closed", "breaker", g.breaker.Name())
	}
	return txHash, nil
}
