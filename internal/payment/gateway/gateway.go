package gateway

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargeResult separates a business decline from a transport failure:
// declines come back inside the result, errors mean the gateway itself
// was unreachable and the call may be retried.
type ChargeResult struct {
	Approved      bool
	DeclineReason string
}

type Gateway interface {
	Charge(ctx context.Context, orderID uuid.UUID, amount int64) (ChargeResult, error)
	Refund(ctx context.Context, paymentID uuid.UUID, amount int64) error
}

// simulated approves a configurable percentage of charges. It stands in
// for a real payment provider.
type simulated struct {
	successRate int
	logger      *zap.Logger
}

func NewSimulated(successRate int, logger *zap.Logger) Gateway {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 100 {
		successRate = 100
	}

	return &simulated{successRate: successRate, logger: logger}
}

func (g *simulated) Charge(ctx context.Context, orderID uuid.UUID, amount int64) (ChargeResult, error) {
	if rand.IntN(100) < g.successRate {
		return ChargeResult{Approved: true}, nil
	}

	g.logger.Info(
		"simulated gateway declined charge",
		zap.String("order_id", orderID.String()),
		zap.Int64("amount", amount),
	)

	return ChargeResult{Approved: false, DeclineReason: "insufficient funds"}, nil
}

func (g *simulated) Refund(ctx context.Context, paymentID uuid.UUID, amount int64) error {
	// the simulated provider always accepts refunds
	return nil
}
