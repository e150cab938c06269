package faucet_protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// BalanceChange is the lamport balance of one address before and after an operation.
type BalanceChange struct {
	Address solana.PublicKey
	Before  uint64
	After   uint64
}

// Delta is After - Before.
func (b BalanceChange) Delta() int64 {
	return int64(b.After) - int64(b.Before)
}

// AuditResult is the outcome of an audited operation.
type AuditResult struct {
	Signature solana.Signature
	Balances  []BalanceChange
}

// Balance returns the change recorded for addr.
func (r *AuditResult) Balance(addr solana.PublicKey) (BalanceChange, bool) {
	for _, b := range r.Balances {
		if b.Address.Equals(addr) {
			return b, true
		}
	}
	return BalanceChange{}, false
}

// BalanceAuditor records balances around a state-changing operation.
type BalanceAuditor struct {
	rpc        RPCClient
	commitment rpc.CommitmentType
	logger     zerolog.Logger
}

func NewBalanceAuditor(client RPCClient, logger zerolog.Logger) *BalanceAuditor {
	return &BalanceAuditor{
		rpc:        client,
		commitment: rpc.CommitmentConfirmed,
		logger:     logger.With().Str("component", "auditor").Logger(),
	}
}

// Around reads the balances of addrs, runs op, then reads them again. The error returned
// by op is passed through unchanged, and the result still carries the post balances.
func (a *BalanceAuditor) Around(
	ctx context.Context,
	addrs []solana.PublicKey,
	op func(ctx context.Context) (solana.Signature, error),
) (*AuditResult, error) {
	before, err := a.balances(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("failed to read pre balances: %w", err)
	}

	sig, opErr := op(ctx)

	after, err := a.balances(ctx, addrs)
	if err != nil {
		if opErr != nil {
			return nil, opErr
		}
		return nil, fmt.Errorf("failed to read post balances: %w", err)
	}

	result := &AuditResult{Signature: sig, Balances: make([]BalanceChange, len(addrs))}
	for i, addr := range addrs {
		result.Balances[i] = BalanceChange{Address: addr, Before: before[i], After: after[i]}
		a.logger.Debug().
			Str("address", addr.String()).
			Uint64("pre", before[i]).
			Uint64("post", after[i]).
			Int64("delta", result.Balances[i].Delta()).
			Msg("audited balance")
	}
	return result, opErr
}

func (a *BalanceAuditor) balances(ctx context.Context, addrs []solana.PublicKey) ([]uint64, error) {
	out := make([]uint64, len(addrs))
	for i, addr := range addrs {
		res, err := a.rpc.GetBalance(ctx, addr, a.commitment)
		if err != nil {
			return nil, fmt.Errorf("failed to get balance of %s: %w", addr, err)
		}
		out[i] = res.Value
	}
	return out, nil
}
