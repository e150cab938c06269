package faucet_protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// confirm polls the signature status until it reaches the submitter's commitment, the
// transaction fails, or the chain moves past lastValidBlockHeight. A zero height waits on
// the status alone.
func (s *Submitter) confirm(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	for {
		statuses, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			s.logger.Debug().Err(err).Msg("error checking transaction status")
		} else if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return statusError(status.Err)
			}
			if commitmentReached(status.ConfirmationStatus, s.commitment) {
				return nil
			}
		}

		if lastValidBlockHeight > 0 {
			height, err := s.rpc.GetBlockHeight(ctx, s.commitment)
			if err != nil {
				s.logger.Debug().Err(err).Msg("error checking block height")
			} else if height > lastValidBlockHeight {
				return fmt.Errorf("%w: block height %d exceeded last valid height %d", ErrBlockhashExpired, height, lastValidBlockHeight)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func confirmationRank(status rpc.ConfirmationStatusType) int {
	switch status {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	default:
		return 0
	}
}

func commitmentReached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	got := confirmationRank(status)
	switch want {
	case rpc.CommitmentProcessed:
		return got >= 1
	case rpc.CommitmentFinalized:
		return got >= 3
	default:
		return got >= 2
	}
}

// statusError renders the err field of a signature status as an error.
func statusError(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transaction error: %v", v)
	}
	return fmt.Errorf("transaction error: %s", b)
}

func asRPCError(err error) (*jsonrpc.RPCError, bool) {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}
