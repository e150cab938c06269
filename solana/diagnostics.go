package faucet_protocol

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// TransactionRecord is the confirmed record of a transaction, flattened for logging.
type TransactionRecord struct {
	Signature   solana.Signature
	Slot        uint64
	BlockTime   time.Time
	Fee         uint64
	Err         interface{}
	AccountKeys []solana.PublicKey
	Balances    []BalanceChange
	Logs        []string
}

// Failed reports whether the transaction landed with an error.
func (r *TransactionRecord) Failed() bool { return r.Err != nil }

// ProgramLogs returns only the "Program log:" lines emitted by the program.
func (r *TransactionRecord) ProgramLogs() []string {
	var out []string
	for _, line := range r.Logs {
		if strings.HasPrefix(line, "Program log: ") {
			out = append(out, strings.TrimPrefix(line, "Program log: "))
		}
	}
	return out
}

// FetchTransactionRecord loads the confirmed record for sig.
func FetchTransactionRecord(ctx context.Context, client RPCClient, sig solana.Signature) (*TransactionRecord, error) {
	version := uint64(0)
	tx, err := client.GetTransaction(
		ctx,
		sig,
		&rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", sig, err)
	}
	if tx == nil || tx.Meta == nil {
		return nil, fmt.Errorf("transaction %s has no metadata", sig)
	}
	return newTransactionRecord(sig, tx), nil
}

func newTransactionRecord(sig solana.Signature, tx *rpc.GetTransactionResult) *TransactionRecord {
	rec := &TransactionRecord{
		Signature: sig,
		Slot:      tx.Slot,
		Fee:       tx.Meta.Fee,
		Err:       tx.Meta.Err,
		Logs:      tx.Meta.LogMessages,
	}
	if tx.BlockTime != nil {
		rec.BlockTime = tx.BlockTime.Time()
	}

	if tx.Transaction != nil {
		if parsed, err := tx.Transaction.GetTransaction(); err == nil {
			rec.AccountKeys = parsed.Message.AccountKeys
		}
	}

	for i, key := range rec.AccountKeys {
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			break
		}
		rec.Balances = append(rec.Balances, BalanceChange{
			Address: key,
			Before:  tx.Meta.PreBalances[i],
			After:   tx.Meta.PostBalances[i],
		})
	}
	return rec
}

// logTransactionRecord writes the record as structured fields. Observability only.
func logTransactionRecord(logger zerolog.Logger, rec *TransactionRecord) {
	ev := logger.Info()
	if rec.Failed() {
		ev = logger.Warn().Interface("tx_err", rec.Err)
	}
	keys := make([]string, 0, len(rec.AccountKeys))
	for _, k := range rec.AccountKeys {
		keys = append(keys, k.String())
	}
	ev.Str("signature", rec.Signature.String()).
		Uint64("slot", rec.Slot).
		Uint64("fee", rec.Fee).
		Strs("account_keys", keys).
		Msg("transaction record")

	for _, b := range rec.Balances {
		logger.Debug().
			Str("address", b.Address.String()).
			Uint64("pre", b.Before).
			Uint64("post", b.After).
			Int64("delta", b.Delta()).
			Msg("balance")
	}
	for _, line := range rec.Logs {
		logger.Debug().Str("log", line).Msg("program output")
	}
}
