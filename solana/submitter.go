package faucet_protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// TxState is the lifecycle position of one submission attempt.
type TxState int

const (
	StateBuilding TxState = iota
	StateSubmitted
	StateConfirmed
	StateFailed
)

func (s TxState) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// StateChange is reported to the observer on every transition.
type StateChange struct {
	State     TxState
	Attempt   int
	Signature solana.Signature
	Err       error
}

// InstructionsFunc produces the instructions for one attempt. It is called again on
// every retry and must return the same logical instructions each time.
type InstructionsFunc func(ctx context.Context) ([]solana.Instruction, error)

// Instructions wraps a fixed instruction list.
func Instructions(instrs ...solana.Instruction) InstructionsFunc {
	return func(context.Context) ([]solana.Instruction, error) {
		return instrs, nil
	}
}

// RetryPolicy bounds resubmission after an expired blockhash.
type RetryPolicy struct {
	// MaxAttempts counts the first submission. Zero or less retries until the context
	// is done.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     10,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     8 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.InitialInterval <= 0 {
		b = &backoff.ZeroBackOff{}
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.InitialInterval
		if p.MaxInterval > 0 {
			eb.MaxInterval = p.MaxInterval
		}
		eb.MaxElapsedTime = 0
		eb.Reset()
		b = eb
	}
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Submitter signs, sends and confirms transactions.
type Submitter struct {
	rpc          RPCClient
	logger       zerolog.Logger
	policy       RetryPolicy
	commitment   rpc.CommitmentType
	pollInterval time.Duration
	observer     func(StateChange)
}

type SubmitterOption func(*Submitter)

func WithRetryPolicy(p RetryPolicy) SubmitterOption {
	return func(s *Submitter) { s.policy = p }
}

func WithCommitment(c rpc.CommitmentType) SubmitterOption {
	return func(s *Submitter) { s.commitment = c }
}

func WithPollInterval(d time.Duration) SubmitterOption {
	return func(s *Submitter) { s.pollInterval = d }
}

// WithObserver registers fn to receive every state transition.
func WithObserver(fn func(StateChange)) SubmitterOption {
	return func(s *Submitter) { s.observer = fn }
}

func NewSubmitter(client RPCClient, logger zerolog.Logger, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		rpc:          client,
		logger:       logger.With().Str("component", "submitter").Logger(),
		policy:       DefaultRetryPolicy(),
		commitment:   rpc.CommitmentConfirmed,
		pollInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs build, signs the result with payer and signers, sends it and waits for
// confirmation. An expired blockhash starts a new attempt with a fresh blockhash. Every
// other failure is terminal.
func (s *Submitter) Submit(
	ctx context.Context,
	build InstructionsFunc,
	payer solana.PrivateKey,
	signers ...solana.PrivateKey,
) (solana.Signature, error) {
	var (
		attempt int
		sig     solana.Signature
	)

	op := func() error {
		attempt++
		s.transition(StateChange{State: StateBuilding, Attempt: attempt})

		got, err := s.attempt(ctx, attempt, build, payer, signers)
		if err == nil {
			sig = got
			return nil
		}
		if errors.Is(err, ErrBlockhashExpired) {
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, next time.Duration) {
		s.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("blockhash expired, rebuilding transaction")
	}

	err := backoff.RetryNotify(op, s.policy.backOff(ctx), notify)
	if err == nil {
		s.transition(StateChange{State: StateConfirmed, Attempt: attempt, Signature: sig})
		return sig, nil
	}

	if errors.Is(err, ErrBlockhashExpired) {
		err = fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
	s.transition(StateChange{State: StateFailed, Attempt: attempt, Err: err})
	return solana.Signature{}, err
}

func (s *Submitter) attempt(
	ctx context.Context,
	attempt int,
	build InstructionsFunc,
	payer solana.PrivateKey,
	signers []solana.PrivateKey,
) (solana.Signature, error) {
	instrs, err := build(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build instructions: %w", err)
	}

	latestBlockhash, err := s.rpc.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		if isBlockhashExpired(err) {
			return solana.Signature{}, fmt.Errorf("%w: %v", ErrBlockhashExpired, err)
		}
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instrs,
		latestBlockhash.Value.Blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	keys := append([]solana.PrivateKey{payer}, signers...)
	_, err = tx.Sign(
		func(key solana.PublicKey) *solana.PrivateKey {
			for i := range keys {
				if keys[i].PublicKey().Equals(key) {
					return &keys[i]
				}
			}
			return nil
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return solana.Signature{}, s.fail(ctx, tx, solana.Signature{}, err)
	}

	s.transition(StateChange{State: StateSubmitted, Attempt: attempt, Signature: sig})

	if err := s.confirm(ctx, sig, latestBlockhash.Value.LastValidBlockHeight); err != nil {
		if errors.Is(err, ErrBlockhashExpired) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return solana.Signature{}, err
		}
		return solana.Signature{}, s.fail(ctx, tx, sig, err)
	}
	return sig, nil
}

// fail classifies err, logs what is known about tx, and fetches the confirmed record when
// a signature is available.
func (s *Submitter) fail(ctx context.Context, tx *solana.Transaction, sig solana.Signature, err error) error {
	classified := classifyError(sig, err)
	if errors.Is(classified, ErrBlockhashExpired) {
		return classified
	}

	keys := make([]string, 0, len(tx.Message.AccountKeys))
	for _, k := range tx.Message.AccountKeys {
		keys = append(keys, k.String())
	}
	ev := s.logger.Error().Err(err).Strs("account_keys", keys)
	if rpcErr, ok := asRPCError(err); ok {
		ev = ev.Int("rpc_code", rpcErr.Code).Interface("rpc_data", rpcErr.Data)
	}
	ev.Msg("transaction failed")

	var (
		pe *ProgramError
		tf *TransactionFailedError
	)
	switch {
	case errors.As(classified, &pe):
		for _, line := range pe.Logs {
			s.logger.Info().Str("log", line).Msg("program output")
		}
		if !sig.IsZero() {
			s.diagnose(ctx, sig)
		}
	case errors.As(classified, &tf):
		if !tf.Signature.IsZero() {
			s.diagnose(ctx, tf.Signature)
		}
	}
	return classified
}

// diagnose is best effort; a failed fetch is only logged.
func (s *Submitter) diagnose(ctx context.Context, sig solana.Signature) {
	rec, err := FetchTransactionRecord(ctx, s.rpc, sig)
	if err != nil {
		s.logger.Debug().Err(err).Str("signature", sig.String()).Msg("diagnostic fetch failed")
		return
	}
	logTransactionRecord(s.logger, rec)
}

func (s *Submitter) transition(change StateChange) {
	ev := s.logger.Debug()
	if change.State == StateFailed {
		ev = s.logger.Warn().Err(change.Err)
	}
	ev.Str("state", change.State.String()).Int("attempt", change.Attempt)
	if !change.Signature.IsZero() {
		ev = ev.Str("signature", change.Signature.String())
	}
	ev.Msg("transaction state")

	if s.observer != nil {
		s.observer(change)
	}
}
