package faucet_protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSubmitter(client RPCClient, opts ...SubmitterOption) *Submitter {
	opts = append([]SubmitterOption{
		WithRetryPolicy(RetryPolicy{MaxAttempts: 5}),
		WithPollInterval(time.Millisecond),
	}, opts...)
	return NewSubmitter(client, zerolog.Nop(), opts...)
}

func testInstructions(t *testing.T, payer solana.PublicKey) InstructionsFunc {
	ix, err := NewRequestFaucetInstruction(ProgramID, payer, 10_000)
	require.NoError(t, err)
	return Instructions(ix)
}

func withBlockhash(hash solana.Hash) interface{} {
	return mock.MatchedBy(func(tx *solana.Transaction) bool {
		return tx.Message.RecentBlockhash == hash
	})
}

func TestSubmit_Confirmed(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey
	sig := testSignature(1)

	client.On("GetLatestBlockhash", mock.Anything, rpc.CommitmentConfirmed).Return(blockhashResult(testHash(1), 100), nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, withBlockhash(testHash(1)), mock.Anything).Return(sig, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, false, mock.Anything).Return(confirmedStatus(), nil)

	var states []TxState
	s := testSubmitter(client, WithObserver(func(c StateChange) { states = append(states, c.State) }))

	got, err := s.Submit(context.Background(), testInstructions(t, payer.PublicKey()), payer)
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.Equal(t, []TxState{StateBuilding, StateSubmitted, StateConfirmed}, states)
	client.AssertExpectations(t)
}

func TestSubmit_SignsWithEveryRequiredKey(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey

	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(1), 100), nil)
	client.On("SendTransactionWithOpts", mock.Anything, mock.MatchedBy(func(tx *solana.Transaction) bool {
		return len(tx.Signatures) == 1 && tx.Message.AccountKeys[0].Equals(payer.PublicKey()) && tx.VerifySignatures() == nil
	}), mock.Anything).Return(testSignature(1), nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, false, mock.Anything).Return(confirmedStatus(), nil)

	_, err := testSubmitter(client).Submit(context.Background(), testInstructions(t, payer.PublicKey()), payer)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSubmit_RetriesOnceWithFreshBlockhash(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey
	sig := testSignature(2)

	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(1), 100), nil).Once()
	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(2), 200), nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, withBlockhash(testHash(1)), mock.Anything).
		Return(solana.Signature{}, errors.New("Transaction simulation failed: Blockhash not found")).Once()
	client.On("SendTransactionWithOpts", mock.Anything, withBlockhash(testHash(2)), mock.Anything).Return(sig, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, false, mock.Anything).Return(confirmedStatus(), nil)

	builds := 0
	ix, err := NewRequestFaucetInstruction(ProgramID, payer.PublicKey(), 10_000)
	require.NoError(t, err)
	build := func(context.Context) ([]solana.Instruction, error) {
		builds++
		return []solana.Instruction{ix}, nil
	}

	var states []TxState
	s := testSubmitter(client, WithObserver(func(c StateChange) { states = append(states, c.State) }))

	got, err := s.Submit(context.Background(), build, payer)
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.Equal(t, 2, builds)
	assert.Equal(t, []TxState{StateBuilding, StateBuilding, StateSubmitted, StateConfirmed}, states)
	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 2)
}

func TestSubmit_RetriesWhenBlockHeightPassesWindow(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey
	stale, fresh := testSignature(3), testSignature(4)

	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(1), 100), nil).Once()
	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(2), 300), nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, withBlockhash(testHash(1)), mock.Anything).Return(stale, nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, withBlockhash(testHash(2)), mock.Anything).Return(fresh, nil).Once()
	notSeen := &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}
	client.On("GetSignatureStatuses", mock.Anything, false, []solana.Signature{stale}).Return(notSeen, nil)
	client.On("GetSignatureStatuses", mock.Anything, false, []solana.Signature{fresh}).Return(confirmedStatus(), nil)
	client.On("GetBlockHeight", mock.Anything, mock.Anything).Return(uint64(101), nil)

	got, err := testSubmitter(client).Submit(context.Background(), testInstructions(t, payer.PublicKey()), payer)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
	client.AssertExpectations(t)
}

func TestSubmit_RetriesExhausted(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey

	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(1), 100), nil)
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{}, errors.New("Blockhash not found"))

	s := testSubmitter(client, WithRetryPolicy(RetryPolicy{MaxAttempts: 3}))
	_, err := s.Submit(context.Background(), testInstructions(t, payer.PublicKey()), payer)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrBlockhashExpired)
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 3)
}

func TestSubmit_UnboundedRetryStopsWithContext(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey
	ctx, cancel := context.WithCancel(context.Background())

	sends := 0
	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(1), 100), nil)
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			sends++
			if sends == 20 {
				cancel()
			}
		}).
		Return(solana.Signature{}, errors.New("Blockhash not found"))

	s := testSubmitter(client, WithRetryPolicy(RetryPolicy{MaxAttempts: 0}))
	_, err := s.Submit(ctx, testInstructions(t, payer.PublicKey()), payer)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 20, sends)
}

func TestSubmit_ProgramErrorIsTerminal(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey
	sig := testSignature(5)

	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(1), 100), nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).Return(sig, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, false, mock.Anything).
		Return(failedStatus(map[string]interface{}{
			"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6002}},
		}), nil)
	client.On("GetTransaction", mock.Anything, sig, mock.Anything).Return(nil, errors.New("not found")).Once()

	var last StateChange
	s := testSubmitter(client, WithObserver(func(c StateChange) { last = c }))
	_, err := s.Submit(context.Background(), testInstructions(t, payer.PublicKey()), payer)

	var pe *ProgramError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 6002, pe.Code)
	assert.Equal(t, "InsufficientBalance", pe.Name)
	assert.Equal(t, StateFailed, last.State)
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
	client.AssertExpectations(t)
}

func TestSubmit_RawFailureFetchesRecordAndDoesNotRetry(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey
	sig := testSignature(6)

	client.On("GetLatestBlockhash", mock.Anything, mock.Anything).Return(blockhashResult(testHash(1), 100), nil).Once()
	client.On("SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{}, errors.New("Raw transaction "+sig.String()+" failed ({\"err\":\"AccountInUse\"})")).Once()
	client.On("GetTransaction", mock.Anything, sig, mock.Anything).Return(&rpc.GetTransactionResult{
		Slot: 42,
		Meta: &rpc.TransactionMeta{
			Err:          "AccountInUse",
			Fee:          5000,
			LogMessages:  []string{"Program log: Instruction: RequestFaucet"},
			PreBalances:  []uint64{},
			PostBalances: []uint64{},
		},
	}, nil).Once()

	_, err := testSubmitter(client).Submit(context.Background(), testInstructions(t, payer.PublicKey()), payer)

	var tf *TransactionFailedError
	require.ErrorAs(t, err, &tf)
	assert.Equal(t, sig, tf.Signature)
	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
}

func TestSubmit_BuildErrorIsTerminal(t *testing.T) {
	client := new(mockRPC)
	payer := solana.NewWallet().PrivateKey
	boom := errors.New("boom")

	_, err := testSubmitter(client).Submit(context.Background(), func(context.Context) ([]solana.Instruction, error) {
		return nil, boom
	}, payer)
	assert.ErrorIs(t, err, boom)
	client.AssertNotCalled(t, "GetLatestBlockhash", mock.Anything, mock.Anything)
}

func TestRetryPolicy_BackOff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, InitialInterval: 10 * time.Millisecond, MaxInterval: 20 * time.Millisecond}
	b := p.backOff(context.Background())

	// Intervals are jittered by up to 50% around the capped value.
	first := b.NextBackOff()
	assert.Greater(t, first, time.Duration(0))
	assert.LessOrEqual(t, first, 15*time.Millisecond)
	assert.LessOrEqual(t, b.NextBackOff(), 30*time.Millisecond)
	assert.Equal(t, time.Duration(-1), b.NextBackOff(), "third retry exceeds MaxAttempts")
}

func TestTxStateString(t *testing.T) {
	assert.Equal(t, "building", StateBuilding.String())
	assert.Equal(t, "submitted", StateSubmitted.String())
	assert.Equal(t, "confirmed", StateConfirmed.String())
	assert.Equal(t, "failed", StateFailed.String())
}

func TestConfirm_WithoutWindowWaitsOnStatusOnly(t *testing.T) {
	client := new(mockRPC)
	sig := testSignature(7)
	notSeen := &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}
	client.On("GetSignatureStatuses", mock.Anything, false, []solana.Signature{sig}).Return(notSeen, nil).Twice()
	client.On("GetSignatureStatuses", mock.Anything, false, []solana.Signature{sig}).Return(confirmedStatus(), nil).Once()

	require.NoError(t, testSubmitter(client).confirm(context.Background(), sig, 0))
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 3)
	client.AssertNotCalled(t, "GetBlockHeight", mock.Anything, mock.Anything)
}
