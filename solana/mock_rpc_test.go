package faucet_protocol

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
)

// mockRPC is a testify double for RPCClient.
type mockRPC struct {
	mock.Mock
}

func (m *mockRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	args := m.Called(ctx, commitment)
	if result := args.Get(0); result != nil {
		return result.(*rpc.GetLatestBlockhashResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRPC) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockRPC) GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, searchTransactionHistory, sigs)
	if result := args.Get(0); result != nil {
		return result.(*rpc.GetSignatureStatusesResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRPC) GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	args := m.Called(ctx, sig, opts)
	if result := args.Get(0); result != nil {
		return result.(*rpc.GetTransactionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, account, opts)
	if result := args.Get(0); result != nil {
		return result.(*rpc.GetAccountInfoResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRPC) GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	args := m.Called(ctx, account, commitment)
	if result := args.Get(0); result != nil {
		return result.(*rpc.GetBalanceResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRPC) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, dataSize, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockRPC) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64, commitment rpc.CommitmentType) (solana.Signature, error) {
	args := m.Called(ctx, account, lamports, commitment)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func blockhashResult(hash solana.Hash, lastValid uint64) *rpc.GetLatestBlockhashResult {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            hash,
			LastValidBlockHeight: lastValid,
		},
	}
}

func confirmedStatus() *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{Slot: 10, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
}

func failedStatus(txErr interface{}) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{Slot: 10, Err: txErr, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
	}
}

func accountInfo(data []byte) *rpc.GetAccountInfoResult {
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: ProgramID,
			Data:  rpc.DataBytesOrJSONFromBytes(data),
		},
	}
}

func balance(lamports uint64) *rpc.GetBalanceResult {
	return &rpc.GetBalanceResult{Value: lamports}
}

func testSignature(b byte) solana.Signature {
	var sig solana.Signature
	for i := range sig {
		sig[i] = b
	}
	return sig
}

func testHash(b byte) solana.Hash {
	var h solana.Hash
	for i := range h {
		h[i] = b
	}
	return h
}
