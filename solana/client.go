package faucet_protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// Client is a client for the faucet program. It carries the whole session: endpoint,
// signer, program id and submission policy.
type Client struct {
	RpcClient RPCClient
	Signer    solana.PrivateKey
	ProgramID solana.PublicKey

	submitter  *Submitter
	auditor    *BalanceAuditor
	logger     zerolog.Logger
	autoInit   bool
	commitment rpc.CommitmentType
	subOpts    []SubmitterOption
}

type ClientOption func(*Client)

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func WithProgramID(programID solana.PublicKey) ClientOption {
	return func(c *Client) { c.ProgramID = programID }
}

// WithSubmitterOptions configures the underlying Submitter.
func WithSubmitterOptions(opts ...SubmitterOption) ClientOption {
	return func(c *Client) { c.subOpts = append(c.subOpts, opts...) }
}

// WithoutAutoInit makes RequestFaucet fail with ErrUserPoolNotInitialized instead of
// creating the user pool first.
func WithoutAutoInit() ClientOption {
	return func(c *Client) { c.autoInit = false }
}

// NewClient creates a new Client for the faucet program with a specific signer.
func NewClient(rpcEndpoint string, signer solana.PrivateKey, opts ...ClientOption) (*Client, error) {
	if rpcEndpoint == "" {
		return nil, errors.New("rpc endpoint is empty")
	}
	return NewClientWithRPC(rpc.New(rpcEndpoint), signer, opts...), nil
}

// NewReadOnlyClient creates a new client for read-only operations that don't require a signer.
// It uses a throwaway keypair internally.
func NewReadOnlyClient(rpcEndpoint string, opts ...ClientOption) (*Client, error) {
	return NewClient(rpcEndpoint, solana.NewWallet().PrivateKey, opts...)
}

// NewClientWithRPC builds a Client around an existing RPC implementation.
func NewClientWithRPC(rpcClient RPCClient, signer solana.PrivateKey, opts ...ClientOption) *Client {
	c := &Client{
		RpcClient:  rpcClient,
		Signer:     signer,
		ProgramID:  ProgramID,
		logger:     zerolog.Nop(),
		autoInit:   true,
		commitment: rpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("program", c.ProgramID.String()).Logger()
	c.submitter = NewSubmitter(rpcClient, c.logger, c.subOpts...)
	c.auditor = NewBalanceAuditor(rpcClient, c.logger)
	return c
}

// Auditor exposes the client's BalanceAuditor.
func (c *Client) Auditor() *BalanceAuditor { return c.auditor }

// InitProject creates the global state and vault, and funds the vault to rent exemption
// in the same transaction.
func (c *Client) InitProject(ctx context.Context, maxAmountPerDay uint64) (solana.Signature, error) {
	admin := c.Signer.PublicKey()
	vault, _, err := VaultPDA(c.ProgramID)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get vault PDA: %w", err)
	}

	c.logger.Info().
		Str("admin", admin.String()).
		Str("vault", vault.String()).
		Uint64("max_amount_per_day", maxAmountPerDay).
		Msg("initializing global state")

	build := func(ctx context.Context) ([]solana.Instruction, error) {
		initIx, err := NewInitializeInstruction(c.ProgramID, admin, maxAmountPerDay)
		if err != nil {
			return nil, fmt.Errorf("failed to create initialize instruction: %w", err)
		}
		rentExempt, err := c.RpcClient.GetMinimumBalanceForRentExemption(ctx, 0, c.commitment)
		if err != nil {
			return nil, fmt.Errorf("failed to get rent exemption: %w", err)
		}
		fundIx, err := NewInitialVaultFundingInstruction(admin, vault, rentExempt)
		if err != nil {
			return nil, err
		}
		return []solana.Instruction{initIx, fundIx}, nil
	}
	return c.submit(ctx, "initialize", build)
}

func (c *Client) UpdateLimit(ctx context.Context, maxAmountPerDay uint64) (solana.Signature, error) {
	ix, err := NewUpdateLimitInstruction(c.ProgramID, c.Signer.PublicKey(), maxAmountPerDay)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create update_limit instruction: %w", err)
	}
	c.logger.Info().Uint64("max_amount_per_day", maxAmountPerDay).Msg("updating limit")
	return c.submit(ctx, "update_limit", Instructions(ix))
}

func (c *Client) DepositVault(ctx context.Context, amount uint64) (solana.Signature, error) {
	ix, err := NewDepositVaultInstruction(c.ProgramID, c.Signer.PublicKey(), amount)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create deposit_vault instruction: %w", err)
	}
	c.logger.Info().Uint64("amount", amount).Msg("depositing to vault")
	return c.submit(ctx, "deposit_vault", Instructions(ix))
}

func (c *Client) WithdrawVault(ctx context.Context, amount uint64) (solana.Signature, error) {
	ix, err := NewWithdrawVaultInstruction(c.ProgramID, c.Signer.PublicKey(), amount)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create withdraw_vault instruction: %w", err)
	}
	c.logger.Info().Uint64("amount", amount).Msg("withdrawing from vault")
	return c.submit(ctx, "withdraw_vault", Instructions(ix))
}

// InitUserPool creates the signer's user pool.
func (c *Client) InitUserPool(ctx context.Context) (solana.Signature, error) {
	ix, err := NewInitUserPoolInstruction(c.ProgramID, c.Signer.PublicKey())
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create init_user_pool instruction: %w", err)
	}
	return c.submit(ctx, "init_user_pool", Instructions(ix))
}

// RequestFaucet asks the vault for amount lamports. A missing user pool is created first
// in its own transaction unless auto-init is disabled.
func (c *Client) RequestFaucet(ctx context.Context, amount uint64) (solana.Signature, error) {
	payer := c.Signer.PublicKey()
	userPool, _, err := UserPoolPDA(c.ProgramID, payer)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get user pool PDA: %w", err)
	}

	exists, err := c.accountExists(ctx, userPool)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to check user pool: %w", err)
	}
	if !exists {
		if !c.autoInit {
			return solana.Signature{}, fmt.Errorf("%w: %s", ErrUserPoolNotInitialized, userPool)
		}
		c.logger.Info().Str("user_pool", userPool.String()).Msg("user pool is not initialized, sending init_user_pool first")
		if _, err := c.InitUserPool(ctx); err != nil {
			return solana.Signature{}, fmt.Errorf("failed to initialize user pool: %w", err)
		}
	}

	ix, err := NewRequestFaucetInstruction(c.ProgramID, payer, amount)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create request_faucet instruction: %w", err)
	}
	c.logger.Info().Uint64("amount", amount).Msg("requesting faucet")
	return c.submit(ctx, "request_faucet", Instructions(ix))
}

// GetGlobalState fetches and decodes the GlobalState account.
func (c *Client) GetGlobalState(ctx context.Context) (*GlobalConfig, error) {
	globalState, _, err := GlobalStatePDA(c.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get global state PDA: %w", err)
	}
	data, err := c.fetchAccountData(ctx, globalState)
	if err != nil {
		return nil, fmt.Errorf("failed to get global state account info: %w", err)
	}
	return DecodeGlobalConfig(data)
}

// GetUserPool fetches and decodes the user pool of owner.
func (c *Client) GetUserPool(ctx context.Context, owner solana.PublicKey) (*UserPool, error) {
	userPool, _, err := UserPoolPDA(c.ProgramID, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to get user pool PDA: %w", err)
	}
	data, err := c.fetchAccountData(ctx, userPool)
	if err != nil {
		return nil, fmt.Errorf("failed to get user pool account info: %w", err)
	}
	return DecodeUserPool(data)
}

// GetVaultBalance returns the vault's lamport balance.
func (c *Client) GetVaultBalance(ctx context.Context) (uint64, error) {
	vault, _, err := VaultPDA(c.ProgramID)
	if err != nil {
		return 0, fmt.Errorf("failed to get vault PDA: %w", err)
	}
	return c.GetBalance(ctx, vault)
}

func (c *Client) GetBalance(ctx context.Context, publicKey solana.PublicKey) (uint64, error) {
	balance, err := c.RpcClient.GetBalance(ctx, publicKey, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// Airdrop requests lamports from the cluster's own faucet. Devnet and testnet only.
// The airdrop transaction uses a blockhash at least as old as the one fetched here, so
// its validity window bounds the wait.
func (c *Client) Airdrop(ctx context.Context, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	latest, err := c.RpcClient.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	sig, err := c.RpcClient.RequestAirdrop(ctx, to, lamports, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to request airdrop: %w", err)
	}
	if err := c.submitter.confirm(ctx, sig, latest.Value.LastValidBlockHeight); err != nil {
		return sig, fmt.Errorf("failed to confirm airdrop: %w", err)
	}
	return sig, nil
}

// TransactionRecord fetches the confirmed record of sig.
func (c *Client) TransactionRecord(ctx context.Context, sig solana.Signature) (*TransactionRecord, error) {
	return FetchTransactionRecord(ctx, c.RpcClient, sig)
}

func (c *Client) submit(ctx context.Context, op string, build InstructionsFunc) (solana.Signature, error) {
	sig, err := c.submitter.Submit(ctx, build, c.Signer)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send %s transaction: %w", op, err)
	}
	c.logger.Info().Str("op", op).Str("signature", sig.String()).Msg("transaction confirmed")
	return sig, nil
}

// fetchAccountData returns ErrAccountNotFound for missing or empty accounts.
func (c *Client) fetchAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	resp, err := c.RpcClient.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		return nil, err
	}
	if resp == nil || resp.Value == nil || resp.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	data := resp.Value.Data.GetBinary()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	return data, nil
}

func (c *Client) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.fetchAccountData(ctx, account)
	if errors.Is(err, ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
