package faucet_protocol

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

func instructionDiscriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte("global:" + name))
	var disc [8]byte
	copy(disc[:], hash[:8])
	return disc
}

// Instruction discriminators
var (
	InitializeDiscriminator    = instructionDiscriminator("initialize")
	UpdateLimitDiscriminator   = instructionDiscriminator("update_limit")
	DepositVaultDiscriminator  = instructionDiscriminator("deposit_vault")
	WithdrawVaultDiscriminator = instructionDiscriminator("withdraw_vault")
	InitUserPoolDiscriminator  = instructionDiscriminator("init_user_pool")
	RequestFaucetDiscriminator = instructionDiscriminator("request_faucet")
)

// encodeInstructionData writes the discriminator followed by the Borsh encoded args.
func encodeInstructionData(disc [8]byte, args ...interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, err
	}
	for _, arg := range args {
		var err error
		switch v := arg.(type) {
		case uint64:
			err = enc.WriteUint64(v, bin.LE)
		case uint8:
			err = enc.WriteUint8(v)
		default:
			err = fmt.Errorf("unsupported instruction argument type %T", arg)
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// NewInitializeInstruction creates the one-time setup instruction for the global state
// and vault.
func NewInitializeInstruction(programID, admin solana.PublicKey, maxAmountPerDay uint64) (solana.Instruction, error) {
	globalState, _, err := GlobalStatePDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get global state PDA: %w", err)
	}
	vault, vaultBump, err := VaultPDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault PDA: %w", err)
	}

	data, err := encodeInstructionData(InitializeDiscriminator, maxAmountPerDay, vaultBump)
	if err != nil {
		return nil, fmt.Errorf("failed to encode initialize args: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(globalState).WRITE(),
		solana.Meta(vault).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewUpdateLimitInstruction changes the per-day cap. Only the admin may sign it.
func NewUpdateLimitInstruction(programID, admin solana.PublicKey, maxAmountPerDay uint64) (solana.Instruction, error) {
	globalState, _, err := GlobalStatePDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get global state PDA: %w", err)
	}

	data, err := encodeInstructionData(UpdateLimitDiscriminator, maxAmountPerDay)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update_limit args: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(admin).SIGNER(),
		solana.Meta(globalState).WRITE(),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

func NewDepositVaultInstruction(programID, admin solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return newVaultTransferInstruction(programID, admin, DepositVaultDiscriminator, amount)
}

func NewWithdrawVaultInstruction(programID, admin solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return newVaultTransferInstruction(programID, admin, WithdrawVaultDiscriminator, amount)
}

// deposit_vault and withdraw_vault share an account list.
func newVaultTransferInstruction(programID, admin solana.PublicKey, disc [8]byte, amount uint64) (solana.Instruction, error) {
	globalState, _, err := GlobalStatePDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get global state PDA: %w", err)
	}
	vault, _, err := VaultPDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault PDA: %w", err)
	}

	data, err := encodeInstructionData(disc, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault args: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(globalState),
		solana.Meta(vault).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewInitUserPoolInstruction creates the payer's user pool.
func NewInitUserPoolInstruction(programID, payer solana.PublicKey) (solana.Instruction, error) {
	userPool, _, err := UserPoolPDA(programID, payer)
	if err != nil {
		return nil, fmt.Errorf("failed to get user pool PDA: %w", err)
	}

	data, err := encodeInstructionData(InitUserPoolDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("failed to encode init_user_pool args: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(userPool).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewRequestFaucetInstruction asks the program to move amount lamports from the vault to
// payer. The payer's user pool must already exist.
func NewRequestFaucetInstruction(programID, payer solana.PublicKey, amount uint64) (solana.Instruction, error) {
	globalState, _, err := GlobalStatePDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get global state PDA: %w", err)
	}
	vault, _, err := VaultPDA(programID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault PDA: %w", err)
	}
	userPool, _, err := UserPoolPDA(programID, payer)
	if err != nil {
		return nil, fmt.Errorf("failed to get user pool PDA: %w", err)
	}

	data, err := encodeInstructionData(RequestFaucetDiscriminator, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request_faucet args: %w", err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(globalState),
		solana.Meta(vault).WRITE(),
		solana.Meta(userPool).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewInitialVaultFundingInstruction is a plain system transfer that makes the vault
// rent exempt. It is sent alongside initialize.
func NewInitialVaultFundingInstruction(from, vault solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	ix, err := system.NewTransferInstruction(lamports, from, vault).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build vault funding transfer: %w", err)
	}
	return ix, nil
}
