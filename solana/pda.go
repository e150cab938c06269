package faucet_protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed is a single positional input to program address derivation.
type Seed interface {
	Bytes() []byte
}

// StringSeed is encoded as its raw UTF-8 bytes.
type StringSeed string

func (s StringSeed) Bytes() []byte { return []byte(s) }

// Uint32Seed is encoded as 4 little-endian bytes.
type Uint32Seed uint32

func (s Uint32Seed) Bytes() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(s))
	return b
}

// PubkeySeed is encoded as the 32 raw key bytes.
type PubkeySeed solana.PublicKey

func (s PubkeySeed) Bytes() []byte {
	b := make([]byte, solana.PublicKeyLength)
	copy(b, s[:])
	return b
}

// DerivePDA maps a program id and an ordered seed list to a program derived address and
// its bump. The same inputs always produce the same output, and the address is never a
// valid ed25519 point.
func DerivePDA(programID solana.PublicKey, seeds ...Seed) (solana.PublicKey, uint8, error) {
	// One slot is reserved for the bump.
	if len(seeds) > solana.MaxSeeds-1 {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %d seeds, at most %d allowed", ErrInvalidSeed, len(seeds), solana.MaxSeeds-1)
	}

	raw := make([][]byte, 0, len(seeds))
	for i, seed := range seeds {
		b := seed.Bytes()
		if len(b) > solana.MaxSeedLength {
			return solana.PublicKey{}, 0, fmt.Errorf("%w: seed %d is %d bytes, at most %d allowed", ErrInvalidSeed, i, len(b), solana.MaxSeedLength)
		}
		raw = append(raw, b)
	}

	pda, bump, err := solana.FindProgramAddress(raw, programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %v", ErrDerivationExhausted, err)
	}
	return pda, bump, nil
}

// GlobalStatePDA returns the address of the GlobalState account.
func GlobalStatePDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return DerivePDA(programID, StringSeed(GlobalStateSeed))
}

// VaultPDA returns the address of the lamport vault.
func VaultPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return DerivePDA(programID, StringSeed(VaultWalletSeed))
}

// UserPoolPDA returns the address of the user pool owned by owner.
func UserPoolPDA(programID, owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return DerivePDA(programID, StringSeed(UserPoolSeed), PubkeySeed(owner))
}
