package faucet_protocol

import (
	"bytes"
	"errors"
	"testing"

	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onCurve(pk solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

func TestSeedBytes(t *testing.T) {
	owner := solana.MustPublicKeyFromBase58("11111111111111111111111111111112")

	tests := []struct {
		name string
		seed Seed
		want []byte
	}{
		{"string", StringSeed("user-pool"), []byte("user-pool")},
		{"uint32 little endian", Uint32Seed(0x01020304), []byte{0x04, 0x03, 0x02, 0x01}},
		{"uint32 zero", Uint32Seed(0), []byte{0, 0, 0, 0}},
		{"pubkey", PubkeySeed(owner), owner.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.seed.Bytes())
		})
	}
}

func TestDerivePDA_Deterministic(t *testing.T) {
	owner := solana.NewWallet().PublicKey()

	a, bumpA, err := DerivePDA(ProgramID, StringSeed(UserPoolSeed), PubkeySeed(owner))
	require.NoError(t, err)
	b, bumpB, err := DerivePDA(ProgramID, StringSeed(UserPoolSeed), PubkeySeed(owner))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, bumpA, bumpB)
	assert.False(t, onCurve(a), "derived address must be off the ed25519 curve")
}

func TestDerivePDA_MatchesFindProgramAddress(t *testing.T) {
	want, wantBump, err := solana.FindProgramAddress([][]byte{[]byte(GlobalStateSeed)}, ProgramID)
	require.NoError(t, err)

	got, bump, err := GlobalStatePDA(ProgramID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, wantBump, bump)
}

func TestDerivePDA_SeedOrderMatters(t *testing.T) {
	a, _, err := DerivePDA(ProgramID, StringSeed("a"), StringSeed("b"))
	require.NoError(t, err)
	b, _, err := DerivePDA(ProgramID, StringSeed("b"), StringSeed("a"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDerivePDA_DistinctAddresses(t *testing.T) {
	globalState, _, err := GlobalStatePDA(ProgramID)
	require.NoError(t, err)
	vault, _, err := VaultPDA(ProgramID)
	require.NoError(t, err)
	pool1, _, err := UserPoolPDA(ProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	pool2, _, err := UserPoolPDA(ProgramID, solana.NewWallet().PublicKey())
	require.NoError(t, err)

	addrs := []solana.PublicKey{globalState, vault, pool1, pool2}
	for i := range addrs {
		assert.False(t, onCurve(addrs[i]))
		for j := i + 1; j < len(addrs); j++ {
			assert.NotEqual(t, addrs[i], addrs[j])
		}
	}
}

func TestDerivePDA_InvalidSeeds(t *testing.T) {
	t.Run("seed too long", func(t *testing.T) {
		_, _, err := DerivePDA(ProgramID, StringSeed(bytes.Repeat([]byte("x"), 33)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidSeed))
	})

	t.Run("max length seed is accepted", func(t *testing.T) {
		_, _, err := DerivePDA(ProgramID, StringSeed(bytes.Repeat([]byte("x"), 32)))
		assert.NoError(t, err)
	})

	t.Run("too many seeds", func(t *testing.T) {
		seeds := make([]Seed, 16)
		for i := range seeds {
			seeds[i] = Uint32Seed(i)
		}
		_, _, err := DerivePDA(ProgramID, seeds...)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidSeed)
	})
}
