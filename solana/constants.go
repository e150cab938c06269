package faucet_protocol

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID is the address of the deployed faucet program.
var ProgramID = solana.MustPublicKeyFromBase58("9r8MYFtBHo7FkBpiD9KW3ddoJEiYNPuqGzDnU1nJpgAC")

// PDA seeds
const (
	GlobalStateSeed = "global-state"
	UserPoolSeed    = "user-pool"
	VaultWalletSeed = "vault-wallet"
)

const (
	// DayTime is the length of the faucet rate-limit window in seconds.
	DayTime = 86400

	// DefaultMaxAmountPerDay is used by InitProject when no limit is given (0.00001 SOL).
	DefaultMaxAmountPerDay uint64 = 10_000
)

const explorerTxURL = "https://explorer.solana.com/tx/%s"

// ExplorerTxURL links sig on the Solana explorer for the named cluster.
func ExplorerTxURL(sig solana.Signature, cluster string) string {
	url := fmt.Sprintf(explorerTxURL, sig)
	if cluster != "" && cluster != "mainnet-beta" {
		url += "?cluster=" + cluster
	}
	return url
}
