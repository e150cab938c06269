package faucet_protocol

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

const (
	defaultConfigDirName = ".config"
	solanaConfigDirName  = "solana"
	keypairFileName      = "id.json"
)

// Wallet holds the keypair that pays for and signs faucet transactions.
type Wallet struct {
	PrivateKey solana.PrivateKey
}

// PublicKey returns the public key of the wallet.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.PrivateKey.PublicKey()
}

// LoadWallet loads a keypair file in the Solana CLI JSON byte-array format. An empty
// path falls back to ANCHOR_WALLET, then ~/.config/solana/id.json.
func LoadWallet(path string) (*Wallet, error) {
	if path == "" {
		path = os.Getenv("ANCHOR_WALLET")
	}
	if path == "" {
		p, err := DefaultKeypairPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get keypair path: %w", err)
		}
		path = p
	}
	return loadWalletFromFile(expandHome(path))
}

// WalletFromBase58 decodes a base58 encoded 64-byte secret key.
func WalletFromBase58(encoded string) (*Wallet, error) {
	raw, err := base58.Decode(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base58 private key: %w", err)
	}
	return walletFromBytes(raw)
}

// loadWalletFromFile loads a private key from a file.
func loadWalletFromFile(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}

	var privateKeyBytes []byte
	if err := json.Unmarshal(data, &privateKeyBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keypair file: %w", err)
	}
	return walletFromBytes(privateKeyBytes)
}

func walletFromBytes(privateKeyBytes []byte) (*Wallet, error) {
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected %d, got %d", 64, len(privateKeyBytes))
	}
	privateKey := make(solana.PrivateKey, len(privateKeyBytes))
	copy(privateKey, privateKeyBytes)
	// The second half of the secret key must be the public key derived from the seed.
	derived := ed25519.NewKeyFromSeed(privateKeyBytes[:ed25519.SeedSize])
	if !bytes.Equal(derived, privateKeyBytes) {
		return nil, fmt.Errorf("invalid private key: public half does not match secret")
	}
	return &Wallet{PrivateKey: privateKey}, nil
}

// DefaultKeypairPath returns the Solana CLI default keypair location,
// e.g. /home/user/.config/solana/id.json.
func DefaultKeypairPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultConfigDirName, solanaConfigDirName, keypairFileName), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
