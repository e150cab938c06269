package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	faucet_protocol "faucet-cli/solana"
	"faucet-cli/storage"

	"github.com/AlecAivazis/survey/v2"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const clusterHelp = "Cluster is selected with --env: mainnet-beta, testnet, devnet (default)."

var rootCmd = &cobra.Command{
	Use:   "faucet-cli",
	Short: "faucet-cli talks to the rate-limited Solana faucet program.",
	Long: `A command-line client for the Solana faucet program: inspect the global state and
user pools, request lamports from the vault, and run the admin vault operations.

` + clusterHelp,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		myFigure := figure.NewFigure("FAUCET", "larry3d", true)
		fmt.Println(titleStyle.Render(myFigure.String()))
		_ = cmd.Help()
	},
}

func init() {
	registerFlags(rootCmd)
	rootCmd.AddCommand(
		newStatusCmd(),
		newUserStatusCmd(),
		newInitUserCmd(),
		newGetVaultBalanceCmd(),
		newDepositVaultCmd(),
		newWithdrawVaultCmd(),
		newRequestFaucetCmd(),
		newUpdateLimitCmd(),
		newInitCmd(),
		newAirdropCmd(),
		newHistoryCmd(),
	)
}

// registerFlags installs the session flags read by loadConfig.
func registerFlags(c *cobra.Command) {
	flags := c.PersistentFlags()
	flags.StringP("env", "e", clusterDevnet, "Solana cluster: mainnet-beta, testnet or devnet")
	flags.String("rpc", "", "RPC endpoint, overrides --env")
	flags.StringP("keypair", "k", "", "keypair file (default $ANCHOR_WALLET or ~/.config/solana/id.json)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.Int("max-retries", faucet_protocol.DefaultRetryPolicy().MaxAttempts, "submission attempts on an expired blockhash, 0 retries until interrupted")
	flags.BoolP("yes", "y", false, "skip confirmation prompts")
	flags.Bool("open", false, "open confirmed transactions in the explorer")
}

// session is everything a command needs, built once per invocation.
type session struct {
	cfg    *Config
	logger zerolog.Logger
	client *faucet_protocol.Client
}

// newSession loads config and builds a client. Commands that send transactions pass
// needSigner so the keypair is loaded; read-only commands run with a throwaway key.
func newSession(cmd *cobra.Command, needSigner bool) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}

	opts := []faucet_protocol.ClientOption{
		faucet_protocol.WithLogger(logger),
		faucet_protocol.WithSubmitterOptions(faucet_protocol.WithRetryPolicy(retryPolicy(cfg.MaxRetries))),
	}

	logger.Debug().Str("env", cfg.Env).Str("endpoint", endpoint).Msg("solana config")
	fmt.Println(promptStyle.Render(fmt.Sprintf("Solana config: %s", cfg.Env)))

	var client *faucet_protocol.Client
	if needSigner {
		wallet, err := loadWallet(cfg)
		if err != nil {
			return nil, err
		}
		client, err = faucet_protocol.NewClient(endpoint, wallet.PrivateKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Solana client: %w", err)
		}
		fmt.Println(promptStyle.Render(fmt.Sprintf("Signer: %s", wallet.PublicKey())))
	} else {
		client, err = faucet_protocol.NewReadOnlyClient(endpoint, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Solana client: %w", err)
		}
	}

	return &session{cfg: cfg, logger: logger, client: client}, nil
}

func retryPolicy(maxRetries int) faucet_protocol.RetryPolicy {
	p := faucet_protocol.DefaultRetryPolicy()
	p.MaxAttempts = maxRetries
	return p
}

func loadWallet(cfg *Config) (*faucet_protocol.Wallet, error) {
	if cfg.PrivateKey != "" {
		return faucet_protocol.WalletFromBase58(cfg.PrivateKey)
	}
	return faucet_protocol.LoadWallet(cfg.Keypair)
}

// confirm asks before an admin operation moves funds or changes limits.
func (s *session) confirm(message string) (bool, error) {
	if s.cfg.Yes {
		return true, nil
	}
	ok := false
	prompt := &survey.Confirm{
		Message: promptStyle.Render(message),
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// reportSignature prints a confirmed signature, records it in the local history and
// optionally opens it in the explorer.
func (s *session) reportSignature(op string, sig solana.Signature, amount uint64) {
	printSignature(os.Stdout, sig, s.cfg.Env)
	s.record(op, sig, amount)
	if s.cfg.OpenExplorer {
		openURL(faucet_protocol.ExplorerTxURL(sig, s.cfg.Env))
	}
}

func (s *session) record(op string, sig solana.Signature, amount uint64) {
	db, err := storage.Connect()
	if err != nil {
		s.logger.Warn().Err(err).Msg("history not available")
		return
	}
	entry := storage.Record{
		Signature: sig.String(),
		Operation: op,
		Cluster:   s.cfg.Env,
		Signer:    s.client.Signer.PublicKey().String(),
		Lamports:  amount,
		Time:      time.Now().UTC(),
	}
	if err := db.Append(entry); err != nil {
		s.logger.Warn().Err(err).Str("signature", entry.Signature).Msg("failed to record transaction")
	}
}

// commandContext cancels on SIGINT/SIGTERM so unbounded retries can be interrupted.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func openURL(url string) {
	fmt.Println(promptStyle.Render(fmt.Sprintf("Opening %s in your browser...", url)))
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}
	if err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("Error opening URL: %v", err)))
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(warningStyle.Render(fmt.Sprintf("❌ %v", err)))
		os.Exit(1)
	}
}
