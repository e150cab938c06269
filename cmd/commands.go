package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	faucet_protocol "faucet-cli/solana"
	"faucet-cli/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

var errAborted = errors.New("aborted by user")

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the faucet global state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, false)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			globalState, _, err := faucet_protocol.GlobalStatePDA(s.client.ProgramID)
			if err != nil {
				return err
			}
			cfg, err := s.client.GetGlobalState(ctx)
			if err != nil {
				if errors.Is(err, faucet_protocol.ErrAccountNotFound) {
					return fmt.Errorf("faucet is not initialized on %s: %w", s.cfg.Env, err)
				}
				return err
			}
			printGlobalConfig(os.Stdout, globalState, cfg)
			return nil
		},
	}
}

func newUserStatusCmd() *cobra.Command {
	var address string
	c := &cobra.Command{
		Use:   "user_status",
		Short: "Show the user pool of an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := solana.PublicKeyFromBase58(address)
			if err != nil {
				return &InputValidationError{Field: "address", Value: address, Reason: err.Error()}
			}
			s, err := newSession(cmd, false)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			userPool, _, err := faucet_protocol.UserPoolPDA(s.client.ProgramID, owner)
			if err != nil {
				return err
			}
			pool, err := s.client.GetUserPool(ctx, owner)
			if err != nil {
				if errors.Is(err, faucet_protocol.ErrAccountNotFound) {
					return fmt.Errorf("%s has no user pool, run init_user first: %w", owner, err)
				}
				return err
			}
			printUserPool(os.Stdout, userPool, pool, time.Now())
			return nil
		},
	}
	c.Flags().StringVarP(&address, "address", "a", "", "owner address")
	_ = c.MarkFlagRequired("address")
	return c
}

func newInitUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init_user",
		Short: "Create the user pool of the signer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, true)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sig, err := s.client.InitUserPool(ctx)
			if err != nil {
				return err
			}
			s.reportSignature("init_user", sig, 0)
			return nil
		},
	}
}

func newGetVaultBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get_vault_balance",
		Short: "Show the vault balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, false)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			vault, _, err := faucet_protocol.VaultPDA(s.client.ProgramID)
			if err != nil {
				return err
			}
			balance, err := s.client.GetVaultBalance(ctx)
			if err != nil {
				return err
			}
			printField(os.Stdout, "Vault", vault.String())
			printField(os.Stdout, "Balance", fmt.Sprintf("%s (%d lamports)", formatSOL(balance), balance))
			return nil
		},
	}
}

// fundsCmd is the shape shared by the commands that move lamports: parse -m, confirm if
// asked, run the operation inside a balance audit, print the outcome.
type fundsCmd struct {
	use, short string
	confirm    string // empty skips the prompt
	run        func(ctx context.Context, c *faucet_protocol.Client, lamports uint64) (solana.Signature, error)
}

func (f fundsCmd) build() *cobra.Command {
	var amount string
	c := &cobra.Command{
		Use:   f.use,
		Short: f.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := parseSOL("amount", amount)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, true)
			if err != nil {
				return err
			}
			if f.confirm != "" {
				ok, err := s.confirm(fmt.Sprintf(f.confirm, formatSOL(lamports)))
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			vault, _, err := faucet_protocol.VaultPDA(s.client.ProgramID)
			if err != nil {
				return err
			}
			signer := s.client.Signer.PublicKey()
			names := map[solana.PublicKey]string{vault: "Vault", signer: "Signer"}

			audit, err := runAudited(ctx, os.Stdout, s.client.Auditor(), []solana.PublicKey{vault, signer}, names,
				func(ctx context.Context) (solana.Signature, error) {
					return f.run(ctx, s.client, lamports)
				})
			if err != nil {
				return err
			}
			s.reportSignature(f.use, audit.Signature, lamports)
			printAudit(os.Stdout, names, audit)
			return nil
		},
	}
	c.Flags().StringVarP(&amount, "amount", "m", "", "amount in SOL")
	_ = c.MarkFlagRequired("amount")
	return c
}

// runAudited runs op inside a balance audit. When op fails the balances observed around
// the attempt are printed before the error is returned.
func runAudited(
	ctx context.Context,
	w io.Writer,
	auditor *faucet_protocol.BalanceAuditor,
	addrs []solana.PublicKey,
	names map[solana.PublicKey]string,
	op func(ctx context.Context) (solana.Signature, error),
) (*faucet_protocol.AuditResult, error) {
	audit, err := auditor.Around(ctx, addrs, op)
	if err != nil {
		if audit != nil {
			fmt.Fprintln(w, warningStyle.Render("Transaction failed"))
			printAudit(w, names, audit)
		}
		return nil, err
	}
	return audit, nil
}

func newDepositVaultCmd() *cobra.Command {
	return fundsCmd{
		use:     "deposit_vault",
		short:   "Deposit SOL from the admin into the vault",
		confirm: "Deposit %s into the vault?",
		run: func(ctx context.Context, c *faucet_protocol.Client, lamports uint64) (solana.Signature, error) {
			return c.DepositVault(ctx, lamports)
		},
	}.build()
}

func newWithdrawVaultCmd() *cobra.Command {
	return fundsCmd{
		use:     "withdraw_vault",
		short:   "Withdraw SOL from the vault to the admin",
		confirm: "Withdraw %s from the vault?",
		run: func(ctx context.Context, c *faucet_protocol.Client, lamports uint64) (solana.Signature, error) {
			return c.WithdrawVault(ctx, lamports)
		},
	}.build()
}

func newRequestFaucetCmd() *cobra.Command {
	return fundsCmd{
		use:   "request_faucet",
		short: "Request SOL from the faucet, creating the user pool if needed",
		run: func(ctx context.Context, c *faucet_protocol.Client, lamports uint64) (solana.Signature, error) {
			return c.RequestFaucet(ctx, lamports)
		},
	}.build()
}

func newUpdateLimitCmd() *cobra.Command {
	var amount string
	c := &cobra.Command{
		Use:   "update_limit",
		Short: "Change the per-day request limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := parseSOL("amount", amount)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, true)
			if err != nil {
				return err
			}
			ok, err := s.confirm(fmt.Sprintf("Set the daily limit to %s?", formatSOL(lamports)))
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sig, err := s.client.UpdateLimit(ctx, lamports)
			if err != nil {
				return err
			}
			s.reportSignature("update_limit", sig, lamports)
			return nil
		},
	}
	c.Flags().StringVarP(&amount, "amount", "m", "", "new limit in SOL")
	_ = c.MarkFlagRequired("amount")
	return c
}

func newInitCmd() *cobra.Command {
	var amount string
	c := &cobra.Command{
		Use:   "init",
		Short: "Initialize the faucet global state and vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports := faucet_protocol.DefaultMaxAmountPerDay
			if amount != "" {
				var err error
				if lamports, err = parseSOL("amount", amount); err != nil {
					return err
				}
			}
			s, err := newSession(cmd, true)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sig, err := s.client.InitProject(ctx, lamports)
			if err != nil {
				return err
			}
			s.reportSignature("init", sig, lamports)
			return nil
		},
	}
	c.Flags().StringVarP(&amount, "amount", "m", "", "max amount per day in SOL (default 0.00001)")
	return c
}

func newAirdropCmd() *cobra.Command {
	var amount, address string
	c := &cobra.Command{
		Use:   "airdrop",
		Short: "Request SOL from the cluster faucet (devnet and testnet)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := parseSOL("amount", amount)
			if err != nil {
				return err
			}
			s, err := newSession(cmd, address == "")
			if err != nil {
				return err
			}
			if s.cfg.Env == clusterMainnetBeta {
				return &InputValidationError{Field: "env", Value: s.cfg.Env, Reason: "airdrops are only available on devnet and testnet"}
			}
			to := s.client.Signer.PublicKey()
			if address != "" {
				if to, err = solana.PublicKeyFromBase58(address); err != nil {
					return &InputValidationError{Field: "address", Value: address, Reason: err.Error()}
				}
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sig, err := s.client.Airdrop(ctx, to, lamports)
			if err != nil {
				return err
			}
			printSignature(os.Stdout, sig, s.cfg.Env)
			printField(os.Stdout, "Recipient", to.String())
			return nil
		},
	}
	c.Flags().StringVarP(&amount, "amount", "m", "1", "amount in SOL")
	c.Flags().StringVarP(&address, "address", "a", "", "recipient (default the signer)")
	return c
}

func newHistoryCmd() *cobra.Command {
	var (
		limit     int
		signature string
	)
	c := &cobra.Command{
		Use:   "history",
		Short: "List faucet transactions sent from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if signature != "" {
				return inspectTransaction(cmd, signature)
			}

			db, err := storage.Connect()
			if err != nil {
				return err
			}
			defer db.Close()

			records, err := db.List(cfg.Env, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println(promptStyle.Render(fmt.Sprintf("No transactions recorded on %s.", cfg.Env)))
				return nil
			}
			printHistory(os.Stdout, records)
			return nil
		},
	}
	c.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show, 0 for all")
	c.Flags().StringVarP(&signature, "signature", "s", "", "fetch and show one transaction from the cluster")
	return c
}

func inspectTransaction(cmd *cobra.Command, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return &InputValidationError{Field: "signature", Value: signature, Reason: err.Error()}
	}
	s, err := newSession(cmd, false)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	rec, err := s.client.TransactionRecord(ctx, sig)
	if err != nil {
		return err
	}
	printTransactionRecord(os.Stdout, rec)
	return nil
}
