package cmd

import (
	"fmt"
	"io"
	"time"

	faucet_protocol "faucet-cli/solana"
	"faucet-cli/storage"

	"github.com/gagliardetto/solana-go"
)

func printField(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelStyle.Render(label)+infoStyle.Render(value))
}

func printGlobalConfig(w io.Writer, address solana.PublicKey, cfg *faucet_protocol.GlobalConfig) {
	fmt.Fprintln(w, titleStyle.Render("Faucet Global State"))
	printField(w, "Address", address.String())
	printField(w, "Admin", cfg.Admin.String())
	printField(w, "Max amount per day", fmt.Sprintf("%s (%d lamports)", formatSOL(cfg.MaxAmountPerDay), cfg.MaxAmountPerDay))
	printField(w, "Vault bump", fmt.Sprint(cfg.VaultBump))
}

func printUserPool(w io.Writer, address solana.PublicKey, pool *faucet_protocol.UserPool, now time.Time) {
	fmt.Fprintln(w, titleStyle.Render("User Pool"))
	printField(w, "Address", address.String())
	printField(w, "Owner", pool.Owner.String())
	printField(w, "Received amount", fmt.Sprintf("%s (%d lamports)", formatSOL(pool.ReceivedAmount), pool.ReceivedAmount))
	if pool.RequestTime == 0 {
		printField(w, "Last request", "never")
		return
	}
	printField(w, "Last request", time.Unix(int64(pool.RequestTime), 0).UTC().Format(time.RFC3339))
	resets := pool.WindowResetsAt()
	if resets.After(now) {
		printField(w, "Window resets", resets.UTC().Format(time.RFC3339))
	} else {
		printField(w, "Window resets", "already reset")
	}
}

// shortAddress keeps an address inside the label column.
func shortAddress(addr solana.PublicKey) string {
	s := addr.String()
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-6:]
}

func printSignature(w io.Writer, sig solana.Signature, cluster string) {
	fmt.Fprintln(w, titleStyle.Render("✅ Transaction confirmed"))
	printField(w, "Signature", sig.String())
	printField(w, "Explorer", faucet_protocol.ExplorerTxURL(sig, cluster))
}

func printAudit(w io.Writer, names map[solana.PublicKey]string, audit *faucet_protocol.AuditResult) {
	if audit == nil {
		return
	}
	fmt.Fprintln(w, promptStyle.Render("Balance changes:"))
	for _, b := range audit.Balances {
		name, ok := names[b.Address]
		if !ok {
			name = shortAddress(b.Address)
		}
		sign := "+"
		delta := b.Delta()
		if delta < 0 {
			sign = "-"
			delta = -delta
		}
		printField(w, name, fmt.Sprintf("%s -> %s (%s%s)", formatSOL(b.Before), formatSOL(b.After), sign, formatSOL(uint64(delta))))
	}
}

func printHistory(w io.Writer, records []storage.Record) {
	fmt.Fprintln(w, titleStyle.Render("Transaction History"))
	for _, r := range records {
		line := fmt.Sprintf("%-15s %s", r.Operation, r.Signature)
		if r.Lamports > 0 {
			line += " " + formatSOL(r.Lamports)
		}
		printField(w, r.Time.Local().Format(time.DateTime), line)
	}
}

func printTransactionRecord(w io.Writer, rec *faucet_protocol.TransactionRecord) {
	fmt.Fprintln(w, titleStyle.Render("Transaction"))
	printField(w, "Signature", rec.Signature.String())
	printField(w, "Slot", fmt.Sprint(rec.Slot))
	if !rec.BlockTime.IsZero() {
		printField(w, "Block time", rec.BlockTime.UTC().Format(time.RFC3339))
	}
	printField(w, "Fee", fmt.Sprintf("%d lamports", rec.Fee))
	if rec.Failed() {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("Failed: %v", rec.Err)))
	} else {
		printField(w, "Status", "success")
	}
	for _, line := range rec.ProgramLogs() {
		printField(w, "Log", line)
	}
}
