package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	faucet_protocol "faucet-cli/solana"
	"faucet-cli/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintGlobalConfig(t *testing.T) {
	var buf bytes.Buffer
	admin := solana.NewWallet().PublicKey()
	printGlobalConfig(&buf, solana.SystemProgramID, &faucet_protocol.GlobalConfig{
		Admin:           admin,
		MaxAmountPerDay: 10_000,
		VaultBump:       254,
	})

	out := buf.String()
	assert.Contains(t, out, admin.String())
	assert.Contains(t, out, "0.00001 SOL (10000 lamports)")
	assert.Contains(t, out, "254")
}

func TestPrintUserPool(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	requested := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pool := &faucet_protocol.UserPool{Owner: owner, ReceivedAmount: 5_000, RequestTime: uint64(requested.Unix())}

	var buf bytes.Buffer
	printUserPool(&buf, solana.SystemProgramID, pool, requested.Add(time.Hour))
	assert.Contains(t, buf.String(), "2024-01-02T00:00:00Z")

	buf.Reset()
	printUserPool(&buf, solana.SystemProgramID, pool, requested.Add(48*time.Hour))
	assert.Contains(t, buf.String(), "already reset")

	buf.Reset()
	printUserPool(&buf, solana.SystemProgramID, &faucet_protocol.UserPool{Owner: owner}, requested)
	assert.Contains(t, buf.String(), "never")
}

func TestPrintAudit(t *testing.T) {
	vault := solana.NewWallet().PublicKey()
	signer := solana.NewWallet().PublicKey()
	audit := &faucet_protocol.AuditResult{Balances: []faucet_protocol.BalanceChange{
		{Address: vault, Before: 2_000_000_000, After: 1_500_000_000},
		{Address: signer, Before: 0, After: 500_000_000},
	}}

	var buf bytes.Buffer
	printAudit(&buf, map[solana.PublicKey]string{vault: "Vault"}, audit)
	out := buf.String()
	assert.Contains(t, out, "Vault")
	assert.Contains(t, out, "(-0.5 SOL)")
	assert.Contains(t, out, shortAddress(signer))
	assert.Contains(t, out, "(+0.5 SOL)")

	buf.Reset()
	printAudit(&buf, nil, nil)
	assert.Empty(t, buf.String())
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []storage.Record{
		{Signature: "sig1", Operation: "request_faucet", Lamports: 10_000, Time: time.Now()},
		{Signature: "sig2", Operation: "init_user", Time: time.Now()},
	})
	out := buf.String()
	assert.Contains(t, out, "sig1")
	assert.Contains(t, out, "0.00001 SOL")
	assert.Contains(t, out, "init_user")
}

func TestPrintTransactionRecord(t *testing.T) {
	var buf bytes.Buffer
	printTransactionRecord(&buf, &faucet_protocol.TransactionRecord{
		Slot: 42,
		Fee:  5000,
		Err:  map[string]interface{}{"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6001}}},
		Logs: []string{"Program log: Instruction: RequestFaucet", "Program consumed 100 units"},
	})
	out := buf.String()
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "5000 lamports")
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "Instruction: RequestFaucet")
	assert.NotContains(t, out, "consumed")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "INFO")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	logger.Info().Str("component", "test").Msg("hello")
	assert.Contains(t, buf.String(), "hello")

	logger, err = newLogger(&buf, "")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	_, err = newLogger(&buf, "loud")
	var inputErr *InputValidationError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "log-level", inputErr.Field)
}
