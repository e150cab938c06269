package faucet_protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrInvalidSeed is returned when a seed is too long or too many seeds are given.
	ErrInvalidSeed = errors.New("invalid seed")
	// ErrDerivationExhausted is returned when no bump yields an off-curve address.
	ErrDerivationExhausted = errors.New("unable to find a viable program address bump")
	// ErrAccountNotFound is returned when an account fetch comes back empty.
	ErrAccountNotFound = errors.New("account not found")
	// ErrBlockhashExpired means the transaction's blockhash left its validity window
	// before the transaction was confirmed.
	ErrBlockhashExpired = errors.New("blockhash expired")
	// ErrRetriesExhausted is returned when every attempt allowed by the RetryPolicy hit
	// an expired blockhash.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrUserPoolNotInitialized is returned by RequestFaucet when auto-init is disabled.
	ErrUserPoolNotInitialized = errors.New("user pool not initialized")
)

// DecodeError reports a buffer that cannot be decoded into the named account type.
type DecodeError struct {
	Account string
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s account: %s", e.Account, e.Reason)
}

// ProgramError is a rejection raised by the faucet program itself.
type ProgramError struct {
	Code int
	Name string
	Msg  string
	Logs []string
	Err  error
}

func (e *ProgramError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("program error %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("program error %d (%s): %s", e.Code, e.Name, e.Msg)
}

func (e *ProgramError) Unwrap() error { return e.Err }

// TransactionFailedError is a transaction that landed (or was simulated) and failed for a
// reason other than a program error or an expired blockhash.
type TransactionFailedError struct {
	Signature solana.Signature
	Logs      []string
	Err       error
}

func (e *TransactionFailedError) Error() string {
	if e.Signature.IsZero() {
		return fmt.Sprintf("transaction failed: %v", e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

func (e *TransactionFailedError) Unwrap() error { return e.Err }

var (
	customCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"Custom":\s*(\d+)`),
		regexp.MustCompile(`Custom:\s*(\d+)`),
		regexp.MustCompile(`Error Number:\s*(\d+)`),
	}
	customHexPattern    = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	programLogPattern   = regexp.MustCompile(`Program log: ([^"\n]+)`)
	rawSignaturePattern = regexp.MustCompile(`Raw transaction ([1-9A-HJ-NP-Za-km-z]{64,88})`)
)

// isBlockhashExpired reports whether an RPC error means the blockhash is no longer valid.
func isBlockhashExpired(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBlockhashExpired) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "blockhash not found") ||
		strings.Contains(msg, "blockhashnotfound") ||
		strings.Contains(msg, "unable to obtain a new blockhash") ||
		strings.Contains(msg, "block height exceeded")
}

// extractErrorCode finds a custom program error code in an RPC error or a transaction
// status error.
func extractErrorCode(v interface{}) (int, bool) {
	if v == nil {
		return 0, false
	}

	var text string
	switch e := v.(type) {
	case error:
		text = e.Error()
		if rpcErr, ok := asRPCError(e); ok {
			if data, ok := rpcErr.Data.(map[string]interface{}); ok && data["err"] != nil {
				if code, ok := extractErrorCode(data["err"]); ok {
					return code, true
				}
			}
		}
	case string:
		text = e
	default:
		b, err := json.Marshal(e)
		if err != nil {
			text = fmt.Sprint(e)
		} else {
			text = string(b)
		}
	}

	for _, re := range customCodePatterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			if code, err := strconv.Atoi(m[1]); err == nil {
				return code, true
			}
		}
	}
	if m := customHexPattern.FindStringSubmatch(text); len(m) > 1 {
		if code, err := strconv.ParseInt(m[1], 16, 64); err == nil {
			return int(code), true
		}
	}
	return 0, false
}

// extractLogs pulls "Program log:" lines out of an RPC error.
func extractLogs(err error) []string {
	if err == nil {
		return nil
	}
	var logs []string
	seen := make(map[string]bool)

	// Preflight failures carry the simulation logs in the RPC error data.
	if rpcErr, ok := asRPCError(err); ok {
		if data, ok := rpcErr.Data.(map[string]interface{}); ok {
			if raw, ok := data["logs"].([]interface{}); ok {
				for _, l := range raw {
					line, ok := l.(string)
					if !ok || !strings.HasPrefix(line, "Program log: ") {
						continue
					}
					line = strings.TrimPrefix(line, "Program log: ")
					if !seen[line] {
						seen[line] = true
						logs = append(logs, line)
					}
				}
				return logs
			}
		}
	}

	for _, m := range programLogPattern.FindAllStringSubmatch(err.Error(), -1) {
		line := strings.TrimSpace(strings.TrimSuffix(m[1], `\`))
		if line != "" && !seen[line] {
			seen[line] = true
			logs = append(logs, line)
		}
	}
	return logs
}

// extractSignature recovers the signature embedded in a raw-transaction failure message.
func extractSignature(err error) (solana.Signature, bool) {
	if err == nil {
		return solana.Signature{}, false
	}
	m := rawSignaturePattern.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return solana.Signature{}, false
	}
	sig, perr := solana.SignatureFromBase58(m[1])
	if perr != nil {
		return solana.Signature{}, false
	}
	return sig, true
}

// newProgramError resolves code against the program's error table.
func newProgramError(code int, logs []string, cause error) *ProgramError {
	pe := &ProgramError{Code: code, Logs: logs, Err: cause}
	if def, ok := LookupProgramError(code); ok {
		pe.Name = def.Name
		pe.Msg = def.Msg
	}
	return pe
}

// classifyError maps a send or status error to the error taxonomy.
func classifyError(sig solana.Signature, err error) error {
	if err == nil {
		return nil
	}
	if isBlockhashExpired(err) {
		return fmt.Errorf("%w: %v", ErrBlockhashExpired, err)
	}
	logs := extractLogs(err)
	if code, ok := extractErrorCode(err); ok {
		return newProgramError(code, logs, err)
	}
	if sig.IsZero() {
		if s, ok := extractSignature(err); ok {
			sig = s
		}
	}
	return &TransactionFailedError{Signature: sig, Logs: logs, Err: err}
}
