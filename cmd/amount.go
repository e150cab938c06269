package cmd

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// InputValidationError is a malformed value supplied on the command line. It is raised
// before any network call.
type InputValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

var (
	lamportsPerSol = new(big.Rat).SetUint64(solana.LAMPORTS_PER_SOL)
	decimalPattern = regexp.MustCompile(`^\+?(\d+\.?\d*|\.\d+)([eE][+-]?\d{1,3})?$`)
)

// parseSOL converts a human SOL amount to lamports, rounding down.
func parseSOL(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, &InputValidationError{Field: field, Value: s, Reason: "must not be negative"}
	}
	if !decimalPattern.MatchString(s) {
		return 0, &InputValidationError{Field: field, Value: s, Reason: "not a decimal number"}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, &InputValidationError{Field: field, Value: s, Reason: "not a decimal number"}
	}

	r.Mul(r, lamportsPerSol)
	lamports := new(big.Int).Quo(r.Num(), r.Denom())
	if lamports.Sign() == 0 && r.Sign() != 0 {
		return 0, &InputValidationError{Field: field, Value: s, Reason: "smaller than one lamport"}
	}
	if !lamports.IsUint64() {
		return 0, &InputValidationError{Field: field, Value: s, Reason: "too large"}
	}
	return lamports.Uint64(), nil
}

// formatSOL renders lamports as SOL without losing precision.
func formatSOL(lamports uint64) string {
	whole := lamports / solana.LAMPORTS_PER_SOL
	frac := lamports % solana.LAMPORTS_PER_SOL
	if frac == 0 {
		return fmt.Sprintf("%d SOL", whole)
	}
	return fmt.Sprintf("%d.%s SOL", whole, strings.TrimRight(fmt.Sprintf("%09d", frac), "0"))
}
