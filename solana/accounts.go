package faucet_protocol

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// GlobalConfigSize is discriminator(8) + admin(32) + maxAmountPerDay(8) + vaultBump(1).
	GlobalConfigSize = 8 + 32 + 8 + 1
	// UserPoolSize is discriminator(8) + owner(32) + receivedAmount(8) + requestTime(8).
	UserPoolSize = 8 + 32 + 8 + 8
)

var (
	GlobalStateDiscriminator = accountDiscriminator("GlobalState")
	UserPoolDiscriminator    = accountDiscriminator("UserPool")
)

func accountDiscriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte("account:" + name))
	var disc [8]byte
	copy(disc[:], hash[:8])
	return disc
}

// GlobalConfig is the program-wide GlobalState account.
type GlobalConfig struct {
	Admin           solana.PublicKey
	MaxAmountPerDay uint64
	VaultBump       uint8
}

func (obj GlobalConfig) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(GlobalStateDiscriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(obj.Admin[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(obj.MaxAmountPerDay, bin.LE); err != nil {
		return err
	}
	return encoder.WriteUint8(obj.VaultBump)
}

func (obj *GlobalConfig) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, GlobalStateDiscriminator, "GlobalState"); err != nil {
		return err
	}
	admin, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	obj.Admin = solana.PublicKeyFromBytes(admin)
	if obj.MaxAmountPerDay, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if obj.VaultBump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	return nil
}

// Encode serialises the record in its on-chain layout, discriminator included.
func (obj GlobalConfig) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := obj.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode GlobalState: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGlobalConfig parses raw GlobalState account data. Trailing bytes are ignored.
func DecodeGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) < GlobalConfigSize {
		return nil, &DecodeError{Account: "GlobalState", Reason: fmt.Sprintf("expected at least %d bytes, got %d", GlobalConfigSize, len(data))}
	}
	var cfg GlobalConfig
	if err := cfg.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, asDecodeError("GlobalState", err)
	}
	return &cfg, nil
}

// UserPool tracks how much one requester has drawn in the current day window.
type UserPool struct {
	Owner          solana.PublicKey
	ReceivedAmount uint64
	RequestTime    uint64
}

func (obj UserPool) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(UserPoolDiscriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(obj.Owner[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(obj.ReceivedAmount, bin.LE); err != nil {
		return err
	}
	return encoder.WriteUint64(obj.RequestTime, bin.LE)
}

func (obj *UserPool) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := checkDiscriminator(decoder, UserPoolDiscriminator, "UserPool"); err != nil {
		return err
	}
	owner, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	obj.Owner = solana.PublicKeyFromBytes(owner)
	if obj.ReceivedAmount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if obj.RequestTime, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	return nil
}

func (obj UserPool) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := obj.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode UserPool: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeUserPool parses raw UserPool account data.
func DecodeUserPool(data []byte) (*UserPool, error) {
	if len(data) < UserPoolSize {
		return nil, &DecodeError{Account: "UserPool", Reason: fmt.Sprintf("expected at least %d bytes, got %d", UserPoolSize, len(data))}
	}
	var pool UserPool
	if err := pool.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, asDecodeError("UserPool", err)
	}
	return &pool, nil
}

// WindowResetsAt is when the program will next reset ReceivedAmount. Display only; the
// program enforces the window.
func (obj UserPool) WindowResetsAt() time.Time {
	return time.Unix(int64(obj.RequestTime)+DayTime, 0)
}

func checkDiscriminator(decoder *bin.Decoder, want [8]byte, account string) error {
	got, err := decoder.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want[:]) {
		return &DecodeError{Account: account, Reason: fmt.Sprintf("discriminator mismatch: expected %x, got %x", want, got)}
	}
	return nil
}

func asDecodeError(account string, err error) error {
	if de, ok := err.(*DecodeError); ok {
		return de
	}
	return &DecodeError{Account: account, Reason: err.Error()}
}
