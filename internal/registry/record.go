package registry

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/near/borsh-go"
	"github.com/zeebo/blake3"
)

// Hash is a 32-byte proof identifier.
type Hash [32]byte

// Identity is a 32-byte account identity (public key).
type Identity [32]byte

// String returns the lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// String returns the lowercase hex encoding of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// ParseHash decodes a 64-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash

	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return Hash{}, fmt.Errorf("invalid hash %q", s)
	}

	copy(h[:], b)

	return h, nil
}

// ParseIdentity decodes a 64-character hex string into an Identity.
func ParseIdentity(s string) (Identity, error) {
	h, err := ParseHash(s)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid identity %q", s)
	}

	return Identity(h), nil
}

// RegistryState is the singleton ownership and counter record.
// Authority never changes after initialization; TotalVerifications is bumped
// exactly once per successful verification.
type RegistryState struct {
	Authority          Identity
	TotalVerifications uint64
}

// VerificationRecord is the durable, write-once result of a successful
// submission. A record exists only if verification succeeded, so Verified is
// always true on stored records; the field is kept for wire compatibility
// with the account layout.
type VerificationRecord struct {
	ProofHash  Hash
	Submitter  Identity
	Threshold  uint64
	Commitment uint64
	Verified   bool
	Timestamp  int64
	Nonce      uint8
}

// Account discriminators, 8-byte tags prefixed to the borsh body so a raw
// value can never be decoded as the wrong record type.
var (
	stateDiscriminator  = accountDiscriminator("RegistryState")
	recordDiscriminator = accountDiscriminator("VerificationRecord")
)

// accountDiscriminator derives the 8-byte tag for an account type name.
func accountDiscriminator(name string) []byte {
	sum := blake3.Sum256([]byte("account:" + name))
	return sum[:8]
}

// encodeState serializes a RegistryState with its discriminator prefix.
func encodeState(s *RegistryState) ([]byte, error) {
	body, err := borsh.Serialize(*s)
	if err != nil {
		return nil, fmt.Errorf("encode state:\n%w", err)
	}

	return append(append([]byte{}, stateDiscriminator...), body...), nil
}

// decodeState deserializes a RegistryState, checking the discriminator.
func decodeState(data []byte) (*RegistryState, error) {
	body, err := stripDiscriminator(data, stateDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("decode state:\n%w", err)
	}

	var s RegistryState
	if err := borsh.Deserialize(&s, body); err != nil {
		return nil, fmt.Errorf("decode state:\n%w", err)
	}

	return &s, nil
}

// encodeRecord serializes a VerificationRecord with its discriminator prefix.
func encodeRecord(r *VerificationRecord) ([]byte, error) {
	body, err := borsh.Serialize(*r)
	if err != nil {
		return nil, fmt.Errorf("encode record:\n%w", err)
	}

	return append(append([]byte{}, recordDiscriminator...), body...), nil
}

// decodeRecord deserializes a VerificationRecord, checking the discriminator.
func decodeRecord(data []byte) (*VerificationRecord, error) {
	body, err := stripDiscriminator(data, recordDiscriminator)
	if err != nil {
		return nil, fmt.Errorf("decode record:\n%w", err)
	}

	var r VerificationRecord
	if err := borsh.Deserialize(&r, body); err != nil {
		return nil, fmt.Errorf("decode record:\n%w", err)
	}

	return &r, nil
}

// stripDiscriminator validates and removes the 8-byte type tag.
func stripDiscriminator(data, want []byte) ([]byte, error) {
	if len(data) < len(want) {
		return nil, fmt.Errorf("data too short: %d bytes", len(data))
	}

	if !bytes.Equal(data[:len(want)], want) {
		return nil, fmt.Errorf("discriminator mismatch")
	}

	return data[len(want):], nil
}
