package registry

import "github.com/zeebo/blake3"

// Namespace seeds for address derivation. Records and the singleton state
// live in disjoint namespaces of the key space.
var (
	stateSeed  = []byte("verifier-state")
	recordSeed = []byte("verification")
)

// canonicalNonce is the derivation tag used for record addresses. It is
// stored in each record so the address can be re-derived from the proof hash
// alone without scanning.
const canonicalNonce uint8 = 255

// Storage key prefixes. Snapshot export iterates the record prefix.
var (
	prefixState  = []byte("s:")
	prefixRecord = []byte("p:")
)

// DeriveRecordAddress computes the deterministic address of the verification
// record for a proof hash, plus the nonce used in the derivation. The
// derivation is a pure function of (recordSeed, proofHash, nonce); no index
// or search is involved.
func DeriveRecordAddress(proofHash Hash) (Hash, uint8) {
	buf := make([]byte, 0, len(recordSeed)+len(proofHash)+1)
	buf = append(buf, recordSeed...)
	buf = append(buf, proofHash[:]...)
	buf = append(buf, canonicalNonce)

	return blake3.Sum256(buf), canonicalNonce
}

// DeriveStateAddress computes the fixed address of the registry singleton.
func DeriveStateAddress() Hash {
	return blake3.Sum256(stateSeed)
}

// RecordKey builds the storage key for a record address.
func RecordKey(addr Hash) []byte {
	key := make([]byte, 0, len(prefixRecord)+len(addr))
	key = append(key, prefixRecord...)
	key = append(key, addr[:]...)

	return key
}

// StateKey builds the storage key for the registry singleton.
func StateKey() []byte {
	addr := DeriveStateAddress()

	key := make([]byte, 0, len(prefixState)+len(addr))
	key = append(key, prefixState...)
	key = append(key, addr[:]...)

	return key
}

// RecordKeyPrefix returns the prefix under which all records are stored.
func RecordKeyPrefix() []byte {
	return prefixRecord
}
