package snapshot

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/near/borsh-go"
	"github.com/zeebo/blake3"

	"ZKRegistry/internal/registry"
	"ZKRegistry/internal/storage"
)

// snapshotVersion is the current snapshot format version.
const snapshotVersion = 1

// payload is the borsh-serialized snapshot body. State holds the encoded
// registry singleton (empty if the registry was never initialized); Records
// holds every verification record keyed by its derived address.
type payload struct {
	Version  uint8
	Checksum [32]byte
	State    []byte
	Records  []recordEntry
}

// recordEntry is one verification record with its derived address.
type recordEntry struct {
	Address [32]byte
	Data    []byte
}

// Create exports the registry state and all verification records as a
// zstd-compressed, checksummed snapshot. State and records are read from one
// point-in-time view, so a verification committing during the export can
// never produce a snapshot whose counter disagrees with its record count.
func Create(db *storage.Storage) ([]byte, error) {
	view := db.NewView()
	defer view.Close()

	state, err := view.Get(registry.StateKey())
	if err != nil {
		return nil, fmt.Errorf("read state:\n%w", err)
	}

	records, err := collectRecords(view)
	if err != nil {
		return nil, fmt.Errorf("collect records:\n%w", err)
	}

	p := payload{
		Version:  snapshotVersion,
		Checksum: computeChecksum(snapshotVersion, state, records),
		State:    state,
		Records:  records,
	}

	raw, err := borsh.Serialize(p)
	if err != nil {
		return nil, fmt.Errorf("serialize snapshot:\n%w", err)
	}

	return compress(raw), nil
}

// Apply restores a snapshot into the given storage. The checksum is verified
// before anything is written; all keys commit in one batch.
func Apply(db *storage.Storage, data []byte) error {
	raw, err := decompress(data)
	if err != nil {
		return fmt.Errorf("decompress snapshot:\n%w", err)
	}

	var p payload
	if err := borsh.Deserialize(&p, raw); err != nil {
		return fmt.Errorf("deserialize snapshot:\n%w", err)
	}

	if p.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %d", p.Version)
	}

	want := computeChecksum(p.Version, p.State, p.Records)
	if p.Checksum != want {
		return fmt.Errorf("snapshot checksum mismatch")
	}

	pairs := make([]storage.KeyValue, 0, len(p.Records)+1)

	if len(p.State) > 0 {
		pairs = append(pairs, storage.KeyValue{Key: registry.StateKey(), Value: p.State})
	}

	for _, entry := range p.Records {
		pairs = append(pairs, storage.KeyValue{
			Key:   registry.RecordKey(registry.Hash(entry.Address)),
			Value: entry.Data,
		})
	}

	return db.SetBatch(pairs)
}

// collectRecords iterates the record namespace of a view. Pebble visits keys
// in lexicographic order, which makes the checksum deterministic.
func collectRecords(view *storage.View) ([]recordEntry, error) {
	prefix := registry.RecordKeyPrefix()

	var records []recordEntry

	err := view.IteratePrefix(prefix, func(key, value []byte) error {
		if len(key) != len(prefix)+32 {
			return nil
		}

		var entry recordEntry
		copy(entry.Address[:], key[len(prefix):])

		// Copy the value to avoid iterator invalidation
		entry.Data = make([]byte, len(value))
		copy(entry.Data, value)

		records = append(records, entry)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// computeChecksum hashes the canonical snapshot content with blake3.
func computeChecksum(version uint8, state []byte, records []recordEntry) [32]byte {
	var buf bytes.Buffer

	buf.WriteByte(version)
	buf.Write(state)

	for _, entry := range records {
		buf.Write(entry.Address[:])
		buf.Write(entry.Data)
	}

	return blake3.Sum256(buf.Bytes())
}

// compress zstd-compresses the raw snapshot bytes.
func compress(raw []byte) []byte {
	enc, _ := zstd.NewWriter(nil)
	defer enc.Close()

	return enc.EncodeAll(raw, nil)
}

// decompress reverses compress.
func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(data, nil)
}
