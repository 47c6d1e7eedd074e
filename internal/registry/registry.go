package registry

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"ZKRegistry/internal/logger"
	"ZKRegistry/internal/storage"
)

// Submission is one claimed proof plus its public claims.
type Submission struct {
	ProofHash     Hash     // ProofHash is the 32-byte proof identifier
	PublicSignals []string // PublicSignals are the claimed public inputs, as decimal strings
	Threshold     uint64   // Threshold must equal the first parsed signal
	Commitment    uint64   // Commitment must equal the second parsed signal
	Submitter     Identity // Submitter is the caller performing the verification
}

// Registry validates submissions and keeps the write-once verification
// records plus the singleton state, persisted through Pebble.
//
// All mutations go through a single mutex, so a record create and the
// counter bump of one submission are never interleaved with another.
type Registry struct {
	db *storage.Storage
	mu sync.Mutex
}

// New creates a Registry on top of the given storage.
func New(db *storage.Storage) *Registry {
	return &Registry{db: db}
}

// Initialize creates the singleton state with the given authority and a zero
// counter. Returns ErrAlreadyInitialized if the singleton exists.
func (r *Registry) Initialize(authority Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.db.Has(StateKey())
	if err != nil {
		return fmt.Errorf("check state:\n%w", err)
	}

	if exists {
		return ErrAlreadyInitialized
	}

	data, err := encodeState(&RegistryState{Authority: authority})
	if err != nil {
		return err
	}

	if err := r.db.Set(StateKey(), data); err != nil {
		return fmt.Errorf("write state:\n%w", err)
	}

	logger.Info("registry initialized", "authority", authority.String())

	return nil
}

// Verify validates a submission and, on success, stores a verification
// record and bumps the total counter in one atomic batch.
//
// The validation order is fixed: signal count, threshold positivity, signal
// parsing, threshold binding, commitment binding, uniqueness. Signals beyond
// index 1 are ignored. A rejected submission leaves no state behind.
func (r *Registry) Verify(sub Submission) (*VerificationRecord, error) {
	if len(sub.PublicSignals) < 2 {
		return nil, ErrInvalidPublicSignals
	}

	if sub.Threshold == 0 {
		return nil, ErrInvalidThreshold
	}

	signalThreshold, err := strconv.ParseUint(sub.PublicSignals[0], 10, 64)
	if err != nil {
		return nil, ErrInvalidPublicSignals
	}

	signalCommitment, err := strconv.ParseUint(sub.PublicSignals[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidPublicSignals
	}

	if signalThreshold != sub.Threshold {
		return nil, ErrThresholdMismatch
	}

	if signalCommitment != sub.Commitment {
		return nil, ErrCommitmentMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.loadState()
	if err != nil {
		return nil, err
	}

	addr, nonce := DeriveRecordAddress(sub.ProofHash)

	exists, err := r.db.Has(RecordKey(addr))
	if err != nil {
		return nil, fmt.Errorf("check record:\n%w", err)
	}

	if exists {
		return nil, ErrDuplicateProof
	}

	record := &VerificationRecord{
		ProofHash:  sub.ProofHash,
		Submitter:  sub.Submitter,
		Threshold:  sub.Threshold,
		Commitment: sub.Commitment,
		Verified:   true,
		Timestamp:  time.Now().Unix(),
		Nonce:      nonce,
	}

	recordData, err := encodeRecord(record)
	if err != nil {
		return nil, err
	}

	state.TotalVerifications++

	stateData, err := encodeState(state)
	if err != nil {
		return nil, err
	}

	// Record create and counter bump commit together or not at all.
	err = r.db.SetBatch([]storage.KeyValue{
		{Key: RecordKey(addr), Value: recordData},
		{Key: StateKey(), Value: stateData},
	})
	if err != nil {
		return nil, fmt.Errorf("commit verification:\n%w", err)
	}

	logger.Info("proof verified",
		"hash", sub.ProofHash.String(),
		"threshold", sub.Threshold,
		"commitment", sub.Commitment,
		"total", state.TotalVerifications,
	)

	return record, nil
}

// Record retrieves the verification record for a proof hash.
// Returns ErrNotFound if no record exists.
func (r *Registry) Record(proofHash Hash) (*VerificationRecord, error) {
	addr, _ := DeriveRecordAddress(proofHash)

	data, err := r.db.Get(RecordKey(addr))
	if err != nil {
		return nil, fmt.Errorf("read record:\n%w", err)
	}

	if data == nil {
		return nil, ErrNotFound
	}

	return decodeRecord(data)
}

// VerificationStatus reports whether a proof has a verified record.
// Returns ErrNotFound if no record exists.
func (r *Registry) VerificationStatus(proofHash Hash) (bool, error) {
	record, err := r.Record(proofHash)
	if err != nil {
		return false, err
	}

	return record.Verified, nil
}

// State returns a copy of the singleton state.
// Returns ErrNotInitialized if the registry was never initialized.
func (r *Registry) State() (*RegistryState, error) {
	return r.loadState()
}

// TotalVerifications returns the number of records ever created.
func (r *Registry) TotalVerifications() (uint64, error) {
	state, err := r.loadState()
	if err != nil {
		return 0, err
	}

	return state.TotalVerifications, nil
}

// loadState reads and decodes the singleton state.
func (r *Registry) loadState() (*RegistryState, error) {
	data, err := r.db.Get(StateKey())
	if err != nil {
		return nil, fmt.Errorf("read state:\n%w", err)
	}

	if data == nil {
		return nil, ErrNotInitialized
	}

	return decodeState(data)
}
