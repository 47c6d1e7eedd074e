package registry

import (
	"errors"
	"os"
	"sync"
	"testing"

	"ZKRegistry/internal/storage"
)

// newTestRegistry creates a registry on temporary storage.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	dir, err := os.MkdirTemp("", "registry-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return New(db)
}

// newInitializedRegistry creates a registry already initialized with authority A.
func newInitializedRegistry(t *testing.T) *Registry {
	t.Helper()

	r := newTestRegistry(t)

	if err := r.Initialize(testIdentity(0xAA)); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	return r
}

// testHash builds a hash filled with the given byte.
func testHash(b byte) Hash {
	var h Hash
	for i := range h {
		h[i] = b
	}
	return h
}

// testIdentity builds an identity filled with the given byte.
func testIdentity(b byte) Identity {
	return Identity(testHash(b))
}

// validSubmission builds a submission that passes all structural checks.
func validSubmission(proofHash Hash) Submission {
	return Submission{
		ProofHash:     proofHash,
		PublicSignals: []string{"100", "50"},
		Threshold:     100,
		Commitment:    50,
		Submitter:     testIdentity(0xBB),
	}
}

func TestInitialize(t *testing.T) {
	r := newTestRegistry(t)

	authority := testIdentity(0xAA)

	if err := r.Initialize(authority); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	state, err := r.State()
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}

	if state.Authority != authority {
		t.Errorf("authority = %s, want %s", state.Authority, authority)
	}

	if state.TotalVerifications != 0 {
		t.Errorf("totalVerifications = %d, want 0", state.TotalVerifications)
	}
}

func TestInitializeTwice(t *testing.T) {
	r := newInitializedRegistry(t)

	err := r.Initialize(testIdentity(0xCC))
	if !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize returned %v, want ErrAlreadyInitialized", err)
	}

	// Authority must be unchanged
	state, err := r.State()
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}

	if state.Authority != testIdentity(0xAA) {
		t.Error("authority changed by failed re-initialization")
	}
}

func TestVerifyNotInitialized(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Verify(validSubmission(testHash(0x01)))
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Verify returned %v, want ErrNotInitialized", err)
	}
}

func TestVerifySuccess(t *testing.T) {
	r := newInitializedRegistry(t)

	hash := testHash(0x01)

	record, err := r.Verify(validSubmission(hash))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if record.ProofHash != hash {
		t.Errorf("proofHash = %s, want %s", record.ProofHash, hash)
	}
	if record.Threshold != 100 || record.Commitment != 50 {
		t.Errorf("claims = (%d, %d), want (100, 50)", record.Threshold, record.Commitment)
	}
	if !record.Verified {
		t.Error("record not marked verified")
	}
	if record.Timestamp == 0 {
		t.Error("timestamp not set")
	}
	if record.Submitter != testIdentity(0xBB) {
		t.Error("submitter mismatch")
	}

	verified, err := r.VerificationStatus(hash)
	if err != nil {
		t.Fatalf("VerificationStatus failed: %v", err)
	}
	if !verified {
		t.Error("VerificationStatus = false, want true")
	}

	total, err := r.TotalVerifications()
	if err != nil {
		t.Fatalf("TotalVerifications failed: %v", err)
	}
	if total != 1 {
		t.Errorf("totalVerifications = %d, want 1", total)
	}
}

func TestVerifyDuplicateProof(t *testing.T) {
	r := newInitializedRegistry(t)

	hash := testHash(0x01)

	first, err := r.Verify(validSubmission(hash))
	if err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}

	_, err = r.Verify(validSubmission(hash))
	if !errors.Is(err, ErrDuplicateProof) {
		t.Fatalf("second Verify returned %v, want ErrDuplicateProof", err)
	}

	// Counter unchanged by the rejected resubmission
	total, err := r.TotalVerifications()
	if err != nil {
		t.Fatalf("TotalVerifications failed: %v", err)
	}
	if total != 1 {
		t.Errorf("totalVerifications = %d, want 1", total)
	}

	// Stored record unchanged
	record, err := r.Record(hash)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if *record != *first {
		t.Error("record changed by rejected resubmission")
	}
}

func TestVerifyTooFewSignals(t *testing.T) {
	r := newInitializedRegistry(t)

	for _, signals := range [][]string{nil, {}, {"1"}} {
		sub := validSubmission(testHash(0x02))
		sub.PublicSignals = signals

		_, err := r.Verify(sub)
		if !errors.Is(err, ErrInvalidPublicSignals) {
			t.Errorf("signals %v: got %v, want ErrInvalidPublicSignals", signals, err)
		}
	}

	assertNoRecord(t, r, testHash(0x02))
}

func TestVerifyUnparsableSignals(t *testing.T) {
	r := newInitializedRegistry(t)

	cases := [][]string{
		{"abc", "123"},
		{"100", "xyz"},
		{"-1", "50"},
		{"100.5", "50"},
		{"", "50"},
	}

	for _, signals := range cases {
		sub := validSubmission(testHash(0x03))
		sub.PublicSignals = signals

		_, err := r.Verify(sub)
		if !errors.Is(err, ErrInvalidPublicSignals) {
			t.Errorf("signals %v: got %v, want ErrInvalidPublicSignals", signals, err)
		}
	}

	assertNoRecord(t, r, testHash(0x03))
}

func TestVerifyZeroThreshold(t *testing.T) {
	r := newInitializedRegistry(t)

	// Zero threshold rejects before signal parsing: unparsable signals
	// must not change the outcome.
	sub := validSubmission(testHash(0x04))
	sub.Threshold = 0
	sub.PublicSignals = []string{"abc", "def"}

	_, err := r.Verify(sub)
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("Verify returned %v, want ErrInvalidThreshold", err)
	}

	assertNoRecord(t, r, testHash(0x04))
}

func TestVerifyThresholdMismatch(t *testing.T) {
	r := newInitializedRegistry(t)

	sub := validSubmission(testHash(0x05))
	sub.Threshold = 99

	_, err := r.Verify(sub)
	if !errors.Is(err, ErrThresholdMismatch) {
		t.Fatalf("Verify returned %v, want ErrThresholdMismatch", err)
	}

	assertNoRecord(t, r, testHash(0x05))
	assertTotal(t, r, 0)
}

func TestVerifyCommitmentMismatch(t *testing.T) {
	r := newInitializedRegistry(t)

	sub := validSubmission(testHash(0x06))
	sub.Commitment = 51

	_, err := r.Verify(sub)
	if !errors.Is(err, ErrCommitmentMismatch) {
		t.Fatalf("Verify returned %v, want ErrCommitmentMismatch", err)
	}

	assertNoRecord(t, r, testHash(0x06))
	assertTotal(t, r, 0)
}

func TestVerifyExtraSignalsIgnored(t *testing.T) {
	r := newInitializedRegistry(t)

	sub := validSubmission(testHash(0x07))
	sub.PublicSignals = []string{"100", "50", "not-a-number", "999"}

	if _, err := r.Verify(sub); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	assertTotal(t, r, 1)
}

func TestCounterCorrectness(t *testing.T) {
	r := newInitializedRegistry(t)

	// Interleave successful and rejected submissions; the counter must
	// count only the successes.
	var successes uint64

	for i := 0; i < 20; i++ {
		sub := validSubmission(testHash(byte(i + 1)))

		if i%3 == 0 {
			sub.Threshold = 1 // mismatch against signal "100"
			if _, err := r.Verify(sub); !errors.Is(err, ErrThresholdMismatch) {
				t.Fatalf("submission %d: got %v, want ErrThresholdMismatch", i, err)
			}
			continue
		}

		if _, err := r.Verify(sub); err != nil {
			t.Fatalf("submission %d failed: %v", i, err)
		}
		successes++
	}

	assertTotal(t, r, successes)
}

func TestStatusUnknownProof(t *testing.T) {
	r := newInitializedRegistry(t)

	_, err := r.VerificationStatus(testHash(0x09))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("VerificationStatus returned %v, want ErrNotFound", err)
	}

	_, err = r.Record(testHash(0x09))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Record returned %v, want ErrNotFound", err)
	}
}

func TestConcurrentDistinctProofs(t *testing.T) {
	r := newInitializedRegistry(t)

	const n = 32

	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Verify(validSubmission(testHash(byte(i + 1))))
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("verify %d failed: %v", i, err)
		}
	}

	assertTotal(t, r, n)
}

func TestConcurrentSameProof(t *testing.T) {
	r := newInitializedRegistry(t)

	const n = 16

	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Verify(validSubmission(testHash(0x42)))
		}(i)
	}

	wg.Wait()

	var wins, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrDuplicateProof):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	if duplicates != n-1 {
		t.Errorf("duplicates = %d, want %d", duplicates, n-1)
	}

	assertTotal(t, r, 1)
}

func TestRecordSurvivesReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "registry-reopen-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.RemoveAll(dir)
	})

	db, err := storage.New(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	r := New(db)

	if err := r.Initialize(testIdentity(0xAA)); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if _, err := r.Verify(validSubmission(testHash(0x01))); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = storage.New(dir)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	reopened := New(db)

	verified, err := reopened.VerificationStatus(testHash(0x01))
	if err != nil {
		t.Fatalf("VerificationStatus after reopen failed: %v", err)
	}
	if !verified {
		t.Error("record lost across reopen")
	}

	assertTotal(t, reopened, 1)
}

// assertNoRecord fails if a record exists for the given proof hash.
func assertNoRecord(t *testing.T, r *Registry, proofHash Hash) {
	t.Helper()

	_, err := r.Record(proofHash)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("record lookup returned %v, want ErrNotFound", err)
	}
}

// assertTotal fails if the counter does not equal want.
func assertTotal(t *testing.T, r *Registry, want uint64) {
	t.Helper()

	total, err := r.TotalVerifications()
	if err != nil {
		t.Fatalf("TotalVerifications failed: %v", err)
	}

	if total != want {
		t.Fatalf("totalVerifications = %d, want %d", total, want)
	}
}
