package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ZKRegistry/internal/logger"
	"ZKRegistry/internal/registry"
)

// RegistryService is the verification core exposed over HTTP.
type RegistryService interface {
	Initialize(authority registry.Identity) error
	Verify(sub registry.Submission) (*registry.VerificationRecord, error)
	Record(proofHash registry.Hash) (*registry.VerificationRecord, error)
	VerificationStatus(proofHash registry.Hash) (bool, error)
	State() (*registry.RegistryState, error)
}

// SnapshotProvider exports the registry contents for backup.
type SnapshotProvider interface {
	Snapshot() ([]byte, error)
}

// Server is the HTTP API server.
type Server struct {
	addr      string           // addr is the HTTP listen address
	reg       RegistryService  // reg is the verification registry
	snapshots SnapshotProvider // snapshots exports registry backups, may be nil
	server    *http.Server     // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, reg RegistryService, snapshots SnapshotProvider) *Server {
	return &Server{
		addr:      addr,
		reg:       reg,
		snapshots: snapshots,
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handler returns the route mux. Used by Start and by httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /initialize", s.handleInitialize)
	mux.HandleFunc("POST /verify", s.handleVerify)
	mux.HandleFunc("GET /proofs/{hash}", s.handleProof)
	mux.HandleFunc("GET /proofs/{hash}/verified", s.handleVerified)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)

	return mux
}

// initializeRequest is the POST /initialize body.
type initializeRequest struct {
	Authority string `json:"authority"`
}

// handleInitialize handles POST /initialize requests.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	authority, err := registry.ParseIdentity(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.reg.Initialize(authority); err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"authority": authority.String(),
	})
}

// verifyRequest is the POST /verify body.
type verifyRequest struct {
	ProofHash     string   `json:"proofHash"`
	PublicSignals []string `json:"publicSignals"`
	Threshold     uint64   `json:"threshold"`
	Commitment    uint64   `json:"commitment"`
	Submitter     string   `json:"submitter"`
}

// handleVerify handles POST /verify requests.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	proofHash, err := registry.ParseHash(req.ProofHash)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	submitter, err := registry.ParseIdentity(req.Submitter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := s.reg.Verify(registry.Submission{
		ProofHash:     proofHash,
		PublicSignals: req.PublicSignals,
		Threshold:     req.Threshold,
		Commitment:    req.Commitment,
		Submitter:     submitter,
	})
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	logger.Debug("verification accepted", "hash", record.ProofHash.String())

	writeJSON(w, http.StatusCreated, recordResponse(record))
}

// handleProof handles GET /proofs/{hash} requests.
func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	proofHash, err := registry.ParseHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	record, err := s.reg.Record(proofHash)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse(record))
}

// handleVerified handles GET /proofs/{hash}/verified requests.
func (s *Server) handleVerified(w http.ResponseWriter, r *http.Request) {
	proofHash, err := registry.ParseHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	verified, err := s.reg.VerificationStatus(proofHash)
	if err != nil {
		writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{
		"verified": verified,
	})
}

// handleStatus handles GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.reg.State()
	if errors.Is(err, registry.ErrNotInitialized) {
		writeJSON(w, http.StatusOK, map[string]any{
			"initialized": false,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"initialized":        true,
		"authority":          state.Authority.String(),
		"totalVerifications": state.TotalVerifications,
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleSnapshot handles GET /snapshot requests.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshots not available")
		return
	}

	start := time.Now()

	data, err := s.snapshots.Snapshot()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Debug("snapshot exported", "bytes", len(data), logger.Timed(start))

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// recordResponse builds the JSON shape of a verification record.
func recordResponse(record *registry.VerificationRecord) map[string]any {
	return map[string]any{
		"proofHash":  record.ProofHash.String(),
		"submitter":  record.Submitter.String(),
		"threshold":  record.Threshold,
		"commitment": record.Commitment,
		"verified":   record.Verified,
		"timestamp":  record.Timestamp,
		"nonce":      record.Nonce,
	}
}

// writeRegistryError maps registry sentinel errors to HTTP statuses.
func writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidPublicSignals),
		errors.Is(err, registry.ErrInvalidThreshold),
		errors.Is(err, registry.ErrThresholdMismatch),
		errors.Is(err, registry.ErrCommitmentMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrAlreadyInitialized),
		errors.Is(err, registry.ErrDuplicateProof),
		errors.Is(err, registry.ErrNotInitialized):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
