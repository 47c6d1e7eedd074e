package client

import (
	"encoding/hex"
	"fmt"
)

// Client connects to a registry node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
}

// Submission is one claimed proof plus its public claims.
type Submission struct {
	ProofHash     [32]byte // ProofHash is the 32-byte proof identifier
	PublicSignals []string // PublicSignals are the claimed public inputs, as decimal strings
	Threshold     uint64   // Threshold must equal the first public signal
	Commitment    uint64   // Commitment must equal the second public signal
	Submitter     [32]byte // Submitter identifies the verifying caller
}

// ProofRecord is a verification record as returned by the node.
type ProofRecord struct {
	ProofHash  string `json:"proofHash"`
	Submitter  string `json:"submitter"`
	Threshold  uint64 `json:"threshold"`
	Commitment uint64 `json:"commitment"`
	Verified   bool   `json:"verified"`
	Timestamp  int64  `json:"timestamp"`
	Nonce      uint8  `json:"nonce"`
}

// Status is the registry status as returned by the node.
type Status struct {
	Initialized        bool   `json:"initialized"`
	Authority          string `json:"authority"`
	TotalVerifications uint64 `json:"totalVerifications"`
}

// New creates a client connected to a node.
func New(nodeAddr string) *Client {
	return &Client{nodeAddr: nodeAddr}
}

// Initialize creates the registry singleton with the given authority.
func (c *Client) Initialize(authority [32]byte) error {
	body := map[string]string{
		"authority": hex.EncodeToString(authority[:]),
	}

	if err := httpPostJSON(c.url("/initialize"), body, nil); err != nil {
		return fmt.Errorf("initialize:\n%w", err)
	}

	return nil
}

// Verify submits a proof verification and returns the created record.
func (c *Client) Verify(sub Submission) (*ProofRecord, error) {
	body := map[string]any{
		"proofHash":     hex.EncodeToString(sub.ProofHash[:]),
		"publicSignals": sub.PublicSignals,
		"threshold":     sub.Threshold,
		"commitment":    sub.Commitment,
		"submitter":     hex.EncodeToString(sub.Submitter[:]),
	}

	var record ProofRecord
	if err := httpPostJSON(c.url("/verify"), body, &record); err != nil {
		return nil, fmt.Errorf("verify:\n%w", err)
	}

	return &record, nil
}

// Proof fetches the verification record for a proof hash.
func (c *Client) Proof(proofHash [32]byte) (*ProofRecord, error) {
	var record ProofRecord

	url := c.url("/proofs/" + hex.EncodeToString(proofHash[:]))
	if err := httpGet(url, &record); err != nil {
		return nil, fmt.Errorf("get proof:\n%w", err)
	}

	return &record, nil
}

// VerificationStatus reports whether a proof has a verified record.
func (c *Client) VerificationStatus(proofHash [32]byte) (bool, error) {
	var resp struct {
		Verified bool `json:"verified"`
	}

	url := c.url("/proofs/" + hex.EncodeToString(proofHash[:]) + "/verified")
	if err := httpGet(url, &resp); err != nil {
		return false, fmt.Errorf("get verification status:\n%w", err)
	}

	return resp.Verified, nil
}

// Status fetches the registry status.
func (c *Client) Status() (*Status, error) {
	var status Status

	if err := httpGet(c.url("/status"), &status); err != nil {
		return nil, fmt.Errorf("get status:\n%w", err)
	}

	return &status, nil
}

// Snapshot downloads a snapshot of the registry contents.
func (c *Client) Snapshot() ([]byte, error) {
	data, err := httpGetRaw(c.url("/snapshot"))
	if err != nil {
		return nil, fmt.Errorf("get snapshot:\n%w", err)
	}

	return data, nil
}

// url builds a full URL for a path on the node.
func (c *Client) url(path string) string {
	return "http://" + c.nodeAddr + path
}
