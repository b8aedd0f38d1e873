package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeCandidateID computes a deterministic candidate ID using SHA256.
// Formula: SHA256(chain_id|pair_address)
// Returns hex-encoded hash (64 characters).
func ComputeCandidateID(chainID, pairAddress string) string {
	data := fmt.Sprintf("%s|%s", chainID, pairAddress)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
