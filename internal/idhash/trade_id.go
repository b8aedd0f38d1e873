package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade ID using SHA256.
// Formula: SHA256(chain_id|pair_address|symbol|opened_unix_nano)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(chainID, pairAddress, symbol string, openedUnixNano int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		chainID,
		pairAddress,
		symbol,
		openedUnixNano,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
