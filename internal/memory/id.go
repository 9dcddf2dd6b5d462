package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// NewID forms a memory identifier as <epoch-ms>-<short-hash-of-content>,
// per spec.md §4.A. Stable across retries for identical content at the
// same millisecond, which is exactly the collision the content hash is
// there to resolve: two distinct contents at the same millisecond never
// collide, and two retries of the same content at different milliseconds
// still dedup downstream in the consolidator.
func NewID(content string, at time.Time) string {
	sum := sha256.Sum256([]byte(content))
	short := hex.EncodeToString(sum[:6]) // 12 hex chars
	return fmt.Sprintf("%d-%s", at.UnixMilli(), short)
}
