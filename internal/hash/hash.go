// Package hash provides the content digest and token-count estimation used
// to detect unchanged files and to size chunks.
package hash

import (
	"crypto/md5"
	"encoding/hex"
)

// ContentHash returns the hex-encoded MD5 digest of data. MD5 is sufficient
// here: it is a change detector, not a security primitive, mirroring the
// prior use of a fast digest (internal/indexer/change_detector.go
// uses SHA-256 for the same purpose in its code-integrity domain; this
// service only needs to notice that bytes changed, so the cheaper digest is
// used instead).
func ContentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
