package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// DefaultChunkSize bounds per-read memory regardless of input size.
const DefaultChunkSize = 8 * 1024

// Hash streams rs through SHA-256 and returns the lowercase hex digest.
// The stream is rewound to its start before returning so downstream
// consumers can re-read it.
func Hash(rs io.ReadSeeker) (string, error) {
	return HashChunked(rs, DefaultChunkSize)
}

// HashChunked is Hash with an explicit chunk size. The digest is identical
// for any chunk size given identical bytes.
func HashChunked(rs io.ReadSeeker, chunkSize int) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind stream: %w", err)
	}

	h := sha256.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := rs.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read stream: %w", err)
		}
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
