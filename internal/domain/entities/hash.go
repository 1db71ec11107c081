package entities

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns a 128-bit hex digest of b.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

// TextHash is ContentHash over the UTF-8 bytes of s.
func TextHash(s string) string {
	return ContentHash([]byte(s))
}

// NewPassage builds a passage whose ID is the hash of its text.
func NewPassage(text string, src SourceFile) Passage {
	return Passage{
		ID:         TextHash(text),
		Text:       text,
		SourceFile: src.Name,
		SourceHash: src.ContentHash,
	}
}
