// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces only.
package usecases

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the chunk size limit in characters.
const DefaultChunkSize = 500

// Chunk splits text into boundary-respecting segments of at most maxSize characters.
// Fragments end at sentence punctuation followed by whitespace, or at blank lines.
// Consecutive fragments are merged while they fit; a single fragment longer than
// maxSize is emitted unsplit. No returned chunk is empty.
func Chunk(text string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	for _, frag := range splitFragments(text) {
		frag = strings.TrimSpace(strings.ReplaceAll(frag, "\n", " "))
		if frag == "" {
			continue
		}
		fragLen := utf8.RuneCountInString(frag)

		if bufLen+fragLen < maxSize {
			if bufLen > 0 {
				buf.WriteByte(' ')
				bufLen++
			}
			buf.WriteString(frag)
			bufLen += fragLen
			continue
		}

		if bufLen > 0 {
			chunks = append(chunks, strings.TrimSpace(buf.String()))
		}
		buf.Reset()
		buf.WriteString(frag)
		bufLen = fragLen
	}

	if bufLen > 0 {
		chunks = append(chunks, strings.TrimSpace(buf.String()))
	}
	return chunks
}

// splitFragments cuts text after '.', '?' or '!' when followed by a whitespace run
// (the run is dropped), and at every "\n\n" pair.
func splitFragments(text string) []string {
	var frags []string
	start := 0
	prev := rune(-1)

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if isTerminal(prev) && unicode.IsSpace(r) {
			frags = append(frags, text[start:i])
			j := i
			for j < len(text) {
				ws, n := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsSpace(ws) {
					break
				}
				j += n
				prev = ws
			}
			start, i = j, j
			continue
		}

		if strings.HasPrefix(text[i:], "\n\n") {
			frags = append(frags, text[start:i])
			i += 2
			start = i
			prev = '\n'
			continue
		}

		prev = r
		i += size
	}

	return append(frags, text[start:])
}

func isTerminal(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
