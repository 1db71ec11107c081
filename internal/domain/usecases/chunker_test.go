package usecases

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestChunk(t *testing.T) {
	t.Run("Short text merges into one chunk", func(t *testing.T) {
		chunks := Chunk("Hello world. This is a test.\n\nNew paragraph here.", 500)

		require.Len(t, chunks, 1)
		assert.Equal(t, "Hello world. This is a test. New paragraph here.", chunks[0])
	})

	t.Run("Small limit produces multiple bounded chunks", func(t *testing.T) {
		text := "One. Two. Three. Four five six seven."
		chunks := Chunk(text, 10)

		assert.Equal(t, []string{"One. Two.", "Three.", "Four five six seven."}, chunks)
		for _, c := range chunks {
			assert.NotEmpty(t, c)
		}
	})

	t.Run("Chunks are bounded or a single oversized fragment", func(t *testing.T) {
		text := "A b. C d e f g h i j k l. M! N? O p.\n\nQ r s.\nT u v w."
		fragments := map[string]bool{}
		for _, f := range splitFragments(text) {
			fragments[strings.TrimSpace(strings.ReplaceAll(f, "\n", " "))] = true
		}

		for _, c := range Chunk(text, 10) {
			if utf8.RuneCountInString(c) > 10 {
				assert.True(t, fragments[c], "oversized chunk %q must be one fragment", c)
			}
		}
	})

	t.Run("Non-whitespace characters are preserved in order", func(t *testing.T) {
		text := "First sentence here. Second one!\nStill second? Third.\n\n\nFourth paragraph   with spaces."
		chunks := Chunk(text, 12)

		assert.Equal(t, stripSpace(text), stripSpace(strings.Join(chunks, "")))
	})

	t.Run("Oversized fragment passes through unsplit", func(t *testing.T) {
		long := strings.Repeat("x", 40) + "."
		chunks := Chunk("Hi. "+long+" Bye.", 10)

		assert.Equal(t, []string{"Hi.", long, "Bye."}, chunks)
	})

	t.Run("Single line breaks become spaces", func(t *testing.T) {
		chunks := Chunk("line one\nline two.", 500)

		assert.Equal(t, []string{"line one line two."}, chunks)
	})

	t.Run("Empty and whitespace-only text", func(t *testing.T) {
		assert.Empty(t, Chunk("", 500))
		assert.Empty(t, Chunk(" \n\n \t ", 500))
	})

	t.Run("Non-positive limit uses default", func(t *testing.T) {
		text := strings.Repeat("word. ", 100)
		assert.Equal(t, Chunk(text, DefaultChunkSize), Chunk(text, 0))
	})

	t.Run("Length counts characters, not bytes", func(t *testing.T) {
		chunks := Chunk("ééééé. ééééé.", 13)
		assert.Equal(t, []string{"ééééé. ééééé."}, chunks)

		chunks = Chunk("ééééé. ééééé.", 12)
		assert.Equal(t, []string{"ééééé.", "ééééé."}, chunks)
	})

	t.Run("Merged chunk never exceeds limit", func(t *testing.T) {
		chunks := Chunk("aaaa. bbbb. cccc.", 11)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 11)
		}
	})
}

func TestSplitFragments(t *testing.T) {
	t.Run("Sentence punctuation", func(t *testing.T) {
		assert.Equal(t, []string{"What?", "Yes!", "Ok."}, splitFragments("What? Yes! Ok."))
	})

	t.Run("Punctuation without whitespace does not split", func(t *testing.T) {
		assert.Equal(t, []string{"v1.2 is out"}, splitFragments("v1.2 is out"))
	})

	t.Run("Blank line splits", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, splitFragments("a\n\nb"))
	})

	t.Run("Triple newline leaves a leading break", func(t *testing.T) {
		assert.Equal(t, []string{"a", "\nb"}, splitFragments("a\n\n\nb"))
	})

	t.Run("Punctuation then blank line consumes whole run", func(t *testing.T) {
		assert.Equal(t, []string{"a.", "b"}, splitFragments("a.\n\n  b"))
	})

	t.Run("Trailing punctuation and whitespace", func(t *testing.T) {
		assert.Equal(t, []string{"End.", ""}, splitFragments("End.  "))
	})
}
