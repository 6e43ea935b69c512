package streaming

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrEmptyText indicates there was nothing speakable to chunk.
var ErrEmptyText = errors.New("chunker: empty input text")

// Chunker splits long text into an ordered sequence of speakable units.
// Sentence and paragraph boundaries are preferred; units still longer than
// maxLen are re-split on clause punctuation and finally on word boundaries.
// A split never lands mid-word.
type Chunker struct {
	maxLen int
}

// NewChunker constructs a Chunker with the given maximum unit length,
// measured in runes.
func NewChunker(maxLen int) *Chunker {
	if maxLen < 20 {
		maxLen = 20
	}
	return &Chunker{maxLen: maxLen}
}

// MaxLen returns the configured maximum unit length.
func (c *Chunker) MaxLen() int {
	return c.maxLen
}

// Split produces the ordered, non-empty chunk list for text. Whitespace-only
// input is an error, never an empty chunk list.
func (c *Chunker) Split(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}
	if utf8.RuneCountInString(trimmed) <= c.maxLen {
		return []string{trimmed}, nil
	}

	var chunks []string
	for _, sentence := range splitSentences(trimmed) {
		if utf8.RuneCountInString(sentence) <= c.maxLen {
			chunks = append(chunks, sentence)
			continue
		}
		chunks = append(chunks, c.splitLong(sentence)...)
	}
	return chunks, nil
}

// splitLong breaks one oversize sentence on clause punctuation, falling back
// to word boundaries, and packs the pieces back up to maxLen.
func (c *Chunker) splitLong(sentence string) []string {
	var pieces []string
	for _, clause := range splitClauses(sentence) {
		if utf8.RuneCountInString(clause) <= c.maxLen {
			pieces = append(pieces, clause)
			continue
		}
		pieces = append(pieces, strings.Fields(clause)...)
	}
	return c.pack(pieces)
}

// pack greedily joins pieces into units no longer than maxLen. A single
// piece longer than maxLen (one giant word) stays whole.
func (c *Chunker) pack(pieces []string) []string {
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, p := range pieces {
		pl := utf8.RuneCountInString(p)
		switch {
		case curLen == 0:
			cur.WriteString(p)
			curLen = pl
		case curLen+1+pl <= c.maxLen:
			cur.WriteByte(' ')
			cur.WriteString(p)
			curLen += 1 + pl
		default:
			out = append(out, cur.String())
			cur.Reset()
			cur.WriteString(p)
			curLen = pl
		}
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

// isSentenceEnd covers latin sentence enders plus the devanagari danda used
// in Hindi text.
func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '।'
}

func isClauseEnd(r rune) bool {
	return r == ',' || r == ';' || r == ':'
}

// splitSentences cuts on sentence-ending punctuation runs and newlines,
// keeping the punctuation attached to the preceding unit.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		b.WriteRune(r)
		if isSentenceEnd(r) {
			for i+1 < len(runes) && isSentenceEnd(runes[i+1]) {
				i++
				b.WriteRune(runes[i])
			}
			flush()
		}
	}
	flush()
	return out
}

// splitClauses cuts on clause punctuation, keeping it attached to the
// preceding piece.
func splitClauses(sentence string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	for _, r := range sentence {
		b.WriteRune(r)
		if isClauseEnd(r) {
			flush()
		}
	}
	flush()
	return out
}
