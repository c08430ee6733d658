package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunk is one span of a document. The first Overlap runes of Text repeat the end of the previous chunk.
type Chunk struct {
	Text    string
	Overlap int
}

// SplitText splits text into sentence-aware chunks of at most chunkSize runes.
func SplitText(text string, chunkSize int, overlap int) []string {
	chunks := SplitChunks(text, chunkSize, overlap)
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// SplitChunks accumulates whole sentences into chunks. When the next sentence does not fit, the running
// chunk is closed and the new one is seeded from the closed chunk's trailing overlap window, starting
// after the last sentence break inside that window when there is one. Sentences longer than chunkSize
// are cut at whitespace. Empty input yields a single empty chunk.
func SplitChunks(text string, chunkSize int, overlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []Chunk{{Text: ""}}
	}

	var pieces []string
	for _, s := range splitSentences(text) {
		pieces = append(pieces, hardSplit(s, chunkSize)...)
	}

	var (
		chunks     []Chunk
		current    string
		currentLen int
		seedLen    int
		prev       string
	)
	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if current != "" && currentLen+pieceLen > chunkSize {
			closed := strings.TrimRightFunc(current, unicode.IsSpace)
			chunks = append(chunks, Chunk{Text: closed, Overlap: seedLen})

			// a hard cut inside a token has no whitespace to restore
			sep := ""
			if endsWithSpace(prev) {
				sep = " "
			}
			seed := overlapSeed(closed, overlap, sep == "")
			seedRunes := utf8.RuneCountInString(seed)
			if seed != "" && seedRunes+len(sep)+pieceLen <= chunkSize {
				current = seed + sep + piece
				currentLen = seedRunes + len(sep) + pieceLen
				seedLen = seedRunes
			} else {
				current = piece
				currentLen = pieceLen
				seedLen = 0
			}
			prev = piece
			continue
		}
		current += piece
		currentLen += pieceLen
		prev = piece
	}
	chunks = append(chunks, Chunk{Text: strings.TrimRightFunc(current, unicode.IsSpace), Overlap: seedLen})
	return chunks
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitSentences cuts after runs of .!? that are followed by whitespace. Each sentence keeps its
// trailing whitespace so the pieces concatenate back to the input.
func splitSentences(text string) []string {
	rs := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(rs); i++ {
		if !isTerminator(rs[i]) {
			continue
		}
		j := i + 1
		for j < len(rs) && isTerminator(rs[j]) {
			j++
		}
		if j < len(rs) && !unicode.IsSpace(rs[j]) {
			i = j - 1
			continue
		}
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}
		out = append(out, string(rs[start:j]))
		start = j
		i = j - 1
	}
	if start < len(rs) {
		out = append(out, string(rs[start:]))
	}
	return out
}

// hardSplit breaks a sentence longer than size into pieces of at most size runes, preferring to
// break after whitespace in the second half of each window.
func hardSplit(sentence string, size int) []string {
	rs := []rune(sentence)
	if len(rs) <= size {
		return []string{sentence}
	}
	var out []string
	for len(rs) > size {
		cut := size
		for k := size; k > size/2; k-- {
			if unicode.IsSpace(rs[k-1]) {
				cut = k
				break
			}
		}
		out = append(out, string(rs[:cut]))
		rs = []rune(strings.TrimLeftFunc(string(rs[cut:]), unicode.IsSpace))
	}
	if len(rs) > 0 {
		out = append(out, string(rs))
	}
	return out
}

func endsWithSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return s != "" && unicode.IsSpace(r)
}

// overlapSeed takes the trailing overlap window of closed, starting after its last sentence break.
// midToken keeps the end of the window untouched because the next piece continues the same token.
func overlapSeed(closed string, overlap int, midToken bool) string {
	if overlap == 0 {
		return ""
	}
	rs := []rune(closed)
	if len(rs) > overlap {
		rs = rs[len(rs)-overlap:]
	}
	tail := string(rs)

	cut := -1
	for _, sep := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(tail, sep); idx > cut {
			cut = idx
		}
	}
	if cut >= 0 {
		tail = tail[cut+2:]
	}
	if midToken {
		return strings.TrimLeftFunc(tail, unicode.IsSpace)
	}
	return strings.TrimSpace(tail)
}
