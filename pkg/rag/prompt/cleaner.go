package prompt

import (
	"strings"
	"unicode"
)

const (
	DefaultContextBudget = 1500
	TruncationMarker     = "... [content truncated]"
)

// spacedAbbreviations are whole-token sequences that PDF extraction tends to space out, in the order
// they are repaired.
var spacedAbbreviations = [][2]string{
	{"S G G S T", "SG GST"},
	{"G S T", "GST"},
	{"N B", "NB"},
}

// CleanChunkText normalises extraction noise in a retrieved chunk: control characters are dropped,
// whitespace runs become one space, spaced-out amounts such as "$ 1 0 . 9 0" are rejoined and stray
// single letters are removed.
func CleanChunkText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, text)

	tokens := joinNumberRuns(strings.Fields(text))
	text = " " + strings.Join(tokens, " ") + " "
	for _, pair := range spacedAbbreviations {
		text = strings.ReplaceAll(text, " "+pair[0]+" ", " "+pair[1]+" ")
	}

	tokens = strings.Fields(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if isStrayLetter(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// BuildContext cleans each chunk, joins them with blank lines and cuts the result to budget characters,
// appending TruncationMarker when anything was cut.
func BuildContext(chunks []string, budget int) string {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	cleaned := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = CleanChunkText(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	context := strings.Join(cleaned, "\n\n")
	r := []rune(context)
	if len(r) <= budget {
		return context
	}
	return string(r[:budget]) + TruncationMarker
}

// joinNumberRuns glues together numeric fragments separated by spaces. A run starts at a currency
// token ("$" or "$12") or at a single digit, and keeps absorbing numeric tokens as long as one side of
// each join is a single character. Runs without a currency sign must contain a decimal separator, so
// ordinary lists such as "1 2 3" survive.
func joinNumberRuns(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		tok := tokens[i]
		currency := strings.HasPrefix(tok, "$") && isNumeric(tok[1:])
		if !currency && !(isNumeric(tok) && len(tok) == 1 && isDigit(tok)) {
			out = append(out, tok)
			i++
			continue
		}

		run := []string{tok}
		j := i + 1
		for j < len(tokens) && isNumeric(tokens[j]) {
			prev := run[len(run)-1]
			if len(prev) != 1 && len(tokens[j]) != 1 {
				break
			}
			run = append(run, tokens[j])
			j++
		}
		// A trailing separator punctuates the sentence: it stays outside the number but keeps its place
		// right after it.
		trail := ""
		for len(run) > 1 && isSeparator(run[len(run)-1]) {
			trail = run[len(run)-1] + trail
			run = run[:len(run)-1]
		}

		joined := strings.Join(run, "")
		if len(run) > 1 && (currency || strings.ContainsAny(joined[1:len(joined)-1], ".,")) {
			out = append(out, joined+trail)
			i = j
			continue
		}
		out = append(out, tok)
		i++
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !isDigitRune(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

func isDigit(s string) bool {
	for _, r := range s {
		if !isDigitRune(r) {
			return false
		}
	}
	return s != ""
}

func isDigitRune(r rune) bool {
	return r >= '0' && r <= '9'
}

func isSeparator(s string) bool {
	return s == "." || s == ","
}

func isStrayLetter(tok string) bool {
	if len(tok) != 1 {
		return false
	}
	c := tok[0]
	if c == 'a' || c == 'A' || c == 'I' {
		return false
	}
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
