package nickname

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed words/adjectives.txt
var adjectivesRaw string

//go:embed words/nouns.txt
var nounsRaw string

//go:embed words/colors.txt
var colorsRaw string

// Words holds the three word categories candidates are composed from. The
// lists are read once and treated as immutable for the process lifetime.
type Words struct {
	Adjectives []string
	Nouns      []string
	Colors     []string
}

// DefaultWords returns the word lists embedded in the binary.
func DefaultWords() Words {
	return Words{
		Adjectives: splitWordList(adjectivesRaw),
		Nouns:      splitWordList(nounsRaw),
		Colors:     splitWordList(colorsRaw),
	}
}

func (w Words) validate() error {
	if len(w.Adjectives) == 0 || len(w.Nouns) == 0 || len(w.Colors) == 0 {
		return fmt.Errorf("nickname: all three word lists must be non-empty (adjectives=%d nouns=%d colors=%d)",
			len(w.Adjectives), len(w.Nouns), len(w.Colors))
	}
	return nil
}

func splitWordList(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		w := strings.TrimSpace(l)
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
