package sentiment

import (
	"iter"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	urlPattern   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	spacePattern = regexp.MustCompile(`\s+`)
	// Keeps word characters, whitespace, Hiragana, Katakana, Kanji and
	// CJK punctuation. Everything else is scrubbed before scoring.
	allowPattern = regexp.MustCompile(`[^\w\s\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}\x{3000}-\x{303F}]`)
)

// Normalize cleans one raw text for scoring: NFKC folding, markup and link
// removal, the character allow-list, and whitespace collapsing. An empty
// result means the input carried no scoreable content.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text := norm.NFKC.String(raw)
	// Markdown renders to HTML, then every tag goes away. Bare markup in
	// scraped text falls to the same tag pattern.
	text = string(blackfriday.Run([]byte(text), blackfriday.WithNoExtensions()))
	text = tagPattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, "")
	text = allowPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// SplitBundle splits a delimiter-joined bundle into normalized items,
// dropping the pieces that normalize to empty. The sequence is lazy,
// restartable, and preserves input order. An empty bundle yields nothing.
func SplitBundle(bundle string, delimiter rune) iter.Seq[string] {
	return func(yield func(string) bool) {
		if bundle == "" {
			return
		}
		for _, piece := range strings.Split(bundle, string(delimiter)) {
			item := Normalize(piece)
			if item == "" {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}
