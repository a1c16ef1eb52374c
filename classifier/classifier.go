// Package classifier derives a notification kind from its human readable text.
// It is the only place that inspects notification wording, so replacing it with
// a structured discriminant does not touch callers.
package classifier

import (
	"chat-session/domain"
	"slices"
	"strings"
	"sync"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// DefaultSuffixes are the texts the backend appends after the actor's name.
var DefaultSuffixes = map[domain.DerivedKind]string{
	domain.KindFollow:             "has followed you.",
	domain.KindUnfollow:           "has unfollowed you.",
	domain.KindPrivateChatRequest: "has sent you a private chat request.",
	domain.KindVotedPost:          "has voted your post.",
	domain.KindRemovedFollower:    "has removed you from his/her followers list.",
	domain.KindCommentedPost:      "has commented on your post.",
}

type Classifier struct {
	matcher *goahocorasick.Machine
	kinds   map[string]domain.DerivedKind
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// New builds the automaton over the normalized suffixes.
func New(suffixes map[domain.DerivedKind]string) (*Classifier, error) {
	patterns := make([][]rune, 0, len(suffixes))
	kinds := make(map[string]domain.DerivedKind, len(suffixes))
	for kind, suffix := range suffixes {
		p := normalize(suffix).normalized
		patterns = append(patterns, p)
		kinds[string(p)] = kind
	}
	// darts expects its keywords in lexical order
	slices.SortFunc(patterns, func(a, b []rune) int {
		return strings.Compare(string(a), string(b))
	})

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Classifier{matcher: m, kinds: kinds}, nil
}

// Classify returns the kind whose suffix ends the message, and the text before it.
// Matching ignores case, spacing and punctuation. When several suffixes end the
// message the longest one wins.
func (c *Classifier) Classify(message string) (domain.DerivedKind, string) {
	mapping := normalize(message)
	if len(mapping.normalized) == 0 {
		return domain.KindUnknown, ""
	}

	var (
		best    domain.DerivedKind
		bestPos = -1
	)
	for _, term := range c.matcher.MultiPatternSearch(mapping.normalized, false) {
		if term.Pos+len(term.Word) != len(mapping.normalized) {
			continue
		}
		if bestPos == -1 || term.Pos < bestPos {
			best = c.kinds[string(term.Word)]
			bestPos = term.Pos
		}
	}
	if bestPos == -1 {
		return domain.KindUnknown, ""
	}

	origRunes := []rune(message)
	actor := strings.TrimSpace(string(origRunes[:mapping.origIdx[bestPos]]))
	return best, actor
}

var defaultClassifier = sync.OnceValues(func() (*Classifier, error) {
	return New(DefaultSuffixes)
})

// Classify uses the backend's default suffixes.
func Classify(message string) (domain.DerivedKind, string) {
	c, err := defaultClassifier()
	if err != nil {
		return domain.KindUnknown, ""
	}
	return c.Classify(message)
}

func normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))
	for i, r := range origRunes {
		if isNoise(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
