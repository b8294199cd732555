// Package topic implements the hierarchical topic model: parsing
// dotted topic strings into structured parts (literal, named
// wildcard, alternation, regex), a canonical key used for equality
// and map bucketing, and the matcher used by engine dispatch.
package topic

import (
	"strings"

	"github.com/twmb/eventengine/pkg/ehash"
)

// Kind tags the variant a TopicPart holds.
type Kind uint8

const (
	// Exact matches a literal fragment.
	Exact Kind = iota
	// Any is a named wildcard; it captures any non-empty fragment.
	Any
	// Range matches if the target fragment equals one of Options.
	Range
	// Pattern matches if the target fragment fully matches Compiled.
	Pattern
)

func (k Kind) tag() byte {
	switch k {
	case Exact:
		return 'E'
	case Any:
		return 'A'
	case Range:
		return 'R'
	case Pattern:
		return 'P'
	default:
		panic("topic: unknown Kind")
	}
}

// Separator joins parts in a topic's display string.
const Separator = "."

// TopicPart is one fragment of a Topic, tagged by Kind. Only the
// fields relevant to Kind are populated:
//
//	Exact:   Literal
//	Any:     Name
//	Range:   Options
//	Pattern: Source, Compiled
type TopicPart struct {
	Kind     Kind
	Literal  string   // Exact
	Name     string   // Any
	Options  []string // Range, in declared order
	Source   string   // Pattern, the regex source text
	Compiled *regexExpr
}

// Topic is an immutable, ordered sequence of TopicParts, parsed once
// and never mutated afterward (Format returns a new Topic).
type Topic struct {
	Parts   []TopicPart
	literal string // original/display string
	key     []byte // canonical key, see buildKey
	hash    uint64
	exact   bool
}

// Literal returns the topic's original (or reconstructed) dotted
// string form.
func (t *Topic) Literal() string { return t.literal }

// Key returns the canonical byte-string key used for equality and map
// bucketing. Two topics are equal iff their Key()s are byte-equal.
func (t *Topic) Key() []byte { return t.key }

// Hash returns the stable 64-bit hash of Key().
func (t *Topic) Hash() uint64 { return t.hash }

// IsExact reports whether every part is Exact.
func (t *Topic) IsExact() bool { return t.exact }

// Equal reports whether two topics have the same canonical key.
func (t *Topic) Equal(o *Topic) bool {
	if t == nil || o == nil {
		return t == o
	}
	return string(t.key) == string(o.key)
}

// Len returns the number of parts.
func (t *Topic) Len() int { return len(t.Parts) }

// New constructs a Topic directly from already-built parts, computing
// its literal, key, hash, and exactness. Used by Format and by tests
// that want to avoid the string parser.
func New(parts []TopicPart) *Topic {
	lits := make([]string, len(parts))
	exact := true
	for i, p := range parts {
		lits[i] = partLiteral(p)
		if p.Kind != Exact {
			exact = false
		}
	}
	t := &Topic{
		Parts:   parts,
		literal: strings.Join(lits, Separator),
		exact:   exact,
	}
	t.key = buildKey(parts, exact, t.literal)
	t.hash = ehash.Sum64(t.key)
	return t
}

func partLiteral(p TopicPart) string {
	switch p.Kind {
	case Exact:
		return p.Literal
	case Any:
		return "{" + p.Name + "}"
	case Range:
		return "(" + strings.Join(p.Options, "|") + ")"
	case Pattern:
		return "/" + p.Source + "/"
	default:
		panic("topic: unknown Kind")
	}
}

// buildKey encodes parts as a length-prefixed, tag-prefixed sequence
// so that structurally distinct decompositions never collide even
// when their display literal is identical (e.g. Join("A","B","C") vs
// Join("A.B","C") — the latter has a single Exact part whose literal
// is "A.B", the former has two). For an all-Exact topic whose parts
// never embed the "." separator (always true for topics built by
// Parse, which rejects dots inside Exact fragments) the key equals
// the literal string verbatim, which is cheaper and still injective.
// Join can produce Exact parts that do embed a separator, so those
// fall back to the structural tagged encoding.
func buildKey(parts []TopicPart, exact bool, literal string) []byte {
	if exact && !anyPartEmbedsSeparator(parts) {
		return []byte(literal)
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(0) // delimiter byte; the length prefixes keep parts unambiguous
		}
		writeTagged(&b, p)
	}
	return []byte(b.String())
}

func anyPartEmbedsSeparator(parts []TopicPart) bool {
	for _, p := range parts {
		if p.Kind == Exact && strings.Contains(p.Literal, Separator) {
			return true
		}
	}
	return false
}

func writeTagged(b *strings.Builder, p TopicPart) {
	b.WriteByte(p.Kind.tag())
	switch p.Kind {
	case Exact:
		writeLenPrefixed(b, p.Literal)
	case Any:
		writeLenPrefixed(b, p.Name)
	case Range:
		writeVarint(b, uint64(len(p.Options)))
		for _, o := range p.Options {
			writeLenPrefixed(b, o)
		}
	case Pattern:
		writeLenPrefixed(b, p.Source)
	}
}

func writeLenPrefixed(b *strings.Builder, s string) {
	writeVarint(b, uint64(len(s)))
	b.WriteString(s)
}

func writeVarint(b *strings.Builder, v uint64) {
	var buf [10]byte
	n := 0
	for v >= 0x80 {
		buf[n] = byte(v) | 0x80
		v >>= 7
		n++
	}
	buf[n] = byte(v)
	n++
	b.Write(buf[:n])
}

// Format substitutes Any parts whose Name appears in assignments with
// an Exact part carrying the assigned value; other parts are carried
// through unchanged. If every resulting part is Exact the returned
// topic's IsExact is true.
func (t *Topic) Format(assignments map[string]string) *Topic {
	parts := make([]TopicPart, len(t.Parts))
	for i, p := range t.Parts {
		if p.Kind == Any {
			if v, ok := assignments[p.Name]; ok {
				parts[i] = TopicPart{Kind: Exact, Literal: v}
				continue
			}
		}
		parts[i] = p
	}
	return New(parts)
}
