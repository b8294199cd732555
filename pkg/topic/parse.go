package topic

import (
	"strings"

	"github.com/twmb/eventengine/pkg/eerr"
)

// Parse parses a dotted topic string into a Topic. Grammar (§6):
//
//	topic   := part ( "." part )*
//	part    := exact | any | range | pattern
//	exact   := [^.{}()/|]+
//	any     := "{" name "}"
//	range   := "(" opt ( "|" opt )+ ")"
//	pattern := "/" regex "/"
//
// Parsing is eager: Pattern parts are compiled immediately, so a bad
// regex fails Parse rather than failing on first match.
func Parse(s string) (*Topic, error) {
	if s == "" {
		return nil, &eerr.ParseError{Input: s, Pos: 0, Msg: "empty topic"}
	}
	raw, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}
	parts := make([]TopicPart, len(raw))
	pos := 0
	for i, seg := range raw {
		p, err := parsePart(s, seg, pos)
		if err != nil {
			return nil, err
		}
		parts[i] = p
		pos += len(seg) + 1
	}
	return New(parts), nil
}

// splitTopLevel breaks s into raw part substrings on '.', without
// splitting inside {...}, (...), or /.../ regions.
func splitTopLevel(s string) ([]string, error) {
	var parts []string
	var cur strings.Builder
	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch c {
		case '.':
			parts = append(parts, cur.String())
			cur.Reset()
			i++
		case '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				return nil, &eerr.ParseError{Input: s, Pos: i, Msg: "unterminated '{'"}
			}
			cur.WriteString(s[i : i+1+end+1])
			i += 1 + end + 1
		case '(':
			end := strings.IndexByte(s[i+1:], ')')
			if end < 0 {
				return nil, &eerr.ParseError{Input: s, Pos: i, Msg: "unterminated '('"}
			}
			cur.WriteString(s[i : i+1+end+1])
			i += 1 + end + 1
		case '/':
			k := i + 1
			for k < n {
				if s[k] == '\\' && k+1 < n {
					k += 2
					continue
				}
				if s[k] == '/' {
					break
				}
				k++
			}
			if k >= n {
				return nil, &eerr.ParseError{Input: s, Pos: i, Msg: "unterminated '/'"}
			}
			cur.WriteString(s[i : k+1])
			i = k + 1
		default:
			cur.WriteByte(c)
			i++
		}
	}
	parts = append(parts, cur.String())
	return parts, nil
}

func parsePart(full, seg string, pos int) (TopicPart, error) {
	if seg == "" {
		return TopicPart{}, &eerr.ParseError{Input: full, Pos: pos, Msg: "empty segment"}
	}

	switch {
	case seg[0] == '{' && seg[len(seg)-1] == '}':
		name := seg[1 : len(seg)-1]
		if name == "" {
			return TopicPart{}, &eerr.ParseError{Input: full, Pos: pos, Msg: "empty wildcard name"}
		}
		return TopicPart{Kind: Any, Name: name}, nil

	case seg[0] == '(' && seg[len(seg)-1] == ')':
		body := seg[1 : len(seg)-1]
		opts := strings.Split(body, "|")
		if len(opts) < 2 {
			return TopicPart{}, &eerr.ParseError{Input: full, Pos: pos, Msg: "range requires at least two alternatives"}
		}
		for _, o := range opts {
			if o == "" {
				return TopicPart{}, &eerr.ParseError{Input: full, Pos: pos, Msg: "empty range alternative"}
			}
		}
		return TopicPart{Kind: Range, Options: opts}, nil

	case seg[0] == '/' && len(seg) >= 2 && seg[len(seg)-1] == '/':
		src := unescapeSlashes(seg[1 : len(seg)-1])
		compiled, err := compilePattern(src)
		if err != nil {
			return TopicPart{}, &eerr.ParseError{Input: full, Pos: pos, Msg: "invalid regex: " + err.Error()}
		}
		return TopicPart{Kind: Pattern, Source: src, Compiled: compiled}, nil

	default:
		if strings.ContainsAny(seg, ".{}()/|") {
			return TopicPart{}, &eerr.ParseError{Input: full, Pos: pos, Msg: "exact fragment contains reserved characters"}
		}
		return TopicPart{Kind: Exact, Literal: seg}, nil
	}
}

func unescapeSlashes(s string) string {
	if !strings.Contains(s, `\/`) {
		return s
	}
	return strings.ReplaceAll(s, `\/`, "/")
}

// Join builds a Topic from pre-built literal components, one
// TopicPart per argument — unlike Parse, it does not re-split a
// fragment on ".". This means Join("A","B","C") and Join("A.B","C")
// produce structurally distinct topics (three Exact parts vs two, one
// of which embeds a separator) with different canonical keys, despite
// an identical display Literal ("A.B.C"): the two calls record a
// different number of original components.
func Join(fragments ...string) (*Topic, error) {
	if len(fragments) == 0 {
		return nil, &eerr.ParseError{Input: "", Pos: 0, Msg: "empty topic"}
	}
	parts := make([]TopicPart, len(fragments))
	for i, f := range fragments {
		if f == "" {
			return nil, &eerr.ParseError{Input: strings.Join(fragments, Separator), Pos: i, Msg: "empty segment"}
		}
		parts[i] = TopicPart{Kind: Exact, Literal: f}
	}
	return New(parts), nil
}
