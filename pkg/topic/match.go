package topic

// NodeResult is the per-part outcome of a Match call.
type NodeResult struct {
	Matched  bool
	Captured string // the target fragment, when Matched
	Name     string // the Any part's capture name; "" for Exact/Range/Pattern parts
}

// MatchResult is the outcome of matching a pattern Topic against a
// target Topic, one NodeResult per part.
type MatchResult struct {
	Matched bool
	Nodes   []NodeResult
}

// Captures collects the named captures (from Any parts) into a map
// keyed by wildcard name.
func (r MatchResult) Captures() map[string]string {
	out := make(map[string]string)
	for _, n := range r.Nodes {
		if n.Matched && n.Name != "" {
			out[n.Name] = n.Captured
		}
	}
	return out
}

// Match matches the receiver (the registered pattern) against other
// (a publish-time target), per the table in spec §4.1. other must be
// an exact topic — if it is not, the match always fails, since a
// generic topic was never meant to be published, only registered.
func (t *Topic) Match(other *Topic) MatchResult {
	if len(t.Parts) != len(other.Parts) {
		return MatchResult{Matched: false}
	}
	if !other.exact {
		return MatchResult{Matched: false}
	}

	nodes := make([]NodeResult, len(t.Parts))
	ok := true
	for i, self := range t.Parts {
		b := other.Parts[i].Literal
		n := matchPart(self, b)
		nodes[i] = n
		if !n.Matched {
			ok = false
		}
	}
	return MatchResult{Matched: ok, Nodes: nodes}
}

func matchPart(self TopicPart, b string) NodeResult {
	switch self.Kind {
	case Exact:
		if self.Literal == b {
			return NodeResult{Matched: true, Captured: b}
		}
		return NodeResult{Matched: false}
	case Any:
		return NodeResult{Matched: true, Captured: b, Name: self.Name}
	case Range:
		for _, opt := range self.Options {
			if opt == b {
				return NodeResult{Matched: true, Captured: b}
			}
		}
		return NodeResult{Matched: false}
	case Pattern:
		if self.Compiled.fullyMatches(b) {
			return NodeResult{Matched: true, Captured: b}
		}
		return NodeResult{Matched: false}
	default:
		return NodeResult{Matched: false}
	}
}
