package topic

import "regexp"

// regexExpr wraps a compiled regexp, anchored so that Pattern parts
// must fully match a target fragment rather than merely contain a
// match (spec: "r fully matches b").
type regexExpr struct {
	re *regexp.Regexp
}

func compilePattern(src string) (*regexExpr, error) {
	re, err := regexp.Compile("^(?:" + src + ")$")
	if err != nil {
		return nil, err
	}
	return &regexExpr{re: re}, nil
}

func (r *regexExpr) fullyMatches(s string) bool {
	return r.re.MatchString(s)
}
