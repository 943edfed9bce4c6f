// Package version parses asset locators into base name / version token /
// extension and orders version tokens.
package version

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Comparison is the ordering of two version tokens.
type Comparison int

const (
	Less Comparison = iota - 1
	Equal
	Greater
)

func (c Comparison) String() string {
	switch c {
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "equal"
	}
}

// Pattern tags persisted on discovered candidates.
const (
	PatternDashVersion = "name-version"
	PatternDashV       = "name-vnum"
	PatternDotVersion  = "name-dot-version"
	PatternBare        = "bare"
)

// Parsed is the result of decomposing a locator. Version is empty when the
// locator carries no version token. Pattern is empty when no strategy matched
// and the base name came from the suffix-stripping fallback.
type Parsed struct {
	Locator  string
	Filename string
	BaseName string
	Version  string
	FileKind string
	Domain   string
	Pattern  string
}

var strategies = []struct {
	tag string
	re  *regexp.Regexp
}{
	// tilda-cart-1.1.min.js
	{PatternDashVersion, regexp.MustCompile(`(?P<base>[\w-]+)-(?P<version>\d+\.\d+(?:\.\d+)?)(\.min)?\.(?P<ext>js|css)`)},
	// tilda-cart-v2.min.js
	{PatternDashV, regexp.MustCompile(`(?P<base>[\w-]+)-v(?P<version>\d+(?:\.\d+)*)(\.min)?\.(?P<ext>js|css)`)},
	// tilda-cart.1.0.min.js
	{PatternDotVersion, regexp.MustCompile(`(?P<base>[\w-]+)\.(?P<version>\d+\.\d+(?:\.\d+)?)(\.min)?\.(?P<ext>js|css)`)},
	// tilda-cart.min.js
	{PatternBare, regexp.MustCompile(`(?P<base>[\w-]+)(\.min)?\.(?P<ext>js|css)$`)},
}

// Parse decomposes a locator. It is total: every input yields a Parsed with a
// base name when any name can be derived, and never an error. Strategies are
// tried in order and the first whose shape matches wins.
func Parse(locator string) Parsed {
	out := Parsed{Locator: locator}

	path := locator
	if u, err := url.Parse(locator); err == nil {
		out.Domain = u.Host
		if u.Path != "" {
			path = u.Path
		}
	}
	segs := strings.Split(path, "/")
	out.Filename = segs[len(segs)-1]

	for _, s := range strategies {
		m := s.re.FindStringSubmatch(out.Filename)
		if m == nil {
			continue
		}
		for i, name := range s.re.SubexpNames() {
			switch name {
			case "base":
				out.BaseName = m[i]
			case "version":
				out.Version = m[i]
			case "ext":
				out.FileKind = m[i]
			}
		}
		out.Pattern = s.tag
		return out
	}

	// No strategy matched: derive a base name from the suffix alone.
	switch {
	case strings.HasSuffix(out.Filename, ".js"):
		out.BaseName = strings.TrimSuffix(strings.TrimSuffix(out.Filename, ".js"), ".min")
		out.FileKind = "js"
	case strings.HasSuffix(out.Filename, ".css"):
		out.BaseName = strings.TrimSuffix(strings.TrimSuffix(out.Filename, ".css"), ".min")
		out.FileKind = "css"
	default:
		out.BaseName = out.Filename
	}
	return out
}

// Compare orders two version tokens. The empty token (unknown version) sorts
// below any non-empty one. Non-empty tokens are compared as dotted integer
// sequences, the shorter padded with zeros; when either token is not a dotted
// integer sequence both fall back to ordinal string comparison, which is
// deterministic but not semantic (e.g. "beta" vs "rc").
func Compare(a, b string) Comparison {
	if a == "" && b == "" {
		return Equal
	}
	if a == "" {
		return Less
	}
	if b == "" {
		return Greater
	}

	na, okA := parseDotted(a)
	nb, okB := parseDotted(b)
	if okA && okB {
		n := len(na)
		if len(nb) > n {
			n = len(nb)
		}
		for i := 0; i < n; i++ {
			var va, vb int
			if i < len(na) {
				va = na[i]
			}
			if i < len(nb) {
				vb = nb[i]
			}
			if va < vb {
				return Less
			}
			if va > vb {
				return Greater
			}
		}
		return Equal
	}

	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(current, candidate string) bool {
	return Compare(current, candidate) == Less
}

func parseDotted(v string) ([]int, bool) {
	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// Similarity scores how much of the shorter name appears, in order, inside the
// longer one, normalized by the longer name's length. Used only to flag
// probable renames for review; it never drives matching.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longer, shorter := a, b
	if len(b) > len(a) {
		longer, shorter = b, a
	}
	matches, j := 0, 0
	for i := 0; i < len(shorter); i++ {
		for j < len(longer) && longer[j] != shorter[i] {
			j++
		}
		if j < len(longer) {
			matches++
			j++
		}
	}
	return float64(matches) / float64(len(longer))
}
