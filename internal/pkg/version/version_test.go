package version

import "testing"

func TestParseStrategies(t *testing.T) {
	cases := []struct {
		locator string
		base    string
		version string
		kind    string
		pattern string
	}{
		{"https://static.tildacdn.com/js/tilda-cart-1.1.min.js", "tilda-cart", "1.1", "js", PatternDashVersion},
		{"https://static.tildacdn.com/js/tilda-zero-1.0.min.js", "tilda-zero", "1.0", "js", PatternDashVersion},
		{"https://static.tildacdn.com/css/tilda-grid-3.0.min.css", "tilda-grid", "3.0", "css", PatternDashVersion},
		{"https://static.tildacdn.com/js/tilda-slider-1.2.3.js", "tilda-slider", "1.2.3", "js", PatternDashVersion},
		{"https://static.tildacdn.com/js/tilda-cart-v2.min.js", "tilda-cart", "2", "js", PatternDashV},
		{"https://static.tildacdn.com/js/tilda-cart-v2.1.4.min.js", "tilda-cart", "2.1.4", "js", PatternDashV},
		{"https://static.tildacdn.com/js/tilda-cart.1.0.min.js", "tilda-cart", "1.0", "js", PatternDotVersion},
		{"https://static.tildacdn.com/js/tilda-cart.min.js", "tilda-cart", "", "js", PatternBare},
		{"https://static.tildacdn.com/js/hammer.min.js", "hammer", "", "js", PatternBare},
		{"https://members.tildaapi.com/frontend/css/tilda-members-styles.min.css", "tilda-members-styles", "", "css", PatternBare},
	}
	for _, tc := range cases {
		got := Parse(tc.locator)
		if got.BaseName != tc.base {
			t.Errorf("Parse(%q).BaseName = %q, want %q", tc.locator, got.BaseName, tc.base)
		}
		if got.Version != tc.version {
			t.Errorf("Parse(%q).Version = %q, want %q", tc.locator, got.Version, tc.version)
		}
		if got.FileKind != tc.kind {
			t.Errorf("Parse(%q).FileKind = %q, want %q", tc.locator, got.FileKind, tc.kind)
		}
		if got.Pattern != tc.pattern {
			t.Errorf("Parse(%q).Pattern = %q, want %q", tc.locator, got.Pattern, tc.pattern)
		}
	}
}

func TestParseFirstStrategyWins(t *testing.T) {
	// The dash-version shape must win before the bare shape gets a chance to
	// swallow the version digits into the base name.
	got := Parse("https://static.tildacdn.com/js/tilda-cart-1.1.min.js")
	if got.Pattern != PatternDashVersion {
		t.Fatalf("expected %s, got %s", PatternDashVersion, got.Pattern)
	}
	if got.BaseName != "tilda-cart" || got.Version != "1.1" {
		t.Fatalf("got base=%q version=%q", got.BaseName, got.Version)
	}
}

func TestParseFallback(t *testing.T) {
	// Extensions outside js/css match no strategy; the whole filename becomes
	// the base name and the result still carries no error.
	got := Parse("https://static.tildacdn.com/img/logo.svg")
	if got.Pattern != "" {
		t.Fatalf("expected fallback, matched %q", got.Pattern)
	}
	if got.BaseName != "logo.svg" {
		t.Errorf("BaseName = %q, want %q", got.BaseName, "logo.svg")
	}
	if got.Version != "" {
		t.Errorf("Version = %q, want empty", got.Version)
	}
	if got.FileKind != "" {
		t.Errorf("FileKind = %q, want empty", got.FileKind)
	}

	// The bare strategy is an unanchored search: characters outside [\w-]
	// before the name do not stop the tail from matching.
	tail := Parse("https://static.tildacdn.com/js/weird~name.min.js")
	if tail.Pattern != PatternBare || tail.BaseName != "name" {
		t.Errorf("got pattern=%q base=%q, want bare/name", tail.Pattern, tail.BaseName)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	locators := []string{
		"https://static.tildacdn.com/js/tilda-cart-1.1.min.js",
		"https://static.tildacdn.com/js/tilda-cart.min.js",
		"https://neo.tildacdn.com/js/tilda-fallback-1.0.min.js",
	}
	for _, loc := range locators {
		first := Parse(loc)
		second := Parse(loc)
		if first != second {
			t.Errorf("Parse(%q) not stable: %+v vs %+v", loc, first, second)
		}
	}
}

func TestParseDomain(t *testing.T) {
	got := Parse("https://members.tildaapi.com/frontend/js/tilda-members-sign.min.js")
	if got.Domain != "members.tildaapi.com" {
		t.Errorf("Domain = %q", got.Domain)
	}
	if got.Filename != "tilda-members-sign.min.js" {
		t.Errorf("Filename = %q", got.Filename)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want Comparison
	}{
		{"", "", Equal},
		{"", "1.0", Less},
		{"1.0", "", Greater},
		{"1.0", "1.0", Equal},
		{"1.0", "1.1", Less},
		{"1.1", "1.0", Greater},
		{"1.9", "1.10", Less},
		{"2", "1.9", Greater},
		{"1.0", "1.0.1", Less},
		{"1.0.0", "1.0", Equal},
		{"3.0", "2.8", Greater},
		// non-numeric tokens fall back to ordinal comparison
		{"beta", "rc", Less},
		{"1.0b", "1.0a", Greater},
		{"1.0", "1.0a", Less},
	}
	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Errorf("Compare(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCompareAntisymmetry(t *testing.T) {
	tokens := []string{"", "1.0", "1.1", "2", "1.0.3", "1.10", "beta", "rc", "1.0a"}
	for _, a := range tokens {
		for _, b := range tokens {
			ab := Compare(a, b)
			ba := Compare(b, a)
			if ab == Equal && ba != Equal {
				t.Errorf("Compare(%q,%q)=Equal but Compare(%q,%q)=%v", a, b, b, a, ba)
			}
			if ab == Less && ba != Greater {
				t.Errorf("Compare(%q,%q)=Less but Compare(%q,%q)=%v", a, b, b, a, ba)
			}
			if ab == Greater && ba != Less {
				t.Errorf("Compare(%q,%q)=Greater but Compare(%q,%q)=%v", a, b, b, a, ba)
			}
		}
		if Compare(a, a) != Equal {
			t.Errorf("Compare(%q,%q) != Equal", a, a)
		}
	}
}

func TestIsNewer(t *testing.T) {
	if !IsNewer("", "1.0") {
		t.Error("unknown current must treat any candidate as newer")
	}
	if IsNewer("1.0", "") {
		t.Error("candidate without a version is never newer")
	}
	if IsNewer("1.1", "1.1") {
		t.Error("equal versions are not newer")
	}
	if !IsNewer("1.0", "1.1") {
		t.Error("1.1 is newer than 1.0")
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("tilda-cart", "tilda-cart"); got != 1.0 {
		t.Errorf("identical names: %v", got)
	}
	if got := Similarity("", "tilda-cart"); got != 0 {
		t.Errorf("empty name: %v", got)
	}
	got := Similarity("tilda-cart", "tilda-carts2")
	if got <= 0.7 {
		t.Errorf("rename candidate scored %v, want > 0.7", got)
	}
	low := Similarity("tilda-cart", "hammer")
	if low >= 0.7 {
		t.Errorf("unrelated names scored %v, want < 0.7", low)
	}
}
