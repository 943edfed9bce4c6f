package diffmeta

import (
	"regexp"
	"strings"
)

// Metadata is the fixed-shape structural summary of one content change.
// Absent signal is an empty list or zero count, never "unknown".
type Metadata struct {
	AddedFunctions      []string `json:"added_functions"`
	RemovedFunctions    []string `json:"removed_functions"`
	ModifiedFunctions   []string `json:"modified_functions"`
	CSSSelectorsAdded   []string `json:"css_selectors_added"`
	CSSSelectorsRemoved []string `json:"css_selectors_removed"`
	NewImports          int      `json:"new_imports"`
	RemovedImports      int      `json:"removed_imports"`
	ConditionChanges    int      `json:"condition_changes"`
}

// Empty reports whether no structural signal was extracted.
func (m Metadata) Empty() bool {
	return len(m.AddedFunctions) == 0 &&
		len(m.RemovedFunctions) == 0 &&
		len(m.ModifiedFunctions) == 0 &&
		len(m.CSSSelectorsAdded) == 0 &&
		len(m.CSSSelectorsRemoved) == 0 &&
		m.NewImports == 0 &&
		m.RemovedImports == 0 &&
		m.ConditionChanges == 0
}

var (
	// declaration shapes: function name(, name: function / name = function,
	// const name = ... =>
	funcDeclRe   = regexp.MustCompile(`\bfunction\s+([A-Za-z_$][\w$]*)\s*\(`)
	funcAssignRe = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*[:=]\s*function\b`)
	arrowRe      = regexp.MustCompile(`\b(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=[^=>]*=>`)

	importRe    = regexp.MustCompile(`^\s*import\b|\brequire\s*\(|^\s*@import\b`)
	conditionRe = regexp.MustCompile(`\bif\s*\(|\belse\s+if\b|\bswitch\s*\(|&&|\|\|`)

	cssSelectorRe = regexp.MustCompile(`[.#][A-Za-z_][\w-]*`)
)

// Extract scans unified-diff lines for declaration-shaped patterns. Added and
// removed sets are reconciled: a name present in both is reclassified as
// modified. fileKind "css" switches to selector extraction.
func Extract(diffLines []string, fileKind string) Metadata {
	md := Metadata{
		AddedFunctions:      []string{},
		RemovedFunctions:    []string{},
		ModifiedFunctions:   []string{},
		CSSSelectorsAdded:   []string{},
		CSSSelectorsRemoved: []string{},
	}

	var addedRaw, removedRaw []string
	var selAdded, selRemoved []string

	for _, line := range diffLines {
		var body string
		var added bool
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			body, added = line[1:], true
		case strings.HasPrefix(line, "-"):
			body, added = line[1:], false
		default:
			continue
		}

		if fileKind == "css" {
			// only rule-opening lines; the part after "{" (and lines without
			// a brace) is declarations, where #fff and friends live
			if brace := strings.Index(body, "{"); brace >= 0 {
				for _, sel := range cssSelectorRe.FindAllString(body[:brace], -1) {
					if added {
						selAdded = append(selAdded, sel)
					} else {
						selRemoved = append(selRemoved, sel)
					}
				}
			}
		} else {
			for _, name := range functionNames(body) {
				if added {
					addedRaw = append(addedRaw, name)
				} else {
					removedRaw = append(removedRaw, name)
				}
			}
		}

		if importRe.MatchString(body) {
			if added {
				md.NewImports++
			} else {
				md.RemovedImports++
			}
		}
		md.ConditionChanges += len(conditionRe.FindAllString(body, -1))
	}

	addedSet := dedupe(addedRaw)
	removedSet := dedupe(removedRaw)
	inBoth := map[string]bool{}
	for _, name := range addedSet {
		for _, other := range removedSet {
			if name == other {
				inBoth[name] = true
			}
		}
	}
	for _, name := range addedSet {
		if inBoth[name] {
			md.ModifiedFunctions = append(md.ModifiedFunctions, name)
		} else {
			md.AddedFunctions = append(md.AddedFunctions, name)
		}
	}
	for _, name := range removedSet {
		if !inBoth[name] {
			md.RemovedFunctions = append(md.RemovedFunctions, name)
		}
	}

	md.CSSSelectorsAdded = diffSelectors(selAdded, selRemoved)
	md.CSSSelectorsRemoved = diffSelectors(selRemoved, selAdded)
	return md
}

func functionNames(line string) []string {
	var names []string
	for _, re := range []*regexp.Regexp{funcDeclRe, funcAssignRe, arrowRe} {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if len(m) > 1 && m[1] != "" && m[1] != "function" {
				names = append(names, m[1])
			}
		}
	}
	return dedupe(names)
}

// diffSelectors keeps selectors seen on one side but not the other; a selector
// on both sides is line churn around it, not selector churn.
func diffSelectors(side, other []string) []string {
	otherSet := map[string]bool{}
	for _, s := range other {
		otherSet[s] = true
	}
	out := []string{}
	for _, s := range dedupe(side) {
		if !otherSet[s] {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
