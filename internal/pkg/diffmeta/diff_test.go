package diffmeta

import (
	"strings"
	"testing"
)

func TestComputeAddedFunction(t *testing.T) {
	oldContent := "function foo(){}"
	newContent := "function foo(){};function bar(){}"

	res := Compute(oldContent, newContent, "tilda-cart", "js")

	if !res.Reflowed {
		t.Fatal("single-line content must be reflowed before diffing")
	}
	if len(res.Metadata.AddedFunctions) != 1 || res.Metadata.AddedFunctions[0] != "bar" {
		t.Fatalf("added = %v, want [bar]", res.Metadata.AddedFunctions)
	}
	if len(res.Metadata.ModifiedFunctions) != 0 {
		t.Fatalf("modified = %v, want empty (foo untouched)", res.Metadata.ModifiedFunctions)
	}
	if len(res.Metadata.RemovedFunctions) != 0 {
		t.Fatalf("removed = %v, want empty", res.Metadata.RemovedFunctions)
	}
	if res.AddedLines == 0 {
		t.Error("expected added lines in the diff")
	}
}

func TestComputeModifiedFunction(t *testing.T) {
	oldContent := "function foo(a){return a;};function keep(){}"
	newContent := "function foo(a,b){return a+b;};function keep(){};function bar(){}"

	res := Compute(oldContent, newContent, "tilda-cart", "js")

	found := false
	for _, name := range res.Metadata.ModifiedFunctions {
		if name == "foo" {
			found = true
		}
	}
	if !found {
		t.Fatalf("modified = %v, want foo (its declaration line changed)", res.Metadata.ModifiedFunctions)
	}
	wantAdded := false
	for _, name := range res.Metadata.AddedFunctions {
		if name == "bar" {
			wantAdded = true
		}
		if name == "foo" {
			t.Fatalf("foo must be reclassified as modified, not added")
		}
	}
	if !wantAdded {
		t.Fatalf("added = %v, want bar", res.Metadata.AddedFunctions)
	}
}

func TestComputeRemovedFunction(t *testing.T) {
	oldContent := "function foo(){};function legacy(){}"
	newContent := "function foo(){}"

	res := Compute(oldContent, newContent, "tilda-cart", "js")

	if len(res.Metadata.RemovedFunctions) != 1 || res.Metadata.RemovedFunctions[0] != "legacy" {
		t.Fatalf("removed = %v, want [legacy]", res.Metadata.RemovedFunctions)
	}
}

func TestComputeAssignmentAndArrowShapes(t *testing.T) {
	oldContent := strings.Repeat("// padding\n", 12)
	newContent := oldContent +
		"this.add = function(item){ items.push(item); };\n" +
		"handlers.save = function(){};\n" +
		"const totals = (list) => list.length;\n"

	res := Compute(oldContent, newContent, "tilda-cart", "js")

	want := map[string]bool{"add": true, "save": true, "totals": true}
	for _, name := range res.Metadata.AddedFunctions {
		delete(want, name)
	}
	if len(want) != 0 {
		t.Fatalf("added = %v, missing %v", res.Metadata.AddedFunctions, want)
	}
	if res.Reflowed {
		t.Error("readable content must not be reflowed")
	}
}

func TestComputeCSSSelectors(t *testing.T) {
	oldContent := strings.Repeat("/* pad */\n", 12) +
		".t-cart__total { color: #000; }\n" +
		".t-old-promo { display: none; }\n"
	newContent := strings.Repeat("/* pad */\n", 12) +
		".t-cart__total { color: #fff; }\n" +
		".t-cart__discount { color: red; }\n"

	res := Compute(oldContent, newContent, "tilda-cart", "css")

	added := map[string]bool{}
	for _, s := range res.Metadata.CSSSelectorsAdded {
		added[s] = true
	}
	removed := map[string]bool{}
	for _, s := range res.Metadata.CSSSelectorsRemoved {
		removed[s] = true
	}
	if !added[".t-cart__discount"] {
		t.Errorf("selectors added = %v, want .t-cart__discount", res.Metadata.CSSSelectorsAdded)
	}
	if !removed[".t-old-promo"] {
		t.Errorf("selectors removed = %v, want .t-old-promo", res.Metadata.CSSSelectorsRemoved)
	}
	// .t-cart__total changed its body, not its existence
	if added[".t-cart__total"] || removed[".t-cart__total"] {
		t.Errorf("churned rule body misread as selector churn: +%v -%v",
			res.Metadata.CSSSelectorsAdded, res.Metadata.CSSSelectorsRemoved)
	}
	// hex colors are not selectors
	if added["#fff"] || removed["#000"] {
		t.Errorf("hex colors misread as selectors: +%v -%v",
			res.Metadata.CSSSelectorsAdded, res.Metadata.CSSSelectorsRemoved)
	}
}

func TestComputeImportsAndConditions(t *testing.T) {
	oldContent := strings.Repeat("// pad\n", 12)
	newContent := oldContent +
		"import helpers from './helpers.js';\n" +
		"if (cart.items.length === 0 && !promo) { reset(); }\n"

	res := Compute(oldContent, newContent, "tilda-cart", "js")

	if res.Metadata.NewImports != 1 {
		t.Errorf("NewImports = %d, want 1", res.Metadata.NewImports)
	}
	if res.Metadata.ConditionChanges == 0 {
		t.Error("expected condition churn to be counted")
	}
}

func TestComputeMalformedInputDegrades(t *testing.T) {
	res := Compute("", "\x00\xff{{{;;;", "garbage", "js")
	if res.ChangePercent != 100 {
		t.Errorf("empty old content: ChangePercent = %d, want 100", res.ChangePercent)
	}
	md := res.Metadata
	if len(md.AddedFunctions) != 0 || len(md.RemovedFunctions) != 0 || len(md.ModifiedFunctions) != 0 {
		t.Errorf("garbage input must yield empty function metadata: %+v", md)
	}
}

func TestReflowSplitsStatements(t *testing.T) {
	out := Reflow("a();b();c()", "js")
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	if out != "a();\nb();\nc()\n" {
		t.Errorf("unexpected reflow: %q", out)
	}
}

func TestChangePercent(t *testing.T) {
	oldContent := strings.Repeat("x", 200) + "\n" + strings.Repeat("y\n", 12)
	newContent := oldContent + strings.Repeat("z", 23)
	res := Compute(oldContent, newContent, "asset", "js")
	if res.SizeDelta != 23 {
		t.Errorf("SizeDelta = %d, want 23", res.SizeDelta)
	}
	wantPercent := 23 * 100 / len(oldContent)
	if res.ChangePercent != wantPercent {
		t.Errorf("ChangePercent = %d, want %d", res.ChangePercent, wantPercent)
	}
}
