package layering

import (
	"reflect"
	"testing"
)

func TestMergeOverridesStrongestWins(t *testing.T) {
	cli := map[string]any{"port": 9090}
	file := map[string]any{"port": 8080, "host": "example.com"}
	defaults := map[string]any{"host": "localhost", "debug": false}

	merged := MergeOverrides(cli, file, defaults)
	want := map[string]any{"port": 9090, "host": "example.com", "debug": false}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("expected %v, got %v", want, merged)
	}
}

func TestMergeOverridesNestedSections(t *testing.T) {
	strong := map[string]any{
		"server": map[string]any{"port": 9090},
	}
	weak := map[string]any{
		"server": map[string]any{"port": 8080, "host": "localhost"},
		"name":   "svc",
	}

	merged := MergeOverrides(strong, weak)
	server, ok := merged["server"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map, got %T", merged["server"])
	}
	if server["port"] != 9090 || server["host"] != "localhost" {
		t.Fatalf("expected recursive merge, got %v", server)
	}
	if merged["name"] != "svc" {
		t.Fatalf("expected weak-only key to survive, got %v", merged)
	}
}

func TestMergeOverridesReplacesNonMapsWholesale(t *testing.T) {
	strong := map[string]any{"tags": []any{"a"}}
	weak := map[string]any{"tags": []any{"b", "c"}}

	merged := MergeOverrides(strong, weak)
	tags, ok := merged["tags"].([]any)
	if !ok || len(tags) != 1 || tags[0] != "a" {
		t.Fatalf("expected slice replacement, got %v", merged["tags"])
	}
}

func TestMergeOverridesDoesNotMutateInputs(t *testing.T) {
	strong := map[string]any{"s": map[string]any{"a": 1}}
	weak := map[string]any{"s": map[string]any{"b": 2}}

	merged := MergeOverrides(strong, weak)
	mergedSection := merged["s"].(map[string]any)
	mergedSection["c"] = 3

	if _, ok := strong["s"].(map[string]any)["c"]; ok {
		t.Fatalf("expected strong input untouched")
	}
	if _, ok := weak["s"].(map[string]any)["c"]; ok {
		t.Fatalf("expected weak input untouched")
	}
}

func TestMergeOverridesEmpty(t *testing.T) {
	if merged := MergeOverrides(); len(merged) != 0 {
		t.Fatalf("expected empty result, got %v", merged)
	}
	if merged := MergeOverrides(nil, map[string]any{"a": 1}); merged["a"] != 1 {
		t.Fatalf("expected nil layers skipped, got %v", merged)
	}
}

func TestClone(t *testing.T) {
	src := map[string]any{"s": map[string]any{"a": 1}}
	dup := Clone(src)
	dup["s"].(map[string]any)["a"] = 2
	if src["s"].(map[string]any)["a"] != 1 {
		t.Fatalf("expected deep clone of nested maps")
	}
	if Clone(nil) != nil {
		t.Fatalf("expected nil clone of nil input")
	}
}
