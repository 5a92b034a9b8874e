package factory

import "testing"

func TestTraceReportsSources(t *testing.T) {
	f := MustNew(
		Opt("a", 1),
		Opt("b", Rule("a + 1")),
		Opt("c", ExprFunc(func(scope *Options) (any, error) {
			return scope.Get("a")
		})),
	)
	tree, err := f.Create(map[string]any{"a": 5}, WithSnapshotID("snap-t"))
	if err != nil {
		t.Fatalf("unexpected error from Create: %v", err)
	}

	trace, err := tree.Trace("a")
	if err != nil {
		t.Fatalf("unexpected error from Trace: %v", err)
	}
	if trace.Source != SourceExplicit || trace.Value != 5 {
		t.Fatalf("unexpected trace for explicit option: %+v", trace)
	}
	if trace.SnapshotID != "snap-t" || trace.Path != "a" {
		t.Fatalf("unexpected trace identity: %+v", trace)
	}
	if len(trace.Dependencies) != 0 {
		t.Fatalf("expected no dependencies for explicit value, got %v", trace.Dependencies)
	}

	trace, err = tree.Trace("b")
	if err != nil {
		t.Fatalf("unexpected error from Trace: %v", err)
	}
	if trace.Source != SourceRule {
		t.Fatalf("expected rule source, got %q", trace.Source)
	}
	if len(trace.Dependencies) != 1 || trace.Dependencies[0] != "a" {
		t.Fatalf("expected dependency on a, got %v", trace.Dependencies)
	}

	trace, err = tree.Trace("c")
	if err != nil {
		t.Fatalf("unexpected error from Trace: %v", err)
	}
	if trace.Source != SourceExpression {
		t.Fatalf("expected expression source, got %q", trace.Source)
	}
	if len(trace.Dependencies) != 1 || trace.Dependencies[0] != "a" {
		t.Fatalf("expected dependency on a, got %v", trace.Dependencies)
	}
}

func TestTraceLiteralDefault(t *testing.T) {
	f := MustNew(Opt("a", 1))
	tree, err := f.Create(nil)
	if err != nil {
		t.Fatalf("unexpected error from Create: %v", err)
	}
	trace, err := tree.Trace("a")
	if err != nil {
		t.Fatalf("unexpected error from Trace: %v", err)
	}
	if trace.Source != SourceLiteral || trace.Value != 1 {
		t.Fatalf("unexpected trace for literal default: %+v", trace)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	f := MustNew(Opt("a", 1), Opt("b", Rule("a + 1")))
	tree, err := f.Create(nil, WithSnapshotID("snap-json"))
	if err != nil {
		t.Fatalf("unexpected error from Create: %v", err)
	}

	trace, err := tree.Trace("b")
	if err != nil {
		t.Fatalf("unexpected error from Trace: %v", err)
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error from ToJSON: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("unexpected error from TraceFromJSON: %v", err)
	}
	if decoded.Path != trace.Path || decoded.Source != trace.Source || decoded.SnapshotID != trace.SnapshotID {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, trace)
	}
	if len(decoded.Dependencies) != len(trace.Dependencies) {
		t.Fatalf("dependency mismatch: %v vs %v", decoded.Dependencies, trace.Dependencies)
	}
}
