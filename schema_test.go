package factory

import (
	"reflect"
	"testing"
)

func TestDescribeFlattensDeclarations(t *testing.T) {
	f := MustNew(
		Opt("a", WithMeta{Default: 1, Doc: "option a", Allowed: []any{1, 2}}),
		Opt("needed", WithMeta{Doc: "must be set"}),
		Opt("computed", Rule("a + 1")),
		Sec("server",
			Opt("port", WithMeta{Default: 8080, Types: []reflect.Type{TypeOf[int]()}}),
		),
	)

	doc := Describe(f)
	if doc.Format != SchemaFormatDescriptors {
		t.Fatalf("unexpected format %q", doc.Format)
	}

	fields := make(map[string]FieldDescriptor, len(doc.Fields))
	order := make([]string, 0, len(doc.Fields))
	for _, field := range doc.Fields {
		fields[field.Path] = field
		order = append(order, field.Path)
	}

	want := []string{"a", "needed", "computed", "server.port"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected declaration order %v, got %v", want, order)
	}

	a := fields["a"]
	if a.Doc != "option a" || !a.HasDefault || a.Default != 1 || len(a.Allowed) != 2 {
		t.Fatalf("unexpected descriptor for a: %+v", a)
	}
	if !fields["needed"].Required || fields["needed"].HasDefault {
		t.Fatalf("unexpected descriptor for required option: %+v", fields["needed"])
	}
	computed := fields["computed"]
	if !computed.HasDefault || computed.Default != nil {
		t.Fatalf("expected rule default without a value, got %+v", computed)
	}
	port := fields["server.port"]
	if len(port.Types) != 1 || port.Types[0] != "int" {
		t.Fatalf("unexpected types for port: %+v", port)
	}
}
