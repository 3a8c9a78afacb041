package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"hqconsole/pkg/protocol"
)

func TestDecodeWithoutSchemaPassesThrough(t *testing.T) {
	r := NewRegistry()
	v, err := r.Decode(protocol.NewKey("a1", "flows", "stats"), json.RawMessage(`{"rate":3}`))
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["rate"] != float64(3) {
		t.Fatalf("unexpected value %#v", v)
	}
}

func TestBuiltinRejectsWrongShape(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}

	key := protocol.NewKey("a1", RouteAgents, TopicList)
	_, err = r.Decode(key, json.RawMessage(`{"id":"not-a-list"}`))
	if err == nil {
		t.Fatal("expected decode error for object payload on a list topic")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if decodeErr.Key != key {
		t.Fatalf("expected key %s, got %s", key, decodeErr.Key)
	}
}

func TestBuiltinAcceptsExtraFields(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}

	raw := json.RawMessage(`[{"id":"ds1","name":"syslog","state":"active","owner":"ops"}]`)
	v, err := r.Decode(protocol.NewKey("a1", RouteAgents, TopicList), raw)
	if err != nil {
		t.Fatalf("expected extra fields to be allowed: %v", err)
	}

	rows, err := As[[]Datasource](v)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ID != "ds1" || rows[0].State != "active" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestInfoSchemaAppliesToEveryRoute(t *testing.T) {
	r, err := Builtin()
	if err != nil {
		t.Fatal(err)
	}

	key := protocol.NewKey("a1", "ds-42", TopicInfo)
	if !r.Has(key) {
		t.Fatal("expected info schema for arbitrary route")
	}
	if _, err := r.Decode(key, json.RawMessage(`{"name":"syslog"}`)); err == nil {
		t.Fatal("expected error for missing location")
	}

	v, err := r.Decode(key, json.RawMessage(`{"name":"syslog","location":"dc1"}`))
	if err != nil {
		t.Fatal(err)
	}
	info, err := As[AgentInfo](v)
	if err != nil || info.Location != "dc1" {
		t.Fatalf("unexpected info %+v (%v)", info, err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Decode(protocol.NewKey("a1", "r", "t"), json.RawMessage(`{`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
