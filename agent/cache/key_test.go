package cache

import (
	"strings"
	"testing"
)

func TestKeyOrderIndependent(t *testing.T) {
	t.Parallel()

	a, err := Key("listar_comercios", map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	b, err := Key("listar_comercios", map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "listar_comercios:") {
		t.Fatalf("key missing operation prefix: %s", a)
	}
}

func TestKeyNormalizesTypes(t *testing.T) {
	t.Parallel()

	type params struct {
		Limit int    `json:"limite"`
		Tag   string `json:"tag"`
	}

	fromStruct, err := Key("buscar_por_categoria", params{Limit: 10, Tag: "flores"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	fromMap, err := Key("buscar_por_categoria", map[string]any{"tag": "flores", "limite": 10.0})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if fromStruct != fromMap {
		t.Fatalf("struct and map keys differ: %s vs %s", fromStruct, fromMap)
	}
}

func TestKeyDistinguishesOperationAndValues(t *testing.T) {
	t.Parallel()

	params := map[string]any{"limite": 10}
	k1, _ := Key("comercios_verificados", params)
	k2, _ := Key("listar_comercios", params)
	k3, _ := Key("comercios_verificados", map[string]any{"limite": 11})
	if k1 == k2 || k1 == k3 {
		t.Fatalf("expected distinct keys: %s %s %s", k1, k2, k3)
	}

	if _, err := Key("  ", params); err == nil {
		t.Fatal("expected error for empty operation")
	}
}
