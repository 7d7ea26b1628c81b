package types

import (
	"encoding/json"
	"testing"
)

func TestStringListValueAndScan(t *testing.T) {
	v, err := StringList{"Corolla 2010", "Yaris"}.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != `["Corolla 2010","Yaris"]` {
		t.Fatalf("unexpected value %v", v)
	}

	var got StringList
	if err := got.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}

	if err := got.Scan(nil); err != nil || len(got) != 0 {
		t.Fatalf("expected empty list from nil, got %v err %v", got, err)
	}

	if err := got.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}

	if v, _ := StringList(nil).Value(); v != "[]" {
		t.Fatalf("nil list should encode as [], got %v", v)
	}
}

func TestJSONDocumentRoundTrip(t *testing.T) {
	doc := JSONDocument(`{"bore":"82mm"}`)
	v, err := doc.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v != `{"bore":"82mm"}` {
		t.Fatalf("unexpected value %v", v)
	}

	var scanned JSONDocument
	if err := scanned.Scan([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, err := json.Marshal(struct {
		Doc JSONDocument `json:"doc"`
	}{scanned})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"doc":{"a":1}}` {
		t.Fatalf("unexpected json %s", out)
	}

	if _, err := JSONDocument(`{broken`).Value(); err == nil {
		t.Fatal("expected invalid json error")
	}
	empty, err := JSONDocument(nil).Value()
	if err != nil || empty != nil {
		t.Fatalf("expected nil value, got %v %v", empty, err)
	}
}
