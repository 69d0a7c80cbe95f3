package pipeline

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestExtractTimestamp(t *testing.T) {
	ts, err := ExtractTimestamp("demographic_data_20260124_153045.json")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := time.Date(2026, 1, 24, 15, 30, 45, 0, time.Local)
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts)
	}
}

func TestExtractTimestamp_Malformed(t *testing.T) {
	cases := []string{
		"invalid.json",
		"demographic_data_2026014_153045.json",
		"demographic_data_20260124.json",
		"other_data_20260124_153045.json",
	}
	for _, name := range cases {
		if _, err := ExtractTimestamp(name); !errors.Is(err, ErrMalformedFilename) {
			t.Errorf("%s: expected ErrMalformedFilename, got %v", name, err)
		}
	}
}

func TestSelectLatest(t *testing.T) {
	latest, ok := SelectLatest([]string{
		"/data/demographic_data_20260124_120000.json",
		"/data/demographic_data_20260124_150000.json",
		"/data/demographic_data_20260123_235959.json",
	})
	if !ok {
		t.Fatal("expected a selection")
	}
	if latest != "/data/demographic_data_20260124_150000.json" {
		t.Errorf("expected the 15:00:00 file, got %s", latest)
	}
}

func TestSelectLatest_Empty(t *testing.T) {
	if _, ok := SelectLatest(nil); ok {
		t.Error("expected no selection for empty input")
	}
}

func TestSelectLatest_TieIsDeterministic(t *testing.T) {
	a := "/a/demographic_data_20260124_120000.json"
	b := "/b/demographic_data_20260124_120000.json"

	first, _ := SelectLatest([]string{a, b})
	second, _ := SelectLatest([]string{b, a})
	if first != second {
		t.Errorf("tiebreak depends on input order: %s vs %s", first, second)
	}
	if first != b {
		t.Errorf("expected lexicographically larger path, got %s", first)
	}
}

func toElements(t *testing.T, data string) []json.RawMessage {
	t.Helper()
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(data), &elements); err != nil {
		t.Fatalf("parse test data: %v", err)
	}
	return elements
}

func TestAggregate(t *testing.T) {
	elements := toElements(t, `[
		{"attributes": {"STATE_NAME": "California", "POPULATION": 1000000}},
		{"attributes": {"STATE_NAME": "California", "POPULATION": 2000000}},
		{"attributes": {"STATE_NAME": "Texas", "POPULATION": 500000}}
	]`)

	totals := Aggregate(elements)
	if len(totals) != 2 {
		t.Fatalf("expected 2 states, got %d", len(totals))
	}
	if totals["California"] != 3_000_000 {
		t.Errorf("California: expected 3000000, got %d", totals["California"])
	}
	if totals["Texas"] != 500_000 {
		t.Errorf("Texas: expected 500000, got %d", totals["Texas"])
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	forward := toElements(t, `[
		{"attributes": {"STATE_NAME": "California", "POPULATION": 1}},
		{"attributes": {"STATE_NAME": "Texas", "POPULATION": 2}},
		{"attributes": {"STATE_NAME": "California", "POPULATION": 3}}
	]`)
	reversed := toElements(t, `[
		{"attributes": {"STATE_NAME": "California", "POPULATION": 3}},
		{"attributes": {"STATE_NAME": "Texas", "POPULATION": 2}},
		{"attributes": {"STATE_NAME": "California", "POPULATION": 1}}
	]`)

	a, b := Aggregate(forward), Aggregate(reversed)
	if len(a) != len(b) {
		t.Fatalf("different state counts: %d vs %d", len(a), len(b))
	}
	for state, total := range a {
		if b[state] != total {
			t.Errorf("%s: %d vs %d", state, total, b[state])
		}
	}
}

func TestAggregate_MalformedElements(t *testing.T) {
	elements := toElements(t, `[
		{"attributes": {"STATE_NAME": "Nevada", "POPULATION": 10}},
		{"attributes": {"POPULATION": 999}},
		{"attributes": {"STATE_NAME": "Nevada", "POPULATION": "not-a-number"}},
		{"attributes": {"STATE_NAME": "Nevada"}},
		"just a string",
		{"no_attributes": true}
	]`)

	totals := Aggregate(elements)
	if len(totals) != 1 {
		t.Fatalf("expected only Nevada, got %v", totals)
	}
	// Missing and non-numeric populations contribute zero, never an error.
	if totals["Nevada"] != 10 {
		t.Errorf("expected 10, got %d", totals["Nevada"])
	}
}
