package recordstore

import (
	"encoding/json"
	"testing"
	"time"
)

func mustRecord(t *testing.T, s string) Record {
	t.Helper()
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return r
}

func TestRecordAccessors(t *testing.T) {
	r := mustRecord(t, `{
		"id": "p1",
		"title": "Apartamento",
		"price": 8500,
		"isActive": true,
		"photos": ["a.jpg", "b.jpg"],
		"owner": "u1",
		"created": "2024-05-01 10:30:00.123Z",
		"bio": null
	}`)

	if r.ID() != "p1" {
		t.Errorf("id = %q", r.ID())
	}
	if r.String("title") != "Apartamento" {
		t.Errorf("title = %q", r.String("title"))
	}
	if r.Float("price") != 8500 {
		t.Errorf("price = %v", r.Float("price"))
	}
	if !r.Bool("isActive") {
		t.Error("isActive = false")
	}
	if got := r.Strings("photos"); len(got) != 2 {
		t.Errorf("photos = %v", got)
	}
	if got := r.Strings("owner"); len(got) != 1 || got[0] != "u1" {
		t.Errorf("owner = %v", got)
	}
	want := time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.UTC)
	if !r.Time("created").Equal(want) {
		t.Errorf("created = %v, want %v", r.Time("created"), want)
	}
	if r.Has("bio") {
		t.Error("null field should not be reported as present")
	}
	if r.String("missing") != "" || r.Float("title") != 0 {
		t.Error("missing or mistyped fields should return zero values")
	}
}

func TestRecordTimeRFC3339(t *testing.T) {
	r := mustRecord(t, `{"created": "2024-05-01T10:30:00Z"}`)
	if r.Time("created").IsZero() {
		t.Error("expected RFC3339 timestamps to parse")
	}
	if !mustRecord(t, `{"created": "yesterday"}`).Time("created").IsZero() {
		t.Error("expected zero time for malformed timestamp")
	}
}

func TestRecordExpand(t *testing.T) {
	r := mustRecord(t, `{
		"id": "f1",
		"places": "p1",
		"expand": {
			"places": {"id": "p1", "title": "Casa"},
			"tags": [{"id": "t1"}, {"id": "t2"}]
		}
	}`)

	place, ok := r.Expand("places")
	if !ok || place.String("title") != "Casa" {
		t.Errorf("expand places = %v, %v", place, ok)
	}
	if got := r.ExpandAll("tags"); len(got) != 2 {
		t.Errorf("tags = %v", got)
	}
	if _, ok := r.Expand("owner"); ok {
		t.Error("expected missing expand to report false")
	}
}

func TestNewRecord(t *testing.T) {
	r, err := NewRecord(map[string]interface{}{"id": "x", "size": 40})
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	if r.ID() != "x" || r.Float("size") != 40 {
		t.Errorf("record = %v", r)
	}
}
