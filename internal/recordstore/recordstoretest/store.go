// Package recordstoretest provides an in-memory recordstore.Store for tests.
//
// It understands the subset of the filter language the services send for
// exact lookups: `field = "value"` clauses joined by `&&`. Any other filter
// is rejected so tests fail loudly instead of silently matching everything.
package recordstoretest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tuespacio/tuespacio/internal/recordstore"
)

var clausePattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*"((?:[^"\\]|\\.)*)"\s*$`)

// Store is an in-memory record store.
type Store struct {
	// Relations maps relation fields to the collection they point at, used by expand.
	Relations map[string]string
	// Unique lists field sets that must be unique per collection.
	Unique map[string][]string
	// Err, when set, is returned by every operation.
	Err error

	mu      sync.Mutex
	records map[string][]recordstore.Record
	calls   []string
	seq     int
	clock   time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		Relations: map[string]string{},
		Unique:    map[string][]string{},
		records:   map[string][]recordstore.Record{},
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Calls returns the operations performed so far, e.g. "list favorites".
func (s *Store) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// ResetCalls clears the call log.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[collection])
}

// Seed inserts a record without going through validation. Records are
// stamped with increasing created times in insertion order.
func (s *Store) Seed(collection string, data map[string]interface{}) recordstore.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.insert(collection, data)
	if err != nil {
		panic(err)
	}
	return rec
}

// List implements recordstore.Store.
func (s *Store) List(ctx context.Context, collection string, page, perPage int, opts recordstore.ListOptions) (*recordstore.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "list "+collection)
	if s.Err != nil {
		return nil, s.Err
	}
	if page <= 0 {
		page = recordstore.DefaultPage
	}
	if perPage <= 0 {
		perPage = recordstore.DefaultPerPage
	}

	match, err := parseFilter(opts.Filter)
	if err != nil {
		return nil, &recordstore.ResponseError{Status: http.StatusBadRequest, Message: err.Error()}
	}

	var matched []recordstore.Record
	for _, rec := range s.records[collection] {
		if match(rec) {
			matched = append(matched, rec)
		}
	}
	if err := sortRecords(matched, opts.Sort); err != nil {
		return nil, &recordstore.ResponseError{Status: http.StatusBadRequest, Message: err.Error()}
	}

	res := &recordstore.ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: len(matched),
		TotalPages: (len(matched) + perPage - 1) / perPage,
		Items:      []recordstore.Record{},
	}
	start := (page - 1) * perPage
	for i := start; i < len(matched) && i < start+perPage; i++ {
		res.Items = append(res.Items, s.present(matched[i], opts.Expand, opts.Fields))
	}
	return res, nil
}

// GetOne implements recordstore.Store.
func (s *Store) GetOne(ctx context.Context, collection, id, expand string) (recordstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "get "+collection)
	if s.Err != nil {
		return nil, s.Err
	}
	i := s.indexOf(collection, id)
	if i < 0 {
		return nil, notFound()
	}
	return s.present(s.records[collection][i], expand, ""), nil
}

// Create implements recordstore.Store.
func (s *Store) Create(ctx context.Context, collection string, data map[string]interface{}) (recordstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "create "+collection)
	if s.Err != nil {
		return nil, s.Err
	}
	candidate, err := recordstore.NewRecord(data)
	if err != nil {
		return nil, err
	}
	if field, dup := s.violatesUnique(collection, candidate); dup {
		return nil, &recordstore.ResponseError{
			Status:  http.StatusBadRequest,
			Message: "Failed to create record.",
			Data: map[string]recordstore.FieldError{
				field: {Code: "validation_not_unique", Message: "Value must be unique."},
			},
		}
	}
	return s.insert(collection, data)
}

// Update implements recordstore.Store.
func (s *Store) Update(ctx context.Context, collection, id string, data map[string]interface{}) (recordstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "update "+collection)
	if s.Err != nil {
		return nil, s.Err
	}
	i := s.indexOf(collection, id)
	if i < 0 {
		return nil, notFound()
	}
	patch, err := recordstore.NewRecord(data)
	if err != nil {
		return nil, err
	}
	rec := copyRecord(s.records[collection][i])
	for k, v := range patch {
		rec[k] = v
	}
	rec["updated"] = s.stamp()
	s.records[collection][i] = rec
	return copyRecord(rec), nil
}

// Delete implements recordstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete "+collection)
	if s.Err != nil {
		return s.Err
	}
	i := s.indexOf(collection, id)
	if i < 0 {
		return notFound()
	}
	recs := s.records[collection]
	s.records[collection] = append(recs[:i:i], recs[i+1:]...)
	return nil
}

// Health implements recordstore.Store.
func (s *Store) Health(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "health")
	return s.Err
}

func (s *Store) insert(collection string, data map[string]interface{}) (recordstore.Record, error) {
	rec, err := recordstore.NewRecord(data)
	if err != nil {
		return nil, err
	}
	if rec.ID() == "" {
		s.seq++
		id, _ := json.Marshal(fmt.Sprintf("%s%06d", strings.ToLower(collection[:1]), s.seq))
		rec["id"] = id
	}
	ts := s.stamp()
	if !rec.Has("created") {
		rec["created"] = ts
	}
	rec["updated"] = ts
	s.records[collection] = append(s.records[collection], rec)
	return copyRecord(rec), nil
}

// stamp advances the fake clock by one second and returns it encoded.
func (s *Store) stamp() json.RawMessage {
	s.clock = s.clock.Add(time.Second)
	raw, _ := json.Marshal(s.clock.Format(recordstore.TimeLayout))
	return raw
}

func (s *Store) indexOf(collection, id string) int {
	for i, rec := range s.records[collection] {
		if rec.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Store) violatesUnique(collection string, candidate recordstore.Record) (string, bool) {
	fields := s.Unique[collection]
	if len(fields) == 0 {
		return "", false
	}
	for _, rec := range s.records[collection] {
		same := true
		for _, f := range fields {
			if string(rec[f]) != string(candidate[f]) {
				same = false
				break
			}
		}
		if same {
			return fields[len(fields)-1], true
		}
	}
	return "", false
}

// present copies a record, applying expand and field projection.
func (s *Store) present(rec recordstore.Record, expand, fields string) recordstore.Record {
	out := copyRecord(rec)
	if expand != "" {
		expanded := map[string]recordstore.Record{}
		for _, field := range strings.Split(expand, ",") {
			field = strings.TrimSpace(field)
			target, ok := s.Relations[field]
			if !ok {
				continue
			}
			if i := s.indexOf(target, rec.String(field)); i >= 0 {
				expanded[field] = copyRecord(s.records[target][i])
			}
		}
		if len(expanded) > 0 {
			raw, _ := json.Marshal(expanded)
			out["expand"] = raw
		}
	}
	if fields != "" {
		projected := recordstore.Record{}
		for _, f := range strings.Split(fields, ",") {
			f = strings.TrimSpace(f)
			if v, ok := out[f]; ok {
				projected[f] = v
			}
		}
		return projected
	}
	return out
}

func parseFilter(filter string) (func(recordstore.Record) bool, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return func(recordstore.Record) bool { return true }, nil
	}

	type clause struct{ field, value string }
	var clauses []clause
	for _, part := range strings.Split(filter, "&&") {
		m := clausePattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("unsupported filter clause %q", strings.TrimSpace(part))
		}
		var value string
		if err := json.Unmarshal([]byte(`"`+m[2]+`"`), &value); err != nil {
			return nil, fmt.Errorf("invalid literal in %q: %w", part, err)
		}
		clauses = append(clauses, clause{field: m[1], value: value})
	}

	return func(rec recordstore.Record) bool {
		for _, c := range clauses {
			if rec.String(c.field) != c.value {
				return false
			}
		}
		return true
	}, nil
}

func sortRecords(recs []recordstore.Record, order string) error {
	switch order {
	case "":
		return nil
	case "created", "+created":
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].Time("created").Before(recs[j].Time("created"))
		})
	case "-created":
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].Time("created").After(recs[j].Time("created"))
		})
	default:
		return fmt.Errorf("unsupported sort %q", order)
	}
	return nil
}

func copyRecord(rec recordstore.Record) recordstore.Record {
	out := make(recordstore.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func notFound() error {
	return &recordstore.ResponseError{
		Status:  http.StatusNotFound,
		Message: "The requested resource wasn't found.",
	}
}
