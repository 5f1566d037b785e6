// Package recordstore is a client for the hosted record store that owns all
// marketplace data: listings, users, favorites and contracts.
//
// The store speaks the PocketBase collection API. Services depend on the
// Store interface; Client is the HTTP implementation.
package recordstore

import "context"

// Default paging values applied when a caller passes zero.
const (
	DefaultPage    = 1
	DefaultPerPage = 30
)

// ListOptions are the query parameters accepted by a list request.
// Filter and Sort use the store's own expression syntax.
type ListOptions struct {
	Filter string
	Sort   string
	Expand string
	Fields string
}

// ListResult is one page of records.
type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

// EmptyPage returns a page with no items, used by callers that fail open.
func EmptyPage(perPage int) *ListResult {
	return &ListResult{Page: 1, PerPage: perPage, Items: []Record{}}
}

// Store is the generic record-store surface every service depends on.
type Store interface {
	List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error)
	GetOne(ctx context.Context, collection, id, expand string) (Record, error)
	Create(ctx context.Context, collection string, data map[string]interface{}) (Record, error)
	Update(ctx context.Context, collection, id string, data map[string]interface{}) (Record, error)
	Delete(ctx context.Context, collection, id string) error
	Health(ctx context.Context) error
}

// Collection binds a Store to a single collection name.
type Collection struct {
	store Store
	name  string
}

// NewCollection returns an accessor for the named collection.
func NewCollection(s Store, name string) *Collection {
	return &Collection{store: s, name: name}
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// List returns one page of records.
func (c *Collection) List(ctx context.Context, page, perPage int, opts ListOptions) (*ListResult, error) {
	return c.store.List(ctx, c.name, page, perPage, opts)
}

// First returns the first record matching filter, or nil when nothing matches.
func (c *Collection) First(ctx context.Context, filter string) (Record, error) {
	res, err := c.store.List(ctx, c.name, 1, 1, ListOptions{Filter: filter})
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, nil
	}
	return res.Items[0], nil
}

// GetOne returns a single record by id.
func (c *Collection) GetOne(ctx context.Context, id, expand string) (Record, error) {
	return c.store.GetOne(ctx, c.name, id, expand)
}

// Create inserts a record and returns it as stored.
func (c *Collection) Create(ctx context.Context, data map[string]interface{}) (Record, error) {
	return c.store.Create(ctx, c.name, data)
}

// Update patches a record and returns it as stored.
func (c *Collection) Update(ctx context.Context, id string, data map[string]interface{}) (Record, error) {
	return c.store.Update(ctx, c.name, id, data)
}

// Delete removes a record by id.
func (c *Collection) Delete(ctx context.Context, id string) error {
	return c.store.Delete(ctx, c.name, id)
}
