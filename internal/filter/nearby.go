package filter

// NearbyOptions are the structured refinements for a proximity search.
// Zero values are ignored.
type NearbyOptions struct {
	Category string
	Status   string
	MinSize  float64
	MaxSize  float64
	OwnerID  string
}

// Nearby renders the structured refinements as an AND expression.
func Nearby(opts NearbyOptions) string {
	var parts []string
	if opts.Category != "" {
		parts = append(parts, Eq("property_type", opts.Category))
	}
	if opts.Status != "" {
		parts = append(parts, Eq("property_status", opts.Status))
	}
	if opts.MinSize > 0 {
		parts = append(parts, Ge("size", opts.MinSize))
	}
	if opts.MaxSize > 0 {
		parts = append(parts, Le("size", opts.MaxSize))
	}
	if opts.OwnerID != "" {
		parts = append(parts, Eq("owner", opts.OwnerID))
	}
	return And(parts...)
}
