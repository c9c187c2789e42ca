// Package category resolves which retrieval and generation strategy applies
// to a request, based on the configured category sets.
package category

// Route identifies the generation branch for a request.
type Route int

const (
	// RouteNone means the label matched no configured set; no generation
	// runs and the final answer is empty.
	RouteNone Route = iota
	// RouteAssignment uses two-stage draft-then-refine generation.
	RouteAssignment
	// RouteContent uses single-stage generation with the content index.
	RouteContent
	// RouteLogistics uses single-stage generation with the logistics index.
	RouteLogistics
	// RouteWorksheet uses single-stage generation consuming both hybrid and
	// manual retrieval results.
	RouteWorksheet
)

// String returns the route name for logging.
func (r Route) String() string {
	switch r {
	case RouteAssignment:
		return "assignment"
	case RouteContent:
		return "content"
	case RouteLogistics:
		return "logistics"
	case RouteWorksheet:
		return "worksheet"
	default:
		return "none"
	}
}

// Set is a configured list of category labels. Membership is exact string
// match; a label may legally belong to several sets.
type Set []string

// Contains reports whether the label is a member of the set.
func (s Set) Contains(label string) bool {
	for _, member := range s {
		if member == label {
			return true
		}
	}
	return false
}

// Sets holds the four configured category sets.
type Sets struct {
	Assignment Set
	Content    Set
	Logistics  Set
	Worksheet  Set
}

// HybridPlan describes one hybrid retrieval call: which index, how many
// results, and whether the collaborator applies semantic reranking.
type HybridPlan struct {
	Index             string
	TopK              int
	SemanticReranking bool
}

// IndexParams carries the configured name and top-k of one content index.
type IndexParams struct {
	Name string
	TopK int
}

// Indexes holds the per-category index parameters.
type Indexes struct {
	Content   IndexParams
	Logistics IndexParams
	Worksheet IndexParams
}

// Decision is the routing outcome for one request. Hybrid is nil when the
// category does not use hybrid retrieval. Manual is evaluated independently
// of the route: it runs whenever the label is in the assignment or worksheet
// set, so it can accompany either generation branch.
type Decision struct {
	Label  string
	Route  Route
	Hybrid *HybridPlan
	Manual bool
}

// Router applies the category decision table.
type Router struct {
	sets    Sets
	indexes Indexes
}

// NewRouter creates a router over the configured sets and indexes.
func NewRouter(sets Sets, indexes Indexes) *Router {
	return &Router{sets: sets, indexes: indexes}
}

// Resolve maps a category label to its routing decision. When a label
// belongs to several sets the first match wins, checked in the fixed order
// assignment, content, logistics, worksheet.
func (r *Router) Resolve(label string) Decision {
	d := Decision{
		Label:  label,
		Route:  RouteNone,
		Manual: r.sets.Assignment.Contains(label) || r.sets.Worksheet.Contains(label),
	}

	switch {
	case r.sets.Assignment.Contains(label):
		d.Route = RouteAssignment
	case r.sets.Content.Contains(label):
		d.Route = RouteContent
		d.Hybrid = &HybridPlan{
			Index:             r.indexes.Content.Name,
			TopK:              r.indexes.Content.TopK,
			SemanticReranking: true,
		}
	case r.sets.Logistics.Contains(label):
		d.Route = RouteLogistics
		d.Hybrid = &HybridPlan{
			Index:             r.indexes.Logistics.Name,
			TopK:              r.indexes.Logistics.TopK,
			SemanticReranking: false,
		}
	case r.sets.Worksheet.Contains(label):
		d.Route = RouteWorksheet
		d.Hybrid = &HybridPlan{
			Index:             r.indexes.Worksheet.Name,
			TopK:              r.indexes.Worksheet.TopK,
			SemanticReranking: true,
		}
	}

	return d
}
