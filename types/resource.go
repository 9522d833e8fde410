package types

// GlobalEndpoint is the sentinel endpoint for resource kinds that are not
// scoped to any single region. It is never a real endpoint id.
const GlobalEndpoint = "global"

// ResourceRecord represents one discovered cloud resource with its tags.
type ResourceRecord struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Endpoint string            `json:"endpoint"` // GlobalEndpoint for global kinds
	Name     string            `json:"name,omitempty"`
	Status   string            `json:"status,omitempty"`
	Tags     map[string]string `json:"tags"`
}

// Key returns the deduplication identity for a resource. Global resources
// are counted once system-wide under this key regardless of which endpoint
// reported them.
func (r ResourceRecord) Key() string {
	return r.Kind + "/" + r.ID
}

// IsGlobal reports whether the resource belongs to a global kind.
func (r ResourceRecord) IsGlobal() bool {
	return IsGlobalKind(r.Kind)
}

// HasTag reports whether the resource carries a non-empty value for key.
func (r ResourceRecord) HasTag(key string) bool {
	if r.Tags == nil {
		return false
	}
	return r.Tags[key] != ""
}

// ViolationRecord describes one tag-policy violation on one resource.
type ViolationRecord struct {
	ResourceID string `json:"resource_id"`
	Kind       string `json:"kind"`
	Endpoint   string `json:"endpoint"` // set during aggregation; GlobalEndpoint for global kinds
	TagKey     string `json:"tag_key"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
}

// Key returns the deduplication identity for a violation.
func (v ViolationRecord) Key() string {
	return v.Kind + "/" + v.ResourceID + "/" + v.TagKey
}
