package aws

// tagMap flattens a provider tag list into a map using the per-service
// key/value accessor. Empty keys are dropped.
func tagMap[T any](tags []T, kv func(T) (string, string)) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		k, v := kv(t)
		if k != "" {
			m[k] = v
		}
	}
	return m
}

// copyTags clones a tag map the service already returns flat.
func copyTags(tags map[string]string) map[string]string {
	m := make(map[string]string, len(tags))
	for k, v := range tags {
		m[k] = v
	}
	return m
}
