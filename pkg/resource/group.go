package resource

import "regexp"

// UnknownGroup is the key assigned to resources whose ID carries no
// resource group segment.
const UnknownGroup = "unknown"

var resourceGroupPattern = regexp.MustCompile(`(?i)/resourceGroups/([^/]+)/`)

// GroupKey extracts the resource group name from a fully qualified Azure
// resource ID of the form /subscriptions/{sub}/resourceGroups/{rg}/providers/...
func GroupKey(id string) string {
	m := resourceGroupPattern.FindStringSubmatch(id)
	if m == nil {
		return UnknownGroup
	}
	return m[1]
}

// Group is one resource group and the resources discovered in it.
type Group[T any] struct {
	Key   string `json:"resourceGroup"`
	Items []T    `json:"items"`
}

// GroupByResourceGroup partitions items by the resource group of the ID
// returned by idOf. Groups appear in first-seen order and items keep their
// input order within a group.
func GroupByResourceGroup[T any](items []T, idOf func(T) string) []Group[T] {
	index := make(map[string]int)
	groups := []Group[T]{}

	for _, item := range items {
		key := GroupKey(idOf(item))
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group[T]{Key: key})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}

// GroupMap flattens ordered groups into the keyed object shape the dashboard
// consumes. Iteration order is lost; callers needing it keep the slice.
func GroupMap[T any](groups []Group[T]) map[string][]T {
	m := make(map[string][]T, len(groups))
	for _, g := range groups {
		m[g.Key] = g.Items
	}
	return m
}
