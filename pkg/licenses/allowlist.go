package licenses

import "sort"

// AllowList is the set of package IDs eligible for removal
type AllowList struct {
	ids map[PackageID]struct{}
}

// NewAllowList builds an AllowList from raw configured IDs
func NewAllowList(ids []int) *AllowList {
	al := &AllowList{ids: make(map[PackageID]struct{}, len(ids))}
	for _, id := range ids {
		al.ids[PackageID(id)] = struct{}{}
	}
	return al
}

// Contains reports whether id may be removed
func (al *AllowList) Contains(id PackageID) bool {
	_, ok := al.ids[id]
	return ok
}

// Len returns the number of allowed IDs
func (al *AllowList) Len() int {
	return len(al.ids)
}

// IDs returns the allowed IDs in ascending order
func (al *AllowList) IDs() []PackageID {
	out := make([]PackageID, 0, len(al.ids))
	for id := range al.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Filter keeps the allowed IDs of candidates in their original order,
// dropping repeats.
func (al *AllowList) Filter(candidates []PackageID) []PackageID {
	seen := make(map[PackageID]struct{}, len(candidates))
	out := make([]PackageID, 0, len(candidates))
	for _, id := range candidates {
		if !al.Contains(id) {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
