package merge

import (
	"maps"
	"slices"
	"strconv"

	"github.com/NERVsystems/osmdelta/pkg/entity"
)

// DiffTags merges two tag maps relative to their common before value. A key
// counts as added on a side when it is new or its value changed, so a
// removal on one side collides with a modification on the other.
func DiffTags(before, left, right map[string]string) (map[string]string, error) {
	removedLeft, addedLeft := tagChanges(before, left)
	removedRight, addedRight := tagChanges(before, right)

	removed := make(map[string]struct{}, len(removedLeft)+len(removedRight))
	for _, k := range removedLeft {
		removed[k] = struct{}{}
	}
	for _, k := range removedRight {
		removed[k] = struct{}{}
	}

	var collisions []string
	for k := range addedLeft {
		if _, ok := removed[k]; ok {
			collisions = append(collisions, k)
		}
	}
	for k := range addedRight {
		if _, ok := removed[k]; ok && !slices.Contains(collisions, k) {
			collisions = append(collisions, k)
		}
	}
	if len(collisions) > 0 {
		slices.Sort(collisions)
		return nil, &ConflictError{Kind: ConflictAddRemove, Keys: collisions}
	}

	for k, lv := range addedLeft {
		if rv, ok := addedRight[k]; ok && rv != lv {
			collisions = append(collisions, k)
		}
	}
	if len(collisions) > 0 {
		slices.Sort(collisions)
		return nil, &ConflictError{Kind: ConflictAddAdd, Keys: collisions}
	}

	out := make(map[string]string, len(before)+len(addedLeft)+len(addedRight))
	for k, v := range before {
		if _, gone := removed[k]; !gone {
			out[k] = v
		}
	}
	maps.Copy(out, addedLeft)
	maps.Copy(out, addedRight)
	return out, nil
}

func tagChanges(before, after map[string]string) (removed []string, added map[string]string) {
	added = make(map[string]string)
	for k := range before {
		if _, ok := after[k]; !ok {
			removed = append(removed, k)
		}
	}
	for k, v := range after {
		if bv, ok := before[k]; !ok || bv != v {
			added[k] = v
		}
	}
	return removed, added
}

// TagDifferences lists the keys whose values differ between two tag maps,
// including keys present on one side only
func TagDifferences(left, right map[string]string) []string {
	var keys []string
	for k, lv := range left {
		if rv, ok := right[k]; !ok || rv != lv {
			keys = append(keys, k)
		}
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// DiffIDs merges two identifier sets relative to their common before value
func DiffIDs(before, left, right entity.IDSet) (entity.IDSet, error) {
	removed := before.Minus(left).Union(before.Minus(right))
	added := left.Minus(before).Union(right.Minus(before))

	if collisions := removed.Intersect(added); collisions.Len() > 0 {
		return nil, &ConflictError{Kind: ConflictAddRemove, Keys: idKeys(collisions)}
	}
	return before.Minus(removed).Union(added), nil
}

// UnionIDs is the loose merge of identifier sets. It never fails.
func UnionIDs(left, right entity.IDSet) (entity.IDSet, error) {
	return left.Union(right), nil
}

// IDDifferences lists the identifiers in exactly one of the two sets
func IDDifferences(left, right entity.IDSet) []string {
	return idKeys(left.Minus(right).Union(right.Minus(left)))
}

func idKeys(ids entity.IDSet) []string {
	sorted := ids.Sorted()
	keys := make([]string, len(sorted))
	for i, id := range sorted {
		keys[i] = strconv.FormatInt(id, 10)
	}
	return keys
}
