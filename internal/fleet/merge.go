package fleet

import (
	"slices"
	"strconv"
	"strings"
)

// Identified is any record with a stable identity.
type Identified interface {
	GetID() string
}

// MergeAndSort returns the union of oldSet and newSet keyed by identity.
// Entries of newSet replace entries of oldSet with the same id. The result is
// stably sorted with CompareIDs. Neither input is modified.
func MergeAndSort[T Identified](oldSet, newSet []T) []T {
	index := make(map[string]int, len(oldSet)+len(newSet))
	merged := make([]T, 0, len(oldSet)+len(newSet))

	for _, set := range [][]T{oldSet, newSet} {
		for _, item := range set {
			id := item.GetID()
			if i, ok := index[id]; ok {
				merged[i] = item
				continue
			}
			index[id] = len(merged)
			merged = append(merged, item)
		}
	}

	slices.SortStableFunc(merged, func(a, b T) int {
		return CompareIDs(a.GetID(), b.GetID())
	})
	return merged
}

// CompareIDs orders two identities. When both parse as numbers they are
// compared numerically; when neither does they are compared
// lexicographically. A numeric and a non-numeric id compare as equal so a
// stable sort keeps their relative order.
func CompareIDs(a, b string) int {
	na, aNum := parseNumericID(a)
	nb, bNum := parseNumericID(b)

	switch {
	case aNum && bNum:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	case !aNum && !bNum:
		return strings.Compare(a, b)
	default:
		return 0
	}
}

func parseNumericID(id string) (float64, bool) {
	s := strings.TrimSpace(id)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Paginate returns the window [(page-1)*pageSize, page*pageSize) of sorted.
// Out-of-range pages and non-positive arguments yield an empty slice.
func Paginate[T any](sorted []T, pageSize, page int) []T {
	if pageSize < 1 || page < 1 || len(sorted) == 0 {
		return []T{}
	}
	if page-1 > (len(sorted)-1)/pageSize {
		return []T{}
	}
	start := (page - 1) * pageSize
	end := start + min(pageSize, len(sorted)-start)
	return sorted[start:end]
}

// PageCount returns the number of pages needed to show total items.
func PageCount(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 0
	}
	return (total-1)/pageSize + 1
}
