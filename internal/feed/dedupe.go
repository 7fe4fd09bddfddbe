package feed

import "time"

// Dedupe returns list with later duplicates (by key) removed, preserving
// first-seen order. Deduplication is idempotent: applying it twice yields
// the same result as applying it once.
func Dedupe[T any, K comparable](list []T, key func(T) K) []T {
	if len(list) == 0 {
		return list
	}

	seen := make(map[K]struct{}, len(list))
	out := make([]T, 0, len(list))
	for _, item := range list {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Merge returns existing concatenated with only those incoming elements
// whose key is absent from existing. Existing elements are never reordered
// or replaced.
func Merge[T any, K comparable](existing, incoming []T, key func(T) K) []T {
	if len(incoming) == 0 {
		return existing
	}

	seen := make(map[K]struct{}, len(existing))
	for _, item := range existing {
		seen[key(item)] = struct{}{}
	}

	out := make([]T, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	for _, item := range incoming {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Latest returns the element with the maximum date. The second return value
// is false for an empty list. Ties keep the earliest-seen element.
func Latest[T any](list []T, date func(T) time.Time) (T, bool) {
	var latest T
	if len(list) == 0 {
		return latest, false
	}

	latest = list[0]
	latestAt := date(list[0])
	for _, item := range list[1:] {
		if at := date(item); at.After(latestAt) {
			latest = item
			latestAt = at
		}
	}
	return latest, true
}
