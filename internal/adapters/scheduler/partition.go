package scheduler

import (
	"cmp"
	"slices"
)

// Shards splits items into n contiguous shards of near-equal size. The split
// depends only on len(items) and n, never on the pool size, which keeps task
// indexes and therefore task generators stable. Empty shards are omitted.
func Shards[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}
	out := make([][]T, 0, n)
	for i := 0; i < n; i++ {
		lo := i * len(items) / n
		hi := (i + 1) * len(items) / n
		if hi > lo {
			out = append(out, items[lo:hi])
		}
	}
	return out
}

// Group partitions items by key and returns the keys in ascending order with
// their items in input order.
func Group[T any, K cmp.Ordered](items []T, key func(T) K) ([]K, [][]T) {
	idx := make(map[K]int)
	var keys []K
	var groups [][]T
	for _, it := range items {
		k := key(it)
		i, ok := idx[k]
		if !ok {
			i = len(keys)
			idx[k] = i
			keys = append(keys, k)
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], it)
	}

	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(keys[a], keys[b]) })

	sortedKeys := make([]K, len(keys))
	sortedGroups := make([][]T, len(keys))
	for i, o := range order {
		sortedKeys[i] = keys[o]
		sortedGroups[i] = groups[o]
	}
	return sortedKeys, sortedGroups
}
