package generic

import "cmp"

// =============================================================================
// RANKING - Best row per group under an ordered comparator
// =============================================================================

// Comparator orders two rows: negative if a ranks ahead of b, positive if
// b ranks ahead of a, zero if they tie.
type Comparator[T any] func(a, b T) int

// Then chains comparators; later ones only break ties left by earlier ones.
func Then[T any](cmps ...Comparator[T]) Comparator[T] {
	return func(a, b T) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// Ascending ranks smaller values first.
func Ascending[T any, V cmp.Ordered](field func(T) V) Comparator[T] {
	return func(a, b T) int { return cmp.Compare(field(a), field(b)) }
}

// NewestFirst ranks later dates first.
func NewestFirst[T any](field func(T) Date) Comparator[T] {
	return func(a, b T) int { return field(b).Compare(field(a)) }
}

// OpenEndedFirst ranks absent dates as the maximum possible date, then
// later dates first. An open-ended row beats any fixed end date.
func OpenEndedFirst[T any](field func(T) NullDate) Comparator[T] {
	return func(a, b T) int {
		x, y := field(a), field(b)
		switch {
		case !x.Valid && !y.Valid:
			return 0
		case !x.Valid:
			return -1
		case !y.Valid:
			return 1
		}
		return y.Date.Compare(x.Date)
	}
}

// Ranked holds one winner per group plus the order in which groups were
// first seen in the input.
type Ranked[K comparable, T any] struct {
	Keys []K
	Best map[K]T
}

// Get returns the winner for key, if the group exists.
func (r *Ranked[K, T]) Get(key K) (T, bool) {
	v, ok := r.Best[key]
	return v, ok
}

// Rows returns the winners in first-seen group order.
func (r *Ranked[K, T]) Rows() []T {
	out := make([]T, 0, len(r.Keys))
	for _, k := range r.Keys {
		out = append(out, r.Best[k])
	}
	return out
}

// BestPerGroup returns exactly one row per group: the one that sorts first
// under cmp. A row replaces the current winner only when it ranks strictly
// ahead, so full ties keep the earliest row in input order.
func BestPerGroup[T any, K comparable](rows []T, key func(T) K, cmp Comparator[T]) *Ranked[K, T] {
	r := &Ranked[K, T]{Best: make(map[K]T)}
	for _, row := range rows {
		k := key(row)
		cur, ok := r.Best[k]
		if !ok {
			r.Keys = append(r.Keys, k)
			r.Best[k] = row
			continue
		}
		if cmp(row, cur) < 0 {
			r.Best[k] = row
		}
	}
	return r
}
