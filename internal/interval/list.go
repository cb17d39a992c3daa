package interval

import "sort"

// Item is the element constraint for List: a value tagged with the bit range
// it occupies.  WithRange changes the claimed range without touching the
// value's bits — narrowing discards coverage, widening adds unspecified
// bits.  Union folds in an item whose range is disjoint at bit granularity,
// widening to the convex hull of the two ranges.
type Item[T any] interface {
	Range() Range
	WithRange(Range) T
	Union(T) T
}

// List keeps items sorted by range start and closed under "insert with merge
// on overlap".  Later insertions win: bits of an inserted item replace any
// previously covered bits in its range.
type List[T Item[T]] struct {
	items []T
}

// Len returns the number of intervals.
func (l *List[T]) Len() int { return len(l.items) }

// At returns the i-th interval in start order.
func (l *List[T]) At(i int) T { return l.items[i] }

// Insert adds an item.  Existing intervals overlapping its range are trimmed
// down to the parts outside that range and then folded into the new item, so
// the inserted bits overwrite what was there before.
func (l *List[T]) Insert(item T) {
	merged := item
	target := item.Range()
	kept := l.items[:0]
	for _, it := range l.items {
		r := it.Range()
		if !r.Intersects(target) {
			kept = append(kept, it)
			continue
		}
		if r.First() < target.First() {
			merged = merged.Union(it.WithRange(Make(r.First(), target.First())))
		}
		if r.Last() > target.Last() {
			merged = merged.Union(it.WithRange(Make(target.Last(), r.Last())))
		}
	}
	l.items = append(kept, merged)
	sort.Slice(l.items, func(i, j int) bool {
		return l.items[i].Range().First() < l.items[j].Range().First()
	})
}

// AlignBoundaries forces every interval to begin and end on a multiple of
// unit bits.  Intervals whose rounded ranges would share a unit are first
// folded together while their bit ranges are still disjoint, which is what
// pastes bitfields sharing a storage unit into a single interval.
func (l *List[T]) AlignBoundaries(unit int) {
	if unit <= 1 || len(l.items) == 0 {
		return
	}

	// Fold neighbours that land in the same unit once rounded.
	folded := l.items[:0]
	for _, it := range l.items {
		n := len(folded)
		if n > 0 {
			prev := folded[n-1]
			prevEnd := (prev.Range().Last() + unit - 1) / unit
			curStart := it.Range().First() / unit
			if curStart < prevEnd {
				folded[n-1] = prev.Union(it)
				continue
			}
		}
		folded = append(folded, it)
	}

	// Now widening cannot make neighbours collide.
	for i, it := range folded {
		r := it.Range()
		if r.Empty() {
			continue
		}
		first := (r.First() / unit) * unit
		last := ((r.Last() + unit - 1) / unit) * unit
		folded[i] = it.WithRange(Make(first, last))
	}
	l.items = folded
}
