// pkg/batch/batch.go

// Package batch groups an ordered stream of items into bounded batches.
package batch

import "iter"

// Batch is an ordered group of items and its zero-based position in the stream
type Batch[T any] struct {
	Index int
	Items []T
}

// Len returns the number of items in the batch
func (b Batch[T]) Len() int {
	return len(b.Items)
}

// KeepGrowing decides, before the next item is added, whether the
// in-progress batch should accept it (true) or be closed (false).
type KeepGrowing[T any] func(current Batch[T]) bool

// BatchItems lazily splits seq into consecutive batches. The predicate is only
// consulted for a non-empty in-progress batch, so every batch holds at least
// one item. The final batch may be shorter than the others.
func BatchItems[T any](seq iter.Seq[T], keepGrowing KeepGrowing[T]) iter.Seq[Batch[T]] {
	return func(yield func(Batch[T]) bool) {
		current := Batch[T]{}

		for item := range seq {
			if len(current.Items) > 0 && !keepGrowing(current) {
				if !yield(current) {
					return
				}
				current = Batch[T]{Index: current.Index + 1}
			}
			current.Items = append(current.Items, item)
		}

		if len(current.Items) > 0 {
			yield(current)
		}
	}
}

// MaxItems closes a batch once it holds size items. A size of zero or less
// never closes, which puts the whole stream in a single batch.
func MaxItems[T any](size int) KeepGrowing[T] {
	return func(current Batch[T]) bool {
		if size <= 0 {
			return true
		}
		return len(current.Items) < size
	}
}

// Collect drains seq into a slice of batches
func Collect[T any](seq iter.Seq[Batch[T]]) []Batch[T] {
	var out []Batch[T]
	for b := range seq {
		out = append(out, b)
	}
	return out
}
