package audio

import "math"

// UniformIndices picks at most budget indices spread evenly over [0, count).
// Index i of the result is round(i*(count-1)/(budget-1)), so the first and
// last positions are always kept and the result is strictly increasing.
// When count fits the budget, or budget is not positive, every index is
// returned.
func UniformIndices(count, budget int) []int {
	if count <= 0 {
		return nil
	}
	if budget <= 0 || count <= budget {
		idx := make([]int, count)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	if budget == 1 {
		return []int{0}
	}

	idx := make([]int, budget)
	span := float64(count - 1)
	for i := range idx {
		idx[i] = int(math.Round(float64(i) * span / float64(budget-1)))
	}
	return idx
}

// UniformSample returns the items selected by UniformIndices, in order.
func UniformSample[T any](items []T, budget int) []T {
	idx := UniformIndices(len(items), budget)
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
