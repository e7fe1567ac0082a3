package estimator

import "slices"

// milestones are always recorded when the run is long enough to reach them.
var milestones = []int{10, 50, 100, 250, 500, 750, 1000}

// firstInterval is the smallest sample count eligible for the regular cadence.
const firstInterval = 10

// Intervals is the ascending, deduplicated set of sample counts at which a
// convergence snapshot is recorded.
type Intervals struct {
	counts []int
}

// SelectIntervals returns the snapshot schedule for a run of n samples:
// the fixed milestones up to n, every multiple of max(1, n/100) from 10 to n,
// and n itself. Runs shorter than 10 samples record only n.
func SelectIntervals(n int) Intervals {
	if n <= 0 {
		return Intervals{}
	}
	if n < firstInterval {
		return Intervals{counts: []int{n}}
	}

	step := max(1, n/100)
	counts := make([]int, 0, n/step+len(milestones)+1)

	for _, m := range milestones {
		if m <= n {
			counts = append(counts, m)
		}
	}

	// First multiple of step at or above firstInterval.
	start := ((firstInterval + step - 1) / step) * step
	for i := start; i <= n; i += step {
		counts = append(counts, i)
	}
	counts = append(counts, n)

	slices.Sort(counts)
	counts = slices.Compact(counts)

	return Intervals{counts: counts}
}

// Counts returns a copy of the schedule in ascending order.
func (iv Intervals) Counts() []int {
	return slices.Clone(iv.counts)
}

// Len returns the number of scheduled snapshots.
func (iv Intervals) Len() int {
	return len(iv.counts)
}

// Contains reports whether a snapshot is taken after sample i.
func (iv Intervals) Contains(i int) bool {
	_, ok := slices.BinarySearch(iv.counts, i)
	return ok
}
