package estimator

import (
	"slices"
	"testing"
)

func TestSelectIntervals(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		want    []int // exact schedule, when small enough to spell out
		wantLen int
		mustHas []int
	}{
		{name: "zero", n: 0, want: []int{}},
		{name: "negative", n: -3, want: []int{}},
		{name: "single", n: 1, want: []int{1}},
		{name: "below first interval", n: 5, want: []int{5}},
		{name: "nine", n: 9, want: []int{9}},
		{name: "exactly ten", n: 10, want: []int{10}},
		{name: "fifteen", n: 15, want: []int{10, 11, 12, 13, 14, 15}},
		{
			name:    "five hundred",
			n:       500,
			wantLen: 99, // multiples of 5 from 10 to 500
			mustHas: []int{10, 15, 50, 100, 250, 495, 500},
		},
		{
			name:    "one thousand",
			n:       1000,
			wantLen: 100, // every milestone is a multiple of 10
			mustHas: []int{10, 50, 100, 250, 500, 750, 1000},
		},
		{
			name:    "uneven",
			n:       12345,
			wantLen: 108, // 100 multiples of 123, 7 milestones, n
			mustHas: []int{10, 50, 123, 1000, 12300, 12345},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectIntervals(tt.n).Counts()

			if tt.want != nil {
				if !slices.Equal(got, tt.want) {
					t.Fatalf("SelectIntervals(%d) = %v, want %v", tt.n, got, tt.want)
				}
				return
			}

			if len(got) != tt.wantLen {
				t.Errorf("SelectIntervals(%d) len = %d, want %d", tt.n, len(got), tt.wantLen)
			}
			for _, c := range tt.mustHas {
				if !slices.Contains(got, c) {
					t.Errorf("SelectIntervals(%d) missing %d", tt.n, c)
				}
			}
			for i := 1; i < len(got); i++ {
				if got[i] <= got[i-1] {
					t.Fatalf("SelectIntervals(%d) not strictly increasing at %d: %v", tt.n, i, got[i-1:i+1])
				}
			}
			if got[len(got)-1] != tt.n {
				t.Errorf("SelectIntervals(%d) last = %d, want %d", tt.n, got[len(got)-1], tt.n)
			}
			if got[0] < 1 {
				t.Errorf("SelectIntervals(%d) first = %d, want >= 1", tt.n, got[0])
			}
		})
	}
}

func TestIntervals_Contains(t *testing.T) {
	iv := SelectIntervals(1000)

	for _, c := range []int{10, 20, 50, 990, 1000} {
		if !iv.Contains(c) {
			t.Errorf("Contains(%d) = false, want true", c)
		}
	}
	for _, c := range []int{0, 1, 9, 11, 999, 1001} {
		if iv.Contains(c) {
			t.Errorf("Contains(%d) = true, want false", c)
		}
	}

	// Counts must not expose internal storage.
	counts := iv.Counts()
	counts[0] = -1
	if !iv.Contains(10) {
		t.Error("Counts() aliased internal storage")
	}
}
