package estimator

import "github.com/branched-services/go-montecarlo/pkg/geom"

// mockSource replays values in a loop and counts draws.
type mockSource struct {
	values []float64
	pos    int
	draws  int
}

func (m *mockSource) Float64() float64 {
	v := m.values[m.pos]
	m.pos = (m.pos + 1) % len(m.values)
	m.draws++
	return v
}

// mockShape delegates containment to a function field.
type mockShape struct {
	containsFunc func(x, y float64) bool
}

func (m *mockShape) Contains(x, y float64) bool {
	if m.containsFunc != nil {
		return m.containsFunc(x, y)
	}
	return false
}

func (m *mockShape) Name() string     { return "mock" }
func (m *mockShape) Bound() geom.Rect { return geom.UnitSquare() }
func (m *mockShape) Area() float64    { return 0 }
