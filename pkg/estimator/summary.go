package estimator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses a RunResult into the figures a dashboard shows next to
// its charts. It carries no points.
type Summary struct {
	Target    string  `json:"target"`
	Samples   int     `json:"samples"`
	Inside    int     `json:"inside"`
	Outside   int     `json:"outside"`
	Ratio     float64 `json:"ratio"`
	Scale     float64 `json:"scale"`
	Estimate  float64 `json:"estimate"`
	Reference float64 `json:"reference"`

	// Absolute and relative distance to Reference. Zero when Reference is unknown.
	AbsError     float64 `json:"abs_error"`
	PercentError float64 `json:"percent_error"`

	// Convergence errors are measured against Reference when it is known,
	// otherwise against the final estimate.
	InitialError float64 `json:"initial_error"`
	MidSamples   int     `json:"mid_samples"`
	MidError     float64 `json:"mid_error"`
	FinalError   float64 `json:"final_error"`

	// Band is the half-width of the error band drawn around the convergence curve.
	Band float64 `json:"band"`
}

// Summarize computes the Summary of res sampled with target.
func Summarize(res *RunResult, target Target) Summary {
	s := Summary{
		Target:    res.Target,
		Samples:   res.Samples,
		Inside:    res.Inside,
		Outside:   res.Outside(),
		Ratio:     res.Ratio(),
		Scale:     target.Scale,
		Estimate:  res.Estimate,
		Reference: target.Reference,
	}

	if s.Reference > 0 {
		s.AbsError = math.Abs(s.Estimate - s.Reference)
		s.PercentError = s.AbsError / s.Reference * 100
	}

	conv := res.Convergence
	if len(conv) == 0 {
		return s
	}

	baseline := s.Reference
	if baseline == 0 {
		baseline = conv[len(conv)-1].Estimate
	}

	mid := len(conv) / 2
	s.InitialError = math.Abs(conv[0].Estimate - baseline)
	s.MidSamples = conv[mid].Samples
	s.MidError = math.Abs(conv[mid].Estimate - baseline)
	s.FinalError = math.Abs(conv[len(conv)-1].Estimate - baseline)
	s.Band = errorBand(conv)

	return s
}

// errorBand returns max(σ of the last k estimates, 1% of |final|), where
// k = min(10, max(1, len/10)) and σ is the population standard deviation.
// A zero final estimate falls back to a 0.01 floor.
func errorBand(conv []Snapshot) float64 {
	k := min(10, max(1, len(conv)/10))
	recent := conv[len(conv)-k:]

	var std float64
	if len(recent) > 1 {
		xs := make([]float64, len(recent))
		for i, s := range recent {
			xs[i] = s.Estimate
		}
		_, std = stat.PopMeanStdDev(xs, nil)
	}

	final := conv[len(conv)-1].Estimate
	relMargin := 0.05
	if final != 0 {
		relMargin = 0.05 * math.Abs(final)
	}

	return math.Max(std, 0.2*relMargin)
}
