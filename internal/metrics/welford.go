package metrics

import "math"

// WelfordState holds running statistics using Welford's online algorithm.
// Mean and variance are updated in O(1) per observation without keeping
// the observations around.
type WelfordState struct {
	Count int     // n - number of observations
	Mean  float64 // running mean
	M2    float64 // sum of squared differences from mean
}

// Update adds a new observation.
// Reference: https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
func (w *WelfordState) Update(newValue float64) {
	w.Count++
	delta := newValue - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := newValue - w.Mean
	w.M2 += delta * delta2
}

// GetMean returns the current mean, 0 when empty.
func (w *WelfordState) GetMean() float64 {
	return w.Mean
}

// GetStdDev returns the population standard deviation. The second value
// is false when it is undefined, i.e. for fewer than 2 observations.
func (w *WelfordState) GetStdDev() (float64, bool) {
	if w.Count < 2 {
		return 0, false
	}
	return math.Sqrt(w.M2 / float64(w.Count)), true
}

// GetCount returns the number of observations.
func (w *WelfordState) GetCount() int {
	return w.Count
}

// WeightedMean accumulates Σ(value×weight) / Σ(weight).
type WeightedMean struct {
	sum    float64
	weight float64
}

// Add records a value with its weight. Non-positive weights are ignored.
func (m *WeightedMean) Add(value, weight float64) {
	if weight <= 0 {
		return
	}
	m.sum += value * weight
	m.weight += weight
}

// Value returns the weighted mean, 0 when nothing was added.
func (m *WeightedMean) Value() float64 {
	if m.weight == 0 {
		return 0
	}
	return m.sum / m.weight
}

// Weight returns the accumulated weight.
func (m *WeightedMean) Weight() float64 {
	return m.weight
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round6 rounds to six decimal places, used for coordinates.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
