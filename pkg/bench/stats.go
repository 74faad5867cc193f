package bench

import (
	"math"
	"slices"
)

// Summary holds descriptive statistics of a sample.
type Summary struct {
	Count    int     `json:"count" yaml:"count"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	Mean     float64 `json:"mean" yaml:"mean"`
	Median   float64 `json:"median" yaml:"median"`
	Mode     float64 `json:"mode" yaml:"mode"`
	StdDev   float64 `json:"std_dev" yaml:"std_dev"`
	Variance float64 `json:"variance" yaml:"variance"`
	Q1       float64 `json:"q1" yaml:"q1"`
	Q3       float64 `json:"q3" yaml:"q3"`
	IQR      float64 `json:"iqr" yaml:"iqr"`
}

// Summarize computes the statistics of values. Variance is the sample
// variance (n-1); with one value it is 0. An empty input gives a zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	if n > 1 {
		var ss float64
		for _, v := range sorted {
			d := v - mean
			ss += d * d
		}
		variance = ss / float64(n-1)
	}

	s := Summary{
		Count:    n,
		Min:      sorted[0],
		Max:      sorted[n-1],
		Mean:     mean,
		Median:   quantile(sorted, 0.5),
		Mode:     mode(sorted),
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Q1:       quantile(sorted, 0.25),
		Q3:       quantile(sorted, 0.75),
	}
	s.IQR = s.Q3 - s.Q1
	return s
}

// quantile uses linear interpolation between closest ranks on sorted data.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// mode returns the most frequent value of sorted data. When several values
// share the highest frequency, the median of those values is returned.
func mode(sorted []float64) float64 {
	var (
		best  []float64
		count int
	)
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		switch run := j - i; {
		case run > count:
			count = run
			best = append(best[:0], sorted[i])
		case run == count:
			best = append(best, sorted[i])
		}
		i = j
	}
	return quantile(best, 0.5)
}
