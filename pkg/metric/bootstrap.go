package metric

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// BootstrapInterval is the confidence interval of a statistic estimated by resampling.
type BootstrapInterval struct {
	Lower  float64
	Upper  float64
	StdDev float64
	Mean   float64
}

// Bootstrap resamples values with replacement samples times, applies measure to
// every resample and returns the confidence interval of the results.
func Bootstrap(rng *rand.Rand, values []float64, measure func([]float64) float64, samples int,
	confidence float64) BootstrapInterval {

	if len(values) == 0 || samples <= 0 {
		return BootstrapInterval{}
	}

	data := make([]float64, 0, samples)
	resample := make([]float64, len(values))
	for i := 0; i < samples; i++ {
		for j := range resample {
			resample[j] = values[rng.Intn(len(values))]
		}
		data = append(data, measure(resample))
	}

	tail := 1 - confidence
	sort.Float64s(data)

	mean, stdDev := stat.MeanStdDev(data, nil)
	return BootstrapInterval{
		Lower:  stat.Quantile(tail/2, stat.LinInterp, data, nil),
		Upper:  stat.Quantile(1-tail/2, stat.LinInterp, data, nil),
		StdDev: stdDev,
		Mean:   mean,
	}
}
