package price

// PercentileOfScore returns the percentile rank of score within series, 0..100.
// A score equal to a sample counts as that sample's rank, so a score at or above
// k of n samples scores 100*k/n; ties over several samples take their average
// rank. An empty series yields 0.
func PercentileOfScore(series []float64, score float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var below, atOrBelow int
	for _, v := range series {
		if v < score {
			below++
		}
		if v <= score {
			atOrBelow++
		}
	}
	extra := 0
	if atOrBelow > below {
		extra = 1
	}
	return float64(below+atOrBelow+extra) * 50 / float64(len(series))
}
