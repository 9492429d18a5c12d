package fingerprint

import "math"

// band is a half-open bin range [Start, End).
type band struct {
	Start, End int
}

// logBands partitions [0, bins) into numBands half-open ranges with
// edges placed on a logarithmic scale between 1 and bins-1, the first
// edge then forced to 0. A band may legally be empty if two edges
// collapse after the integer cast.
func logBands(bins, numBands int) []band {
	edges := make([]int, numBands+1)
	logStart := math.Log10(1)
	logEnd := math.Log10(float64(bins - 1))
	step := (logEnd - logStart) / float64(numBands)

	for i := 0; i <= numBands; i++ {
		edges[i] = int(math.Pow(10, logStart+float64(i)*step))
	}
	edges[0] = 0

	bands := make([]band, numBands)
	for i := 0; i < numBands; i++ {
		bands[i] = band{Start: edges[i], End: edges[i+1]}
	}
	return bands
}
