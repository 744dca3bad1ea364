package visualization

import (
	"math"
	"sort"
)

// median returns the median of values; even counts average the two middles.
// values is sorted in place.
func median(values []float64) float64 {
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}

// computeBounds returns the extent covering every node box plus padding
func computeBounds(nodes []PositionedNode, width, height, padding float64) Bounds {
	if len(nodes) == 0 {
		return Bounds{}
	}

	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64

	for _, n := range nodes {
		minX = math.Min(minX, n.X-width/2)
		maxX = math.Max(maxX, n.X+width/2)
		minY = math.Min(minY, n.Y-height/2)
		maxY = math.Max(maxY, n.Y+height/2)
	}

	return Bounds{
		Min: Position{X: math.Max(0, minX-padding), Y: math.Max(0, minY-padding)},
		Max: Position{X: maxX + padding, Y: maxY + padding},
	}
}
