package visualization

import (
	"sort"
)

// orderLayers groups nodes by rank and reduces edge crossings with the
// barycenter heuristic, using the median neighbour position as the key.
//
// Rank 0 starts in id order. Each sweep reorders every rank against the
// ranks already fixed in that pass: down sweeps look at predecessors in the
// rank above, up sweeps at successors in the rank below. Endpoints of longer
// edges are ignored. Ties, and nodes with no adjacent-rank neighbours in the
// sweep direction, fall back to their current position and then to id.
func orderLayers(vg *visibleGraph, r *ranking, sweeps int) [][]string {
	layers := make([][]string, r.maxRank+1)
	if len(vg.nodes) == 0 {
		return nil
	}
	for _, id := range vg.sortedIDs() {
		layers[r.rank[id]] = append(layers[r.rank[id]], id)
	}

	pos := make(map[string]float64, len(vg.nodes))
	reindex := func(layer []string) {
		for i, id := range layer {
			pos[id] = centered(i, len(layer))
		}
	}
	for _, layer := range layers {
		reindex(layer)
	}

	above := adjacentNeighbours(r.pred, r.rank, -1)
	below := adjacentNeighbours(r.succ, r.rank, 1)

	for s := 0; s < sweeps; s++ {
		if s%2 == 0 {
			for rank := 1; rank < len(layers); rank++ {
				sortByMedian(layers[rank], above, pos)
				reindex(layers[rank])
			}
		} else {
			for rank := len(layers) - 2; rank >= 0; rank-- {
				sortByMedian(layers[rank], below, pos)
				reindex(layers[rank])
			}
		}
	}

	return layers
}

// adjacentNeighbours keeps only the neighbours exactly delta ranks away
func adjacentNeighbours(all map[string][]string, rank map[string]int, delta int) map[string][]string {
	out := make(map[string][]string, len(all))
	for id, neighbours := range all {
		for _, n := range neighbours {
			if rank[n] == rank[id]+delta {
				out[id] = append(out[id], n)
			}
		}
	}
	return out
}

// sortByMedian orders a layer by the median position of each node's neighbours
func sortByMedian(layer []string, neighbours map[string][]string, pos map[string]float64) {
	keys := make(map[string]float64, len(layer))
	for _, id := range layer {
		if m, ok := medianPosition(neighbours[id], pos); ok {
			keys[id] = m
		} else {
			keys[id] = pos[id]
		}
	}

	sort.SliceStable(layer, func(i, j int) bool {
		ki, kj := keys[layer[i]], keys[layer[j]]
		if ki != kj {
			return ki < kj
		}
		return layer[i] < layer[j]
	})
}

// medianPosition returns the median in-rank position of the given nodes
func medianPosition(ids []string, pos map[string]float64) (float64, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = pos[id]
	}
	return median(values), true
}

// centered maps an in-rank index to a position centred on zero, so ranks of
// different widths line up the way they are finally drawn.
func centered(index, width int) float64 {
	return float64(index) - float64(width-1)/2
}
