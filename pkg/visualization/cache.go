package visualization

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
	"github.com/dd0wney/cluso-depgraph/pkg/metrics"
)

// CacheStats reports layout cache activity
type CacheStats struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Computations uint64 `json:"computations"`
}

// CacheOption configures a LayoutCache
type CacheOption func(*LayoutCache)

// WithMetrics records hits, misses and layout timings in the registry
func WithMetrics(r *metrics.Registry) CacheOption {
	return func(c *LayoutCache) {
		c.metrics = r
	}
}

// LayoutCache memoizes the most recent layout.
//
// It holds a single entry keyed by Signature. A miss replaces the entry;
// failed computations are never stored.
type LayoutCache struct {
	layout  Layout
	metrics *metrics.Registry

	mu     sync.Mutex
	sig    uint64
	result *PositionedGraph
	stats  CacheStats
}

// NewLayoutCache wraps layout with a single-entry cache
func NewLayoutCache(layout Layout, opts ...CacheOption) *LayoutCache {
	c := &LayoutCache{layout: layout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the cached layout when the inputs match the previous
// call, and computes and stores a new one otherwise.
func (c *LayoutCache) GetOrCompute(g *depgraph.Graph, dir Direction, expanded ExpandedGroups) (*PositionedGraph, error) {
	sig := Signature(g, dir, expanded)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result != nil && c.sig == sig {
		c.stats.Hits++
		if c.metrics != nil {
			c.metrics.RecordCacheHit()
		}
		return c.result, nil
	}

	c.stats.Misses++
	c.stats.Computations++
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}

	start := time.Now()
	pg, err := c.layout.ComputeLayout(g, dir, expanded)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordLayout(metrics.StatusError, time.Since(start), 0)
		}
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordLayout(metrics.StatusSuccess, time.Since(start), len(pg.Nodes))
	}

	c.sig = sig
	c.result = pg
	return pg, nil
}

// Stats returns a snapshot of the cache counters
func (c *LayoutCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Reset drops the cached entry
func (c *LayoutCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
	c.sig = 0
}

// Signature hashes everything a layout depends on: the node set, the edge
// set, the direction and the expanded groups. Input order does not matter.
func Signature(g *depgraph.Graph, dir Direction, expanded ExpandedGroups) uint64 {
	d := xxhash.New()

	if g != nil {
		nodes := make([]depgraph.Node, len(g.Nodes))
		copy(nodes, g.Nodes)
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

		writeUint(d, uint64(len(nodes)))
		for _, n := range nodes {
			writeString(d, n.ID)
			writeUint(d, uint64(n.Kind))
			writeString(d, n.ParentGroupID)
			writeString(d, n.Label)
		}

		edges := make([]depgraph.Edge, len(g.Edges))
		copy(edges, g.Edges)
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].SourceID != edges[j].SourceID {
				return edges[i].SourceID < edges[j].SourceID
			}
			if edges[i].TargetID != edges[j].TargetID {
				return edges[i].TargetID < edges[j].TargetID
			}
			return edges[i].ID < edges[j].ID
		})

		writeUint(d, uint64(len(edges)))
		for _, e := range edges {
			writeString(d, e.SourceID)
			writeString(d, e.TargetID)
			writeString(d, e.ID)
		}
	}

	writeUint(d, uint64(dir))

	ids := expanded.IDs()
	writeUint(d, uint64(len(ids)))
	for _, id := range ids {
		writeString(d, id)
	}

	return d.Sum64()
}

// writeString writes a length-prefixed string so adjacent fields cannot collide
func writeString(d *xxhash.Digest, s string) {
	writeUint(d, uint64(len(s)))
	_, _ = d.WriteString(s)
}

func writeUint(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = d.Write(buf[:])
}
