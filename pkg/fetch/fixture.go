package fetch

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
)

// FixtureFile is the YAML layout read by LoadFixture
type FixtureFile struct {
	Subjects []FixtureSubject `yaml:"subjects"`
}

// FixtureSubject is one subject key with its graph and received assets
type FixtureSubject struct {
	DagID        string         `yaml:"dag_id"`
	PartitionKey string         `yaml:"partition_key"`
	Graph        depgraph.Graph `yaml:"graph"`
	Satisfied    []string       `yaml:"satisfied"`
}

type fixtureEntry struct {
	graph     *depgraph.Graph
	satisfied depgraph.SatisfactionSet
	err       error
}

// FixtureFetcher serves graphs from memory. Entries can be changed while a
// coordinator polls it, which makes it useful for demos and tests.
type FixtureFetcher struct {
	mu       sync.RWMutex
	subjects map[depgraph.SubjectKey]*fixtureEntry
}

// NewFixtureFetcher creates an empty fixture fetcher
func NewFixtureFetcher() *FixtureFetcher {
	return &FixtureFetcher{subjects: make(map[depgraph.SubjectKey]*fixtureEntry)}
}

// LoadFixture reads a YAML fixture file
func LoadFixture(path string) (*FixtureFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture builds a fixture fetcher from YAML. Missing edge ids are
// derived from their endpoints.
func ParseFixture(data []byte) (*FixtureFetcher, error) {
	var file FixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	f := NewFixtureFetcher()
	for i := range file.Subjects {
		s := file.Subjects[i]
		key := depgraph.SubjectKey{DagID: s.DagID, PartitionKey: s.PartitionKey}
		if err := key.Validate(); err != nil {
			return nil, fmt.Errorf("fixture subject %d: %w", i, err)
		}
		for j := range s.Graph.Edges {
			e := &s.Graph.Edges[j]
			if e.ID == "" {
				e.ID = depgraph.EdgeIDFor(e.SourceID, e.TargetID)
			}
		}
		g := s.Graph
		f.Set(key, &g, s.Satisfied...)
	}
	return f, nil
}

// Set stores the graph and satisfied ids of a subject
func (f *FixtureFetcher) Set(key depgraph.SubjectKey, g *depgraph.Graph, satisfied ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects[key] = &fixtureEntry{graph: g, satisfied: depgraph.NewSatisfactionSet(satisfied...)}
}

// SetGraph replaces the graph of a known subject
func (f *FixtureFetcher) SetGraph(key depgraph.SubjectKey, g *depgraph.Graph) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.subjects[key]
	if !ok {
		return fmt.Errorf("unknown fixture subject %s", key)
	}
	entry.graph = g
	return nil
}

// SetSatisfied replaces the received ids of a known subject
func (f *FixtureFetcher) SetSatisfied(key depgraph.SubjectKey, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.subjects[key]
	if !ok {
		return fmt.Errorf("unknown fixture subject %s", key)
	}
	entry.satisfied = depgraph.NewSatisfactionSet(ids...)
	return nil
}

// SetError makes every fetch for a subject fail with err until cleared with nil
func (f *FixtureFetcher) SetError(key depgraph.SubjectKey, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.subjects[key]
	if !ok {
		return fmt.Errorf("unknown fixture subject %s", key)
	}
	entry.err = err
	return nil
}

// Subjects returns the known subject keys
func (f *FixtureFetcher) Subjects() []depgraph.SubjectKey {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]depgraph.SubjectKey, 0, len(f.subjects))
	for k := range f.subjects {
		keys = append(keys, k)
	}
	return keys
}

func (f *FixtureFetcher) lookup(op string, key depgraph.SubjectKey) (*fixtureEntry, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.subjects[key]
	if !ok {
		return nil, &FetchError{Op: op, Subject: key.String(), StatusCode: 404, Kind: ErrNotFound}
	}
	if entry.err != nil {
		return nil, entry.err
	}
	copied := *entry
	return &copied, nil
}

// FetchDependencyGraph returns the stored graph, validated like the HTTP fetcher
func (f *FixtureFetcher) FetchDependencyGraph(ctx context.Context, key depgraph.SubjectKey) (*depgraph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, err := f.lookup("fetch graph", key)
	if err != nil {
		return nil, err
	}
	if err := entry.graph.Validate(); err != nil {
		return nil, &FetchError{Op: "fetch graph", Subject: key.String(), Kind: depgraph.ErrInvalidGraph, Cause: err}
	}
	return entry.graph, nil
}

// FetchSatisfactionSet returns the stored satisfied ids
func (f *FixtureFetcher) FetchSatisfactionSet(ctx context.Context, key depgraph.SubjectKey) (depgraph.SatisfactionSet, error) {
	if err := ctx.Err(); err != nil {
		return depgraph.SatisfactionSet{}, err
	}
	entry, err := f.lookup("fetch run", key)
	if err != nil {
		return depgraph.SatisfactionSet{}, err
	}
	return entry.satisfied, nil
}
