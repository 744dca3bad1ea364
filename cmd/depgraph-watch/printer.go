package main

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/dd0wney/cluso-depgraph/pkg/polling"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

// updateLine is one JSON line on stdout
type updateLine struct {
	Subject string          `json:"subject"`
	State   string          `json:"state"`
	Seq     uint64          `json:"seq"`
	At      time.Time       `json:"at"`
	Error   string          `json:"error,omitempty"`
	Graph   json.RawMessage `json:"graph,omitempty"`
}

type printer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newPrinter(w io.Writer) *printer {
	return &printer{enc: json.NewEncoder(w)}
}

func (p *printer) print(u polling.Update) error {
	line := updateLine{
		Subject: u.Key.String(),
		State:   u.State.String(),
		Seq:     u.Seq,
		At:      u.At.UTC(),
	}
	if u.Err != nil {
		line.Error = u.Err.Error()
	}
	if u.Graph != nil {
		viz := visualization.Visualization{Graph: u.Graph}
		data, err := viz.ExportJSON()
		if err != nil {
			return err
		}
		line.Graph = data
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(line)
}
