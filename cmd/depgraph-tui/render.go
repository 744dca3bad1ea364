package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-depgraph/pkg/polling"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Dependency graph " + m.key.String()))
	s.WriteString("\n\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.current {
	case graphTab:
		s.WriteString(m.renderGraph())
	case nodesTab:
		s.WriteString(contentStyle.Render(m.nodeTable.View()))
	case statusTab:
		s.WriteString(m.renderStatus())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.msgErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(helpStyle.Render(m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	tabs := []string{"Graph", "Nodes", "Status"}
	rendered := make([]string, 0, len(tabs))
	for i, name := range tabs {
		if tab(i) == m.current {
			rendered = append(rendered, activeTabStyle.Render(name))
		} else {
			rendered = append(rendered, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderGraph draws one box per rank, laid along the layout's primary axis
func (m model) renderGraph() string {
	if m.latest == nil {
		return contentStyle.Render("Waiting for the first update...")
	}
	if m.latest.Graph == nil {
		return contentStyle.Render(errorStyle.Render(m.stateLine()))
	}

	hg := m.latest.Graph
	pg := hg.Positioned
	layers := pg.Layers()
	if pg.Direction.Reversed() {
		for i, j := 0, len(layers)-1; i < j; i, j = i+1, j-1 {
			layers[i], layers[j] = layers[j], layers[i]
		}
	}

	boxes := make([]string, 0, len(layers))
	for _, layer := range layers {
		lines := make([]string, 0, len(layer))
		for _, id := range layer {
			n, ok := hg.Node(id)
			if !ok {
				continue
			}
			lines = append(lines, nodeLabel(n))
		}
		sep := "\n"
		if !pg.Direction.Horizontal() {
			sep = "  "
		}
		boxes = append(boxes, rankBoxStyle.Render(strings.Join(lines, sep)))
	}

	var body string
	if pg.Direction.Horizontal() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, boxes...)
	}

	header := headerStyle.Render(fmt.Sprintf("%s  %d/%d satisfied  %s",
		pg.Direction, hg.SelectedCount, len(hg.Nodes), m.stateLine()))
	return contentStyle.Render(header + "\n" + body)
}

func nodeLabel(n visualization.HighlightedNode) string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if len(n.Members) > 0 {
		label = fmt.Sprintf("[+] %s (%d/%d)", label, n.SatisfiedMembers, len(n.Members))
	}
	if n.IsSelected {
		return satisfiedStyle.Render("● " + label)
	}
	return pendingStyle.Render("○ " + label)
}

func (m model) stateLine() string {
	if m.latest == nil {
		return polling.Idle.String()
	}
	line := fmt.Sprintf("%s #%d", m.latest.State, m.latest.Seq)
	if m.latest.Err != nil {
		line += ": " + m.latest.Err.Error()
	}
	return line
}

func (m model) renderStatus() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject:    %s\n", m.key)
	fmt.Fprintf(&b, "State:      %s\n", m.stateLine())
	fmt.Fprintf(&b, "Direction:  %s\n", m.dir)
	fmt.Fprintf(&b, "Expanded:   %s\n", strings.Join(m.expanded.IDs(), ", "))
	if m.latest != nil && m.latest.Graph != nil {
		pg := m.latest.Graph.Positioned
		fmt.Fprintf(&b, "Visible:    %d nodes, %d edges, %d ranks\n", len(pg.Nodes), len(pg.Edges), pg.Ranks)
	}

	if vs := m.status; vs != nil {
		fmt.Fprintf(&b, "\nSubscribers:    %d\n", vs.Subscribers)
		fmt.Fprintf(&b, "Last success:   %s\n", ago(vs.LastSuccess))
		fmt.Fprintf(&b, "Last update:    %s\n", ago(vs.LastUpdate))
		fmt.Fprintf(&b, "Layout cache:   %d hits, %d misses, %d computed\n",
			vs.Cache.Hits, vs.Cache.Misses, vs.Cache.Computations)
		fmt.Fprintf(&b, "Stale results:  %d discarded\n", vs.StaleDiscards)
		if vs.LastError != "" {
			b.WriteString("\n" + errorStyle.Render("Last error: "+vs.LastError))
		}
	}

	return contentStyle.Render(statsBoxStyle.Render(b.String()))
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return time.Since(t).Round(time.Second).String() + " ago"
}
