package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-depgraph/pkg/depgraph"
	"github.com/dd0wney/cluso-depgraph/pkg/polling"
	"github.com/dd0wney/cluso-depgraph/pkg/visualization"
)

type tab int

const (
	graphTab tab = iota
	nodesTab
	statusTab
	numTabs
)

// controller is the part of the coordinator the model drives
type controller interface {
	SetDirection(key polling.SubjectKey, dir visualization.Direction) error
	SetExpandedGroups(key polling.SubjectKey, expanded visualization.ExpandedGroups) error
	Invalidate(key polling.SubjectKey, structural bool) error
	Views() []polling.ViewStatus
}

// updateMsg carries a coordinator update into the program
type updateMsg polling.Update

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	ctrl     controller
	key      polling.SubjectKey
	dir      visualization.Direction
	expanded visualization.ExpandedGroups

	// expandAll keeps newly revealed groups expanded
	expandAll   bool
	knownGroups map[string]bool

	latest    *polling.Update
	status    *polling.ViewStatus
	current   tab
	nodeTable table.Model
	help      help.Model
	keys      keyMap
	width     int
	height    int
	message   string
	msgErr    bool
}

func initialModel(ctrl controller, key polling.SubjectKey, dir visualization.Direction, expanded visualization.ExpandedGroups) model {
	columns := []table.Column{
		{Title: "ID", Width: 24},
		{Title: "Kind", Width: 8},
		{Title: "Label", Width: 24},
		{Title: "Rank", Width: 5},
		{Title: "X", Width: 7},
		{Title: "Y", Width: 7},
		{Title: "Received", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	known := make(map[string]bool)
	for _, id := range expanded.IDs() {
		known[id] = true
	}

	return model{
		ctrl:        ctrl,
		key:         key,
		dir:         dir,
		expanded:    expanded,
		knownGroups: known,
		current:     graphTab,
		nodeTable:   t,
		help:        help.New(),
		keys:        keys,
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.refreshStatus()
		return m, tickCmd()

	case updateMsg:
		u := polling.Update(msg)
		m.latest = &u
		m.learnGroups()
		m.nodeTable.SetRows(m.rows())
		m.refreshStatus()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.current = (m.current + 1) % numTabs
			return m, nil

		case key.Matches(msg, m.keys.ShiftTab):
			m.current = (m.current + numTabs - 1) % numTabs
			return m, nil

		case key.Matches(msg, m.keys.Direction):
			m.dir = m.dir.Next()
			m.report(m.ctrl.SetDirection(m.key, m.dir), "direction "+m.dir.String())
			return m, nil

		case key.Matches(msg, m.keys.Groups):
			m.expandAll = !m.expandAll
			if m.expandAll {
				m.expanded = visualization.NewExpandedGroups(m.groupIDs()...)
				m.report(m.ctrl.SetExpandedGroups(m.key, m.expanded), "expanded all groups")
			} else {
				m.expanded = visualization.NewExpandedGroups()
				m.report(m.ctrl.SetExpandedGroups(m.key, m.expanded), "collapsed all groups")
			}
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.report(m.ctrl.Invalidate(m.key, false), "refreshing satisfaction")
			return m, nil

		case key.Matches(msg, m.keys.Reload):
			m.report(m.ctrl.Invalidate(m.key, true), "reloading graph")
			return m, nil

		case key.Matches(msg, m.keys.Toggle) && m.current == nodesTab:
			m.toggleSelected()
			return m, nil
		}
	}

	if m.current == nodesTab {
		m.nodeTable, cmd = m.nodeTable.Update(msg)
	}
	return m, cmd
}

func (m *model) report(err error, ok string) {
	if err != nil {
		m.message = err.Error()
		m.msgErr = true
		return
	}
	m.message = ok
	m.msgErr = false
}

func (m *model) refreshStatus() {
	m.status = nil
	for _, vs := range m.ctrl.Views() {
		if vs.Key == m.key {
			vs := vs
			m.status = &vs
			return
		}
	}
}

// learnGroups records every group the latest layout shows. While expand-all
// is on, groups seen for the first time are expanded as well.
func (m *model) learnGroups() {
	if m.latest == nil || m.latest.Graph == nil {
		return
	}
	fresh := false
	for _, n := range m.latest.Graph.Nodes {
		if n.Kind == depgraph.KindGroup && !m.knownGroups[n.ID] {
			m.knownGroups[n.ID] = true
			fresh = true
		}
	}
	for _, f := range m.latest.Graph.Positioned.Groups {
		if !m.knownGroups[f.ID] {
			m.knownGroups[f.ID] = true
			fresh = true
		}
	}
	if m.expandAll && fresh {
		m.expanded = visualization.NewExpandedGroups(m.groupIDs()...)
		m.report(m.ctrl.SetExpandedGroups(m.key, m.expanded), "expanded new groups")
	}
}

func (m model) groupIDs() []string {
	ids := make([]string, 0, len(m.knownGroups))
	for id := range m.knownGroups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// rows lists visible nodes followed by the frames of expanded groups
func (m model) rows() []table.Row {
	if m.latest == nil || m.latest.Graph == nil {
		return nil
	}
	hg := m.latest.Graph
	rows := make([]table.Row, 0, len(hg.Nodes)+len(hg.Positioned.Groups))
	for _, n := range hg.Nodes {
		received := "no"
		switch {
		case len(n.Members) > 0:
			received = fmt.Sprintf("%d/%d", n.SatisfiedMembers, len(n.Members))
		case n.IsSelected:
			received = "yes"
		}
		rows = append(rows, table.Row{
			n.ID,
			n.Kind.String(),
			n.Label,
			fmt.Sprintf("%d", n.Rank),
			fmt.Sprintf("%.0f", n.X),
			fmt.Sprintf("%.0f", n.Y),
			received,
		})
	}
	for _, f := range hg.Positioned.Groups {
		rows = append(rows, table.Row{f.ID, "frame", f.Label, "-", fmt.Sprintf("%.0f", f.Min.X), fmt.Sprintf("%.0f", f.Min.Y), "-"})
	}
	return rows
}

// toggleSelected expands or collapses the group under the table cursor
func (m *model) toggleSelected() {
	row := m.nodeTable.SelectedRow()
	if row == nil {
		return
	}
	id, kind := row[0], row[1]
	if kind != depgraph.KindGroup.String() && kind != "frame" {
		m.report(fmt.Errorf("%s is not a group", id), "")
		return
	}
	m.expanded = m.expanded.Toggle(id)
	if !m.expanded.Contains(id) {
		m.expandAll = false
	}
	verb := "collapsed "
	if m.expanded.Contains(id) {
		verb = "expanded "
	}
	m.report(m.ctrl.SetExpandedGroups(m.key, m.expanded), verb+id)
}
