// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tui is the interactive front end. The user types a query, expands
// it into terms, picks the terms to search with, and reads the ranked
// results. Each action runs one pipeline call as a tea.Cmd and reports back
// with a single completion message.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/paper-scout/internal/pipeline"
)

// Top-N bounds offered by the form.
const (
	MinTopN     = 1
	MaxTopN     = 20
	DefaultTopN = 5
)

// Pipeline is the part of the orchestrator the front end calls.
type Pipeline interface {
	Expand(ctx context.Context, query string) (pipeline.Expansion, error)
	Rank(ctx context.Context, query string, terms []string, opts pipeline.Options) (pipeline.Result, error)
}

type focus int

const (
	focusQuery focus = iota
	focusTerms
)

// Term is one expanded term in the checklist.
type Term struct {
	Text     string
	Selected bool
}

// Model is the bubbletea model of the search form.
type Model struct {
	pipeline Pipeline
	ctx      context.Context
	opts     pipeline.Options
	progress io.Writer

	keys    KeyMap
	styles  Styles
	input   textinput.Model
	spinner spinner.Model
	results viewport.Model

	focus  focus
	terms  []Term
	cursor int
	query  string // query the terms were expanded from

	busy    bool
	status  string
	err     error
	warning string
	result  *pipeline.Result

	width, height int
	ready         bool
}

// New returns a Model that drives p. opts supplies the per-term result
// count; a TopN outside MinTopN..MaxTopN is replaced by DefaultTopN.
func New(ctx context.Context, p Pipeline, opts pipeline.Options) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.TopN < MinTopN || opts.TopN > MaxTopN {
		opts.TopN = DefaultTopN
	}

	ti := textinput.New()
	ti.Placeholder = "e.g. transformer attention mechanisms"
	ti.CharLimit = 256
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		pipeline: p,
		ctx:      ctx,
		opts:     opts,
		keys:     DefaultKeyMap(),
		styles:   DefaultStyles(),
		input:    ti,
		spinner:  sp,
		results:  viewport.New(80, 10),
		status:   "Ready",
		width:    80,
		height:   24,
	}
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ExpandCompleted:
		m.handleExpandCompleted(msg)
		return m, nil

	case SearchCompleted:
		m.handleSearchCompleted(msg)
		return m, nil

	case StatusChanged:
		if m.busy {
			m.status = msg.Text
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusQuery {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		return m, m.startSearch()
	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return m, nil
	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}

	if m.focus == focusQuery {
		if key.Matches(msg, m.keys.Expand) {
			return m, m.startExpand()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.terms)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.cursor < len(m.terms) {
			m.terms[m.cursor].Selected = !m.terms[m.cursor].Selected
		}
	case key.Matches(msg, m.keys.More):
		m.opts.TopN = min(m.opts.TopN+1, MaxTopN)
	case key.Matches(msg, m.keys.Less):
		m.opts.TopN = max(m.opts.TopN-1, MinTopN)
	case key.Matches(msg, m.keys.Expand):
		return m, m.startSearch()
	}
	return m, nil
}

func (m *Model) toggleFocus() {
	if m.focus == focusQuery && len(m.terms) > 0 {
		m.focus = focusTerms
		m.input.Blur()
		return
	}
	m.focus = focusQuery
	m.input.Focus()
}

// startExpand begins the expand action for the query in the input box.
func (m *Model) startExpand() tea.Cmd {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.busy {
		return nil
	}

	m.busy = true
	m.err = nil
	m.warning = ""
	m.terms = nil
	m.cursor = 0
	m.result = nil
	m.results.SetContent("")
	m.status = "Expanding query with the language model..."

	p, ctx := m.pipeline, m.ctx
	expand := func() tea.Msg {
		exp, err := p.Expand(ctx, query)
		return ExpandCompleted{Expansion: exp, Err: err}
	}
	return tea.Batch(expand, m.spinner.Tick)
}

// startSearch begins the search-with-selected action.
func (m *Model) startSearch() tea.Cmd {
	if m.busy || len(m.terms) == 0 {
		return nil
	}
	selected := m.SelectedTerms()
	if len(selected) == 0 {
		m.status = "Please select at least one search term."
		return nil
	}

	m.busy = true
	m.err = nil
	m.warning = ""
	m.status = fmt.Sprintf("Gathering papers for %d terms...", len(selected))

	p, ctx, query := m.pipeline, m.ctx, m.query
	opts := m.opts
	opts.Progress = m.progress
	search := func() tea.Msg {
		res, err := p.Rank(ctx, query, selected, opts)
		return SearchCompleted{Result: res, Err: err}
	}
	return tea.Batch(search, m.spinner.Tick)
}

func (m *Model) handleExpandCompleted(msg ExpandCompleted) {
	m.busy = false
	if msg.Err != nil {
		m.err = fmt.Errorf("failed to expand query: %w", msg.Err)
		m.status = "Error!"
		return
	}

	m.query = msg.Expansion.Query
	m.terms = make([]Term, len(msg.Expansion.Terms))
	for i, t := range msg.Expansion.Terms {
		m.terms[i] = Term{Text: t, Selected: true}
	}
	m.cursor = 0
	m.focus = focusTerms
	m.input.Blur()
	m.status = "Expansion complete. Select terms and press ctrl+s to search."
	if msg.Expansion.Degraded {
		m.warning = fmt.Sprintf("Expansion failed, using the query alone: %v", msg.Expansion.Err)
	}
	m.layout()
}

func (m *Model) handleSearchCompleted(msg SearchCompleted) {
	m.busy = false
	if msg.Err != nil {
		m.err = msg.Err
		m.result = nil
		m.status = "Error!"
		m.results.SetContent("")
		return
	}

	res := msg.Result
	m.result = &res
	m.status = "Done!"
	if len(res.TermErrors) > 0 {
		m.warning = fmt.Sprintf("%d of %d term searches failed", len(res.TermErrors), len(res.Terms))
	}
	m.results.SetContent(m.renderResults())
	m.results.GotoTop()
}

// SelectedTerms returns the checked terms in list order.
func (m *Model) SelectedTerms() []string {
	var out []string
	for _, t := range m.terms {
		if t.Selected {
			out = append(out, t.Text)
		}
	}
	return out
}

// SetDimensions resizes the view.
func (m *Model) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.ready = true
	m.input.Width = max(width-12, 10)
	m.layout()
}

// layout gives the results viewport whatever height the form leaves over.
func (m *Model) layout() {
	const chrome = 10 // title, query, headings, top-n, status and help lines
	m.results.Width = m.width
	m.results.Height = max(m.height-chrome-len(m.terms), 3)
	if m.result != nil {
		m.results.SetContent(m.renderResults())
	}
}

// View renders the form.
func (m *Model) View() string {
	if !m.ready {
		return "Initialising..."
	}
	s := m.styles
	sections := make([]string, 0, 12)

	sections = append(sections,
		s.Title.Render("paper-scout")+s.Muted.Render("  arXiv search with LLM re-ranking"),
		s.Label.Render("Query: ")+m.input.View(),
		"",
		s.Label.Render("Search terms"),
		m.renderTerms(),
		s.Label.Render("Top N: ")+s.Normal.Render(fmt.Sprint(m.opts.TopN))+s.Muted.Render(fmt.Sprintf("  (%d-%d)", MinTopN, MaxTopN)),
		"",
	)

	switch {
	case m.err != nil:
		sections = append(sections, s.Error.Render("An error occurred:\n\n"+m.err.Error()))
	case m.result != nil:
		sections = append(sections, m.results.View())
	}
	if m.warning != "" {
		sections = append(sections, s.Warning.Render(m.warning))
	}

	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	sections = append(sections,
		s.StatusBar.Width(m.width).Render(status),
		s.Help.Render(m.helpLine()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderTerms() string {
	s := m.styles
	if len(m.terms) == 0 {
		return s.Muted.Render("  press enter to expand the query")
	}
	lines := make([]string, len(m.terms))
	for i, t := range m.terms {
		box := "[ ]"
		if t.Selected {
			box = "[x]"
		}
		line := "  " + box + " " + t.Text
		if m.focus == focusTerms && i == m.cursor {
			line = s.Cursor.Render("> " + box + " " + t.Text)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// renderResults lays out the ranked list for the viewport.
func (m *Model) renderResults() string {
	if m.result == nil {
		return ""
	}
	s := m.styles
	if len(m.result.Results) == 0 {
		return s.Muted.Render("No papers found. Please try a different query.")
	}

	body := lipgloss.NewStyle().Width(max(m.width-2, 20))
	var b strings.Builder
	for i, r := range m.result.Results {
		fmt.Fprintln(&b, s.Rank.Render(fmt.Sprintf("--- RANK %d ---", i+1)))
		fmt.Fprintln(&b, body.Render(s.Label.Render("Title: ")+r.Title))
		fmt.Fprintln(&b, body.Render("Authors: "+strings.Join(r.Authors, ", ")))
		fmt.Fprintln(&b, "PDF Link: "+r.PDFURL)
		fmt.Fprintln(&b, s.Score.Render("LLM Score: "+pipeline.FormatScore(r.RelevanceScore)+"/10"))
		fmt.Fprintln(&b, body.Render("Justification: "+r.Justification))
		fmt.Fprintln(&b)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) helpLine() string {
	parts := make([]string, 0, 8)
	for _, b := range m.keys.helpBindings() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Err returns the error shown in the view, if any.
func (m *Model) Err() error { return m.err }

// Busy reports whether an action is in flight.
func (m *Model) Busy() bool { return m.busy }

// Terms returns the checklist.
func (m *Model) Terms() []Term { return m.terms }

// TopN returns the number of results the next search keeps.
func (m *Model) TopN() int { return m.opts.TopN }

// Result returns the last completed search, or nil.
func (m *Model) Result() *pipeline.Result { return m.result }

// Status returns the status bar text.
func (m *Model) Status() string { return m.status }

// SetQuery replaces the query box contents.
func (m *Model) SetQuery(q string) { m.input.SetValue(q) }

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, p Pipeline, opts pipeline.Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, p, opts)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.progress = &statusWriter{send: prog.Send}

	if _, err := prog.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
