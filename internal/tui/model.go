package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// Asker is the TUI-facing subset of the RAG service.
type Asker interface {
	Query(ctx context.Context, q domain.Query) (*domain.Answer, error)
}

// answerMsg carries the result of a query started by Update.
type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	ctx       context.Context
	asker     Asker
	newQuery  func(string) domain.Query
	input     textinput.Model
	viewport  viewport.Model
	answer    *domain.Answer
	banner    string
	status    string
	cursor    int // -1 shows the answer, otherwise a source index
	pending   bool
	ready     bool
	lastQuery string
}

// New creates a chat model. newQuery turns typed text into a query with
// the configured defaults.
func New(ctx context.Context, asker Asker, newQuery func(string) domain.Query, banner string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the course and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		asker:    asker,
		newQuery: newQuery,
		input:    ti,
		viewport: vp,
		banner:   banner,
		status:   "Ready. Tab cycles sources.",
		cursor:   -1,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and banner, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.render())
		return m, nil
	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer = nil
		} else {
			m.answer = msg.answer
			m.status = fmt.Sprintf("Answer with %d sources", len(msg.answer.Sources))
		}
		m.cursor = -1
		m.viewport.SetContent(m.render())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.lastQuery = q
			m.status = fmt.Sprintf("Thinking about %q...", q)
			m.input.SetValue("")
			return m, m.ask(q)
		case "tab", "down":
			if m.answer != nil && len(m.answer.Sources) > 0 {
				m.cursor = (m.cursor+2)%(len(m.answer.Sources)+1) - 1
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "shift+tab", "up":
			if m.answer != nil && len(m.answer.Sources) > 0 {
				n := len(m.answer.Sources) + 1
				m.cursor = (m.cursor+n)%n - 1
				m.viewport.SetContent(m.render())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(text string) tea.Cmd {
	q := m.newQuery(text)
	return func() tea.Msg {
		ans, err := m.asker.Query(m.ctx, q)
		return answerMsg{answer: ans, err: err}
	}
}

// View renders the layout and the current answer or source.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Physical AI & Humanoid Robotics Course Assistant")
	banner := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.banner)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + banner + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) render() string {
	if m.answer == nil {
		return "No answer yet."
	}
	if m.cursor < 0 {
		return m.answer.Response
	}
	s := m.answer.Sources[m.cursor]
	title := fmt.Sprintf("Source %d/%d  score=%.3f  %s", m.cursor+1, len(m.answer.Sources), s.Score, s.Metadata.Title)
	if s.Metadata.Module != "" {
		title += fmt.Sprintf("  [%s, week %d]", s.Metadata.Module, s.Metadata.Week)
	}
	return title + "\n\n" + highlightBestSentence(s.Content, m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	wordRe         = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)
	sentenceEndRe  = regexp.MustCompile(`[.!?]+(?:\s+|$)`)
)

// highlightBestSentence renders text with the sentence that shares the
// most distinct words with query in bold. Ties go to the earlier sentence.
func highlightBestSentence(text, query string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	terms := words(query)
	best, bestHits := -1, 0
	for i, sent := range sentences {
		hits := 0
		for w := range words(sent) {
			if _, ok := terms[w]; ok {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best >= 0 {
		sentences[best] = highlightStyle.Render(sentences[best])
	}
	return strings.Join(sentences, " ")
}

// splitSentences cuts text after each run of terminal punctuation.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		if sent := strings.TrimSpace(text[start:loc[1]]); sent != "" {
			out = append(out, sent)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func words(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		set[w] = struct{}{}
	}
	return set
}
