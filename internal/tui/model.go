package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"catalograg/internal/service"
)

// EnginePort is the TUI-facing subset of the engine.
type EnginePort interface {
	Recommend(ctx context.Context, query string) (string, error)
	Search(ctx context.Context, query string, k int) ([]service.Match, error)
}

type mode int

const (
	modeRecommend mode = iota
	modeSearch
)

func (m mode) String() string {
	if m == modeSearch {
		return "search"
	}
	return "recommend"
}

// queryTimeout bounds a single request from the TUI.
const queryTimeout = 2 * time.Minute

type recommendMsg struct {
	query string
	text  string
	err   error
}

type searchMsg struct {
	query   string
	matches []service.Match
	err     error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	engine         EnginePort
	searchK        int
	input          textinput.Model
	viewport       viewport.Model
	mode           mode
	recommendation string
	matches        []service.Match
	status         string
	cursor         int
	ready          bool
	busy           bool
	lastQuery      string
}

// New creates a new TUI model instance.
func New(engine EnginePort, searchK int, indexSize int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Describe the role or skills and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		engine:   engine,
		searchK:  searchK,
		input:    ti,
		viewport: vp,
		status:   fmt.Sprintf("Loaded %d index entries. Tab switches recommend/search.", indexSize),
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) recommendCmd(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		text, err := m.engine.Recommend(ctx, q)
		return recommendMsg{query: q, text: text, err: err}
	}
}

func (m Model) searchCmd(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		matches, err := m.engine.Search(ctx, q, m.searchK)
		return searchMsg{query: q, matches: matches, err: err}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 1                                    // header
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case recommendMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.recommendation = ""
		} else {
			m.status = fmt.Sprintf("Recommendation for %q", msg.query)
			m.recommendation = msg.text
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil
	case searchMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.matches = nil
		} else {
			m.status = fmt.Sprintf("%d results for %q", len(msg.matches), msg.query)
			m.matches = msg.matches
			m.cursor = 0
			m.lastQuery = msg.query
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Searching the catalog..."
			if m.mode == modeSearch {
				return m, m.searchCmd(q)
			}
			return m, m.recommendCmd(q)
		case "tab":
			if m.mode == modeRecommend {
				m.mode = modeSearch
			} else {
				m.mode = modeRecommend
			}
			m.status = "Mode: " + m.mode.String()
			m.viewport.SetContent(m.renderContent())
			return m, nil
		case "down":
			if m.mode == modeSearch && len(m.matches) > 0 {
				m.cursor = (m.cursor + 1) % len(m.matches)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
			m.viewport.LineDown(1)
			return m, nil
		case "up":
			if m.mode == modeSearch && len(m.matches) > 0 {
				m.cursor = (m.cursor - 1 + len(m.matches)) % len(m.matches)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
			m.viewport.LineUp(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Assessment Recommender") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  ["+m.mode.String()+"]")
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	if m.mode == modeRecommend {
		if m.recommendation == "" {
			return "No recommendation yet."
		}
		return m.recommendation
	}
	if len(m.matches) == 0 {
		return "No results yet."
	}
	r := m.matches[m.cursor]
	d := r.Details
	title := fmt.Sprintf("Result %d/%d  score=%.3f", m.cursor+1, len(m.matches), r.Score)
	card := titleStyle.Render(fmt.Sprintf("%d. %s", r.Rank, d.Title)) + "\n" +
		d.URL + "\n" +
		fmt.Sprintf("Duration: %s | Type: %s | Remote: %s | Adaptive: %s", d.Duration, d.TestType, d.Remote, d.Adaptive)
	body := highlightBestSentence(d.Description, m.lastQuery)
	return title + "\n\n" + card + "\n\n" + body
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		score := tokenOverlapScore(qTokens, s)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
