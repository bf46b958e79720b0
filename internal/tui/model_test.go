package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalograg/internal/assessment"
	"catalograg/internal/service"
)

// MockEngine implements EnginePort for testing.
type MockEngine struct {
	RecommendFunc func(ctx context.Context, query string) (string, error)
	SearchFunc    func(ctx context.Context, query string, k int) ([]service.Match, error)
}

func (m *MockEngine) Recommend(ctx context.Context, query string) (string, error) {
	if m.RecommendFunc != nil {
		return m.RecommendFunc(ctx, query)
	}
	return "", nil
}

func (m *MockEngine) Search(ctx context.Context, query string, k int) ([]service.Match, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, k)
	}
	return nil, nil
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func typeQuery(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	return m
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(key)
	return updated.(Model), cmd
}

func TestNewModel(t *testing.T) {
	m := New(&MockEngine{}, 5, 42)
	assert.Contains(t, m.status, "42")
	assert.Equal(t, "Loading...", m.View())

	m = sized(t, m)
	assert.Contains(t, m.View(), "Assessment Recommender")
	assert.Contains(t, m.View(), "[recommend]")
}

func TestEnterRunsRecommendation(t *testing.T) {
	var got string
	engine := &MockEngine{RecommendFunc: func(_ context.Context, q string) (string, error) {
		got = q
		return "Use the Java 8 test.", nil
	}}
	m := typeQuery(t, sized(t, New(engine, 5, 1)), "  java developer ")

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	updated, _ := m.Update(cmd())
	m = updated.(Model)
	assert.Equal(t, "java developer", got)
	assert.False(t, m.busy)
	assert.Equal(t, "Use the Java 8 test.", m.recommendation)
	assert.Contains(t, m.View(), "Use the Java 8 test.")
}

func TestEnterIgnoresBlankQuery(t *testing.T) {
	m := typeQuery(t, sized(t, New(&MockEngine{}, 5, 1)), "   ")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.False(t, m.busy)
}

func TestTabSwitchesToSearch(t *testing.T) {
	var gotK int
	engine := &MockEngine{SearchFunc: func(_ context.Context, _ string, k int) ([]service.Match, error) {
		gotK = k
		return []service.Match{
			{Rank: 1, Score: 0.8, Details: assessment.Details{Title: "Java 8", Duration: "18 minutes", Description: "Measures Java."}},
			{Rank: 2, Score: 0.5, Details: assessment.Details{Title: "Python", Description: "Measures Python."}},
		}, nil
	}}
	m := sized(t, New(engine, 7, 2))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, modeSearch, m.mode)

	m = typeQuery(t, m, "java")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.Equal(t, 7, gotK)
	require.Len(t, m.matches, 2)
	assert.Contains(t, m.renderContent(), "Java 8")
	assert.Contains(t, m.renderContent(), "18 minutes")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	assert.Contains(t, m.renderContent(), "Python")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.cursor)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)
}

func TestErrorShownInStatus(t *testing.T) {
	engine := &MockEngine{RecommendFunc: func(context.Context, string) (string, error) {
		return "", errors.New("embed query: down")
	}}
	m := typeQuery(t, sized(t, New(engine, 5, 1)), "java")
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.Equal(t, "Error: embed query: down", m.status)
	assert.Equal(t, "No recommendation yet.", m.renderContent())
}

func TestCtrlCQuits(t *testing.T) {
	m := sized(t, New(&MockEngine{}, 5, 1))
	_, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Measures sales aptitude. Tests Java coding skills.", "java")
	assert.Contains(t, out, "Measures sales aptitude.")
	assert.Contains(t, out, "Java coding skills.")
	assert.Equal(t, "", highlightBestSentence("", "java"))
}
