package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/askdocs/internal/domain/entities"
)

type fakeChat struct {
	resp      *entities.ChatResponse
	err       error
	questions []string
}

func (f *fakeChat) Ask(ctx context.Context, question string) (*entities.ChatResponse, error) {
	f.questions = append(f.questions, question)
	return f.resp, f.err
}

func sized(t *testing.T, chat ChatPort) Model {
	t.Helper()
	next, _ := New(chat, "2 files indexed").Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// submit types question, presses Enter and feeds the answer back into the model.
func submit(t *testing.T, m Model, question string) Model {
	t.Helper()
	m.input.SetValue(question)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)

	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestModel_Ask(t *testing.T) {
	chat := &fakeChat{resp: &entities.ChatResponse{
		Answer: "Paris.",
		Passages: []entities.Passage{
			{Text: "Paris is the capital of France.", SourceFile: "geo.pdf"},
			{Text: "France is in Europe.", SourceFile: "geo.pdf"},
		},
	}}
	m := sized(t, chat)

	m = submit(t, m, "  capital of France?  ")

	assert.Equal(t, []string{"capital of France?"}, chat.questions)
	assert.False(t, m.waiting)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.transcript, 2)
	assert.Contains(t, m.transcript[0], "capital of France?")
	assert.Contains(t, m.transcript[1], "Paris.")
	assert.Len(t, m.passages, 2)
	assert.Equal(t, "2 relevant documents", m.status)

	view := m.View()
	assert.Contains(t, view, "Relevant documents (1/2)")
	assert.Contains(t, view, "geo.pdf")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, next.(Model).cursor)
}

func TestModel_AnswerFailureKeepsPassages(t *testing.T) {
	err := fmt.Errorf("%w: quota", entities.ErrAnswerGeneration)
	chat := &fakeChat{
		resp: &entities.ChatResponse{Passages: []entities.Passage{{Text: "kept", SourceFile: "a.txt"}}, AnswerErr: err},
		err:  err,
	}
	m := sized(t, chat)

	m = submit(t, m, "q")

	assert.Len(t, m.passages, 1)
	assert.Contains(t, m.status, "Answer failed")
	assert.Contains(t, m.transcript[len(m.transcript)-1], "quota")
}

func TestModel_RetrievalFailure(t *testing.T) {
	m := sized(t, &fakeChat{err: errors.New("retrieval unavailable")})

	m = submit(t, m, "q")

	assert.Empty(t, m.passages)
	assert.Equal(t, "Retrieval failed", m.status)
	assert.Contains(t, m.transcript[len(m.transcript)-1], "retrieval unavailable")
}

func TestModel_IgnoresEmptyAndConcurrentQuestions(t *testing.T) {
	chat := &fakeChat{resp: &entities.ChatResponse{Answer: "a"}}
	m := sized(t, chat)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)

	m = next.(Model)
	m.input.SetValue("first")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	m.input.SetValue("second")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd, "no second question while waiting")
}

func TestModel_Quit(t *testing.T) {
	m := sized(t, &fakeChat{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ViewBeforeSize(t *testing.T) {
	assert.Equal(t, "Loading...", New(&fakeChat{}, "").View())
}
