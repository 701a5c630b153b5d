package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bnema/dcloud-assistant/internal/application"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerProgressFollowsPhases(t *testing.T) {
	t.Parallel()

	var model tea.Model = newAnswerProgressModel(nil)
	assert.Contains(t, model.View(), "Searching the conversation...")

	model, _ = model.Update(askPhaseMsg(application.PhaseLiveAPI))
	assert.Contains(t, model.View(), "Not in memory, querying the live API...")

	model, _ = model.Update(askPhaseMsg(application.PhaseReanswer))
	assert.Contains(t, model.View(), "Reading the API response...")

	model, cmd := model.Update(askDoneMsg{err: errors.New("boom")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, model.View())

	final, ok := model.(answerProgressModel)
	require.True(t, ok)
	assert.EqualError(t, final.err, "boom")
}

func TestWithAnswerProgressWithoutTerminal(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	ran := false
	err := withAnswerProgress(context.Background(), &out, func(_ context.Context, observe application.AskObserver) error {
		ran = true
		assert.Nil(t, observe)
		return errors.New("work failed")
	})

	assert.True(t, ran)
	assert.EqualError(t, err, "work failed")
	assert.Empty(t, out.String())
}
