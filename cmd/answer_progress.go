package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bnema/dcloud-assistant/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	progressSpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	progressLiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	progressElapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func phaseLabel(phase application.AskPhase) string {
	switch phase {
	case application.PhaseLiveAPI:
		return "Not in memory, querying the live API..."
	case application.PhaseReanswer:
		return "Reading the API response..."
	default:
		return "Searching the conversation..."
	}
}

type askPhaseMsg application.AskPhase

type askDoneMsg struct {
	err error
}

// answerProgressModel shows which step of the ask loop is running and for how
// long. A live API phase switches the spinner colour.
type answerProgressModel struct {
	spinner   spinner.Model
	stopwatch stopwatch.Model
	phase     application.AskPhase
	work      tea.Cmd
	err       error
	done      bool
}

func newAnswerProgressModel(work tea.Cmd) answerProgressModel {
	return answerProgressModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(progressSpinnerStyle),
		),
		stopwatch: stopwatch.NewWithInterval(time.Second),
		phase:     application.PhaseRecall,
		work:      work,
	}
}

func (m answerProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.stopwatch.Init(), m.work)
}

func (m answerProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case askPhaseMsg:
		m.phase = application.AskPhase(msg)
		if m.phase == application.PhaseRecall {
			m.spinner.Style = progressSpinnerStyle
		} else {
			m.spinner.Style = progressLiveStyle
		}
		return m, nil
	case askDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		var cmd tea.Cmd
		m.stopwatch, cmd = m.stopwatch.Update(msg)
		return m, cmd
	}
}

func (m answerProgressModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s %s", m.spinner.View(), phaseLabel(m.phase), progressElapsedStyle.Render(m.stopwatch.View()))
}

// withAnswerProgress runs work while the progress line animates on output.
// work reports phase changes through its callback. Without a terminal the
// work runs plainly and phase reports are dropped.
func withAnswerProgress(ctx context.Context, output io.Writer, work func(context.Context, application.AskObserver) error) error {
	if !isTerminal(output) {
		return work(ctx, nil)
	}

	var program *tea.Program
	workCmd := func() tea.Msg {
		return askDoneMsg{err: work(ctx, func(phase application.AskPhase) {
			program.Send(askPhaseMsg(phase))
		})}
	}

	program = tea.NewProgram(
		newAnswerProgressModel(workCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := program.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(answerProgressModel)
	if !ok {
		return fmt.Errorf("unexpected final progress model type %T", finalModel)
	}

	return result.err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
