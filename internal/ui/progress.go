package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lockplane/idxmaint/internal/executor"
)

// recentLines is how many finished attempts the view keeps on screen
const recentLines = 8

type eventMsg executor.Event

type doneMsg struct{}

// ProgressModel is the bubbletea model for a running maintenance queue
type ProgressModel struct {
	title   string
	total   int
	done    int
	ok      int
	failed  int
	current string
	recent  []string

	started    time.Time
	cancel     context.CancelFunc
	cancelling bool
	finished   bool

	spinner spinner.Model
	bar     progress.Model
}

// NewProgressModel creates the model. cancel is called on ctrl+c; the queue
// stops at the next plan boundary.
func NewProgressModel(title string, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{
		title:   title,
		started: time.Now(),
		cancel:  cancel,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(infoStyle),
		),
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.cancelling {
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-10, 60))
		return m, nil

	case eventMsg:
		m.apply(executor.Event(msg))
		return m, nil

	case doneMsg:
		m.finished = true
		m.current = ""
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *ProgressModel) apply(e executor.Event) {
	name := e.Plan.Key.String()

	switch {
	case e.State == executor.StatePending:
		m.total = e.Total

	case e.State == executor.StateRunning:
		if e.Secondary {
			m.current = "refreshing statistics on " + name
		} else {
			m.current = fmt.Sprintf("%s %s", e.Plan.Action, name)
		}

	case e.State.Terminal() && e.Result != nil:
		if !e.Secondary {
			m.done++
			if e.Result.Succeeded {
				m.ok++
			} else {
				m.failed++
			}
		}
		m.recent = append(m.recent, finishedLine(e))
		if len(m.recent) > recentLines {
			m.recent = m.recent[len(m.recent)-recentLines:]
		}
	}
}

func finishedLine(e executor.Event) string {
	r := e.Result
	text := fmt.Sprintf("%s %s (%s, %s)", r.Action, r.Key, r.Mode,
		(time.Duration(r.DurationMillis) * time.Millisecond).String())
	if r.Succeeded {
		return Success(text)
	}
	return Error(text + ": " + r.ErrorMessage)
}

func (m ProgressModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(Header(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString(fmt.Sprintf("  %d/%d", m.done, m.total))
	b.WriteString("\n")

	switch {
	case m.finished:
		b.WriteString(Label("done"))
	case m.cancelling:
		b.WriteString(Warning("cancelling after the current command"))
	case m.current != "":
		b.WriteString(m.spinner.View() + " " + m.current)
	default:
		b.WriteString(m.spinner.View() + " " + Label("loading fragmentation stats"))
	}
	b.WriteString("\n")

	b.WriteString(Label(fmt.Sprintf("succeeded %d  failed %d  elapsed %s",
		m.ok, m.failed, time.Since(m.started).Round(time.Second))))
	b.WriteString("\n")

	for _, line := range m.recent {
		b.WriteString("\n" + line)
	}
	b.WriteString("\n")

	return b.String()
}

// Progress drives a ProgressModel from executor events. It implements
// executor.Observer.
type Progress struct {
	program *tea.Program
	done    chan struct{}
	err     error
}

// StartProgress runs the progress view in the background, drawing to out
func StartProgress(out io.Writer, title string, cancel context.CancelFunc) *Progress {
	p := &Progress{
		program: tea.NewProgram(NewProgressModel(title, cancel), tea.WithOutput(out)),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		_, p.err = p.program.Run()
	}()
	return p
}

func (p *Progress) Observe(e executor.Event) {
	p.program.Send(eventMsg(e))
}

// Stop renders the final frame and waits for the view to exit
func (p *Progress) Stop() error {
	p.program.Send(doneMsg{})
	<-p.done
	return p.err
}

var _ executor.Observer = (*Progress)(nil)
