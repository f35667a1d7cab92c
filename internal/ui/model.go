// Package ui is the interactive front end: a transcript view fed by
// pipeline events, with finalized text rendered solid and the volatile
// span dimmed until the engine commits it.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scribelab/duoscribe/internal/pipeline"
)

// Key bindings handled in Update.
const (
	keyQuit    = "q"
	keyCtrlC   = "ctrl+c"
	keyToggle  = " "
	keySwitch  = "tab"
	keyCompare = "c"
)

// EventMsg wraps one pipeline event.
type EventMsg struct {
	Event pipeline.Event
}

// EventsClosedMsg signals the controller's event stream ended.
type EventsClosedMsg struct{}

// ActionDoneMsg reports the outcome of an async start/stop.
type ActionDoneMsg struct {
	Err error
}

// Model is the root bubbletea model.
type Model struct {
	ctrl *pipeline.Controller

	selected  pipeline.Kind
	state     pipeline.State
	finalized string
	volatile  string
	errText   string
	compare   string
	busy      bool
	width     int
	height    int
}

// New creates the UI bound to a controller.
func New(ctrl *pipeline.Controller) Model {
	return Model{
		ctrl:     ctrl,
		selected: ctrl.Selected(),
		state:    pipeline.StateIdle,
	}
}

// Init starts listening for pipeline events.
func (m Model) Init() tea.Cmd {
	return listenCmd(m.ctrl)
}

// listenCmd blocks on the next controller event.
func listenCmd(ctrl *pipeline.Controller) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ctrl.Events()
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Update handles key presses and pipeline events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EventMsg:
		ev := msg.Event
		m.state = ev.State
		m.finalized = ev.Finalized
		m.volatile = ev.Volatile
		if ev.Err != nil {
			m.errText = errorLabel(ev.Err)
		} else if ev.State == pipeline.StatePreparing {
			m.errText = ""
		}
		return m, listenCmd(m.ctrl)

	case EventsClosedMsg:
		return m, tea.Quit

	case ActionDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.errText = errorLabel(msg.Err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyCtrlC:
		if m.ctrl.Recording() {
			ctrl := m.ctrl
			return m, tea.Sequence(
				func() tea.Msg { return ActionDoneMsg{Err: ctrl.Stop(context.Background())} },
				tea.Quit,
			)
		}
		return m, tea.Quit

	case keyToggle:
		if m.busy {
			return m, nil
		}
		m.busy = true
		ctrl := m.ctrl
		if m.ctrl.Recording() {
			return m, func() tea.Msg { return ActionDoneMsg{Err: ctrl.Stop(context.Background())} }
		}
		return m, func() tea.Msg { return ActionDoneMsg{Err: ctrl.Start(context.Background())} }

	case keySwitch:
		if err := m.ctrl.Toggle(); err != nil {
			m.errText = errorLabel(err)
			return m, nil
		}
		m.selected = m.ctrl.Selected()
		m.errText = ""
		return m, nil

	case keyCompare:
		if res, ok := m.ctrl.Compare(); ok {
			m.compare = fmt.Sprintf("pipelines diverge by %.1f%% WER (%d ref words)", res.WER*100, res.RefWords)
		} else {
			m.compare = "record one session with each pipeline to compare"
		}
		return m, nil
	}
	return m, nil
}

// View renders the transcript panel.
func (m Model) View() string {
	var b strings.Builder

	dot := idleDotStyle.Render("●")
	label := "idle"
	if m.state == pipeline.StateRecording {
		dot = recordingDotStyle.Render("●")
		label = "recording"
	} else if m.state != pipeline.StateIdle {
		label = m.state.String()
	}

	b.WriteString(titleStyle.Render("duoscribe"))
	b.WriteString("  ")
	b.WriteString(pipelineStyle.Render(string(m.selected)))
	b.WriteString("  ")
	b.WriteString(dot)
	b.WriteString(" ")
	b.WriteString(stateStyle.Render(label))
	b.WriteString("\n\n")

	if m.finalized != "" {
		b.WriteString(finalTextStyle.Render(m.finalized))
	}
	if m.volatile != "" {
		if m.finalized != "" {
			b.WriteString(" ")
		}
		b.WriteString(volatileTextStyle.Render(m.volatile))
	}
	if m.finalized == "" && m.volatile == "" {
		b.WriteString(volatileTextStyle.Render("(press space to start dictating)"))
	}
	b.WriteString("\n")

	if m.errText != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("error: " + m.errText))
		b.WriteString("\n")
	}
	if m.compare != "" {
		b.WriteString("\n")
		b.WriteString(stateStyle.Render(m.compare))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerKeyStyle.Render("space"))
	b.WriteString(footerDescStyle.Render(" start/stop  "))
	b.WriteString(footerKeyStyle.Render("tab"))
	b.WriteString(footerDescStyle.Render(" switch pipeline  "))
	b.WriteString(footerKeyStyle.Render("c"))
	b.WriteString(footerDescStyle.Render(" compare  "))
	b.WriteString(footerKeyStyle.Render("q"))
	b.WriteString(footerDescStyle.Render(" quit"))
	b.WriteString("\n")

	return b.String()
}

// errorLabel maps failure kinds to the short line shown in the UI.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, pipeline.ErrLocaleUnsupported):
		return "locale not supported"
	case errors.Is(err, pipeline.ErrEngineUnavailable):
		return "recognition engine unavailable"
	case errors.Is(err, pipeline.ErrSessionActive):
		return "a session is already active"
	case errors.Is(err, pipeline.ErrAudioSession):
		return "audio session failed"
	case errors.Is(err, pipeline.ErrAudioStart):
		return "microphone start failed"
	default:
		return err.Error()
	}
}
