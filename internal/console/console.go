// Package console is the operator's terminal UI: the active queue, the
// coordinator state and a command line.
package console

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/UTD-JLA/karaoke-bot/internal/app"
	"github.com/UTD-JLA/karaoke-bot/internal/errmsg"
	"github.com/UTD-JLA/karaoke-bot/internal/playback"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const refreshInterval = time.Second

// Stepper runs a single playback tick.
type Stepper interface {
	Tick(ctx context.Context) error
}

type tickMsg time.Time

// eventMsg is sent when the coordinator emitted any event.
type eventMsg struct{}

type refreshedMsg struct {
	queue    queue.Queue
	songs    []queue.Song
	snapshot playback.Snapshot
	err      error
}

// Model is the console bubbletea model.
type Model struct {
	svc     *app.Service
	actor   app.Actor
	stepper Stepper
	sub     *playback.Subscription

	input    textinput.Model
	queue    queue.Queue
	songs    []queue.Song
	snapshot playback.Snapshot
	showAll  bool

	status    string
	statusErr bool

	width  int
	height int
}

// New creates the console. sub and stepper may be nil.
func New(svc *app.Service, actor app.Actor, sub *playback.Subscription, stepper Stepper) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "add <url> [lyrics]"
	in.CharLimit = 512
	in.Focus()

	return Model{
		svc:     svc,
		actor:   actor,
		stepper: stepper,
		sub:     sub,
		input:   in,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh(), tickCmd(), waitForEvent(m.sub))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case tickMsg:
		return m, tea.Batch(m.refresh(), tickCmd())

	case eventMsg:
		return m, tea.Batch(m.refresh(), waitForEvent(m.sub))

	case refreshedMsg:
		m.snapshot = msg.snapshot
		if msg.err != nil {
			m.queue = queue.Queue{}
			m.songs = nil
			if msg.snapshot.Active != "" {
				m.setStatus(errmsg.Format(errmsg.OpQueueLoad, msg.err), true)
			}
			return m, nil
		}
		m.queue = msg.queue
		m.songs = msg.songs
		return m, nil

	case ResultMsg:
		if msg.Err != nil {
			m.setStatus(msg.Err.Error(), true)
		} else {
			m.setStatus(msg.Text, false)
		}
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()

	c, err := Parse(line)
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}

	switch c.Kind {
	case KindQuit:
		return m, tea.Quit
	case KindAll:
		m.showAll = !m.showAll
		if m.showAll {
			m.setStatus("Showing every song", false)
		} else {
			m.setStatus("Showing upcoming songs", false)
		}
		return m, m.refresh()
	}
	return m, m.run(c)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m Model) refresh() tea.Cmd {
	svc, all := m.svc, m.showAll
	return func() tea.Msg {
		ctx := context.Background()
		snap := svc.NowPlaying()
		q, err := svc.ActiveQueue(ctx)
		if err != nil {
			return refreshedMsg{snapshot: snap, err: err}
		}
		songs, err := svc.ListSongs(ctx, all)
		return refreshedMsg{queue: q, songs: songs, snapshot: snap, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks until the coordinator emits something. It returns nil
// once the subscription is closed.
func waitForEvent(sub *playback.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-sub.StateChanged:
		case <-sub.SongStarted:
		case <-sub.SongFinished:
		case <-sub.PositionChanged:
		case <-sub.Error:
		case <-sub.Done:
			return nil
		}
		return eventMsg{}
	}
}
