package console

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/UTD-JLA/karaoke-bot/internal/app"
	"github.com/UTD-JLA/karaoke-bot/internal/errmsg"
)

// Command kinds understood by the command line.
type Kind int

const (
	KindQueue Kind = iota
	KindAdd
	KindRevoke
	KindJump
	KindAll
	KindPause
	KindResume
	KindStep
	KindQuit
)

// Command is a parsed command line.
type Command struct {
	Kind     Kind
	Arg      string // queue name or URL
	Lyrics   string
	Position int
}

var errUsage = errors.New("commands: queue <name>, add <url> [lyrics], revoke <pos>, jump <pos>, all, pause, resume, step, quit")

// Parse reads a command line.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errUsage
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "queue":
		if len(args) != 1 {
			return Command{}, errors.New("usage: queue <name>")
		}
		return Command{Kind: KindQueue, Arg: args[0]}, nil
	case "add":
		if len(args) < 1 || len(args) > 2 {
			return Command{}, errors.New("usage: add <url> [lyrics]")
		}
		c := Command{Kind: KindAdd, Arg: args[0]}
		if len(args) == 2 {
			c.Lyrics = args[1]
		}
		return c, nil
	case "revoke", "jump":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("usage: %s <pos>", name)
		}
		pos, err := strconv.Atoi(args[0])
		if err != nil || pos < 0 {
			return Command{}, fmt.Errorf("invalid position %q", args[0])
		}
		kind := KindRevoke
		if name == "jump" {
			kind = KindJump
		}
		return Command{Kind: kind, Position: pos}, nil
	case "all":
		return Command{Kind: KindAll}, nil
	case "pause":
		return Command{Kind: KindPause}, nil
	case "resume":
		return Command{Kind: KindResume}, nil
	case "step":
		return Command{Kind: KindStep}, nil
	case "quit", "exit", "q":
		return Command{Kind: KindQuit}, nil
	default:
		return Command{}, errUsage
	}
}

// ResultMsg reports the outcome of a command.
type ResultMsg struct {
	Text string
	Err  error
}

// run executes c against the service. The returned command performs the
// call off the UI goroutine.
func (m Model) run(c Command) tea.Cmd {
	svc, actor, stepper := m.svc, m.actor, m.stepper
	ctx := context.Background()

	switch c.Kind {
	case KindQueue:
		return func() tea.Msg {
			st, err := svc.SetQueue(ctx, actor, c.Arg)
			if err != nil {
				return ResultMsg{Err: errors.New(errmsg.FormatWith(errmsg.OpQueueActivate, c.Arg, err))}
			}
			verb := "Fetched"
			if st.Created {
				verb = "Created"
			}
			return ResultMsg{Text: fmt.Sprintf("%s queue %s (current %d, max %d)",
				verb, st.Queue.Name, st.Queue.CurrentPosition, st.Queue.MaxPosition)}
		}
	case KindAdd:
		return func() tea.Msg {
			song, err := svc.AddSong(ctx, actor, app.SongRequest{URL: c.Arg, LyricsURL: c.Lyrics})
			if err != nil {
				return ResultMsg{Err: errors.New(errmsg.Format(errmsg.OpSongSubmit, err))}
			}
			return ResultMsg{Text: fmt.Sprintf("Queued %q at position %d", song.Title, song.Position)}
		}
	case KindRevoke:
		return func() tea.Msg {
			song, err := svc.RevokeSong(ctx, actor, c.Position)
			if err != nil {
				return ResultMsg{Err: errors.New(errmsg.Format(errmsg.OpSongRevoke, err))}
			}
			return ResultMsg{Text: fmt.Sprintf("Revoked %q", song.Title)}
		}
	case KindJump:
		return func() tea.Msg {
			q, err := svc.JumpTo(ctx, actor, c.Position)
			if err != nil {
				return ResultMsg{Err: errors.New(errmsg.Format(errmsg.OpPlaybackOverride, err))}
			}
			return ResultMsg{Text: fmt.Sprintf("Next up: position %d of %s", q.CurrentPosition, q.Name)}
		}
	case KindPause:
		return func() tea.Msg {
			if err := svc.Pause(actor); err != nil {
				return ResultMsg{Err: errors.New(errmsg.Format(errmsg.OpPlaybackPause, err))}
			}
			return ResultMsg{Text: "Paused"}
		}
	case KindResume:
		return func() tea.Msg {
			if err := svc.Resume(actor); err != nil {
				return ResultMsg{Err: errors.New(errmsg.Format(errmsg.OpPlaybackResume, err))}
			}
			return ResultMsg{Text: "Resumed"}
		}
	case KindStep:
		if stepper == nil {
			return nil
		}
		return func() tea.Msg {
			if err := stepper.Tick(ctx); err != nil {
				return ResultMsg{Err: err}
			}
			return ResultMsg{Text: "Tick done"}
		}
	case KindAll, KindQuit:
	}
	return nil
}
