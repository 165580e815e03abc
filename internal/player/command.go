package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

// URLPlaceholder is replaced by the song URL in a command template.
const URLPlaceholder = "{url}"

// DefaultCommand plays the song full screen and exits at the end.
var DefaultCommand = []string{"mpv", "--fs", "--no-terminal", URLPlaceholder}

// Command launches players from an argv template.
type Command struct {
	argv []string
}

// NewCommand creates a launcher. Every URLPlaceholder in argv is replaced by
// the song URL; without a placeholder the URL is appended.
func NewCommand(argv []string) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("empty player command")
	}
	return &Command{argv: append([]string(nil), argv...)}, nil
}

// Args returns the argv for url.
func (c *Command) Args(url string) []string {
	args := make([]string, 0, len(c.argv)+1)
	replaced := false
	for _, a := range c.argv {
		if strings.Contains(a, URLPlaceholder) {
			a = strings.ReplaceAll(a, URLPlaceholder, url)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, url)
	}
	return args
}

// Launch starts the player. ctx only guards the start: the process outlives
// it, so a caller that stops waiting does not cut the performance short.
func (c *Command) Launch(ctx context.Context, url string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := c.Args(url)
	cmd := exec.Command(args[0], args[1:]...) //nolint:gosec // operator-configured player
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", queue.ErrPlaybackLaunch, args[0], err)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu  sync.Mutex
	err error
}

func (p *process) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

func (p *process) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *process) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *process) Stop() error {
	if !p.Running() {
		return nil
	}
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
