package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// ytdlpTemplate prints title as a JSON string and duration as a quoted
// number so "NA" stays valid JSON when the site exposes no duration.
const ytdlpTemplate = `{"title":%(title)j,"duration":"%(duration)j"}`

// YtDlp resolves video site URLs with yt-dlp.
type YtDlp struct {
	path    string
	timeout time.Duration
	run     func(ctx context.Context, url string) (string, error)
}

// NewYtDlp creates the strategy. An empty path uses yt-dlp from PATH.
func NewYtDlp(path string, timeout time.Duration) *YtDlp {
	y := &YtDlp{path: path, timeout: timeout}
	y.run = y.exec
	return y
}

func (y *YtDlp) Name() string { return "yt-dlp" }

func (y *YtDlp) Resolve(ctx context.Context, url string) (Info, error) {
	ctx, cancel := withTimeout(ctx, y.timeout)
	defer cancel()

	out, err := y.run(ctx, url)
	if err != nil {
		return Info{}, err
	}
	return parseYtDlp(out)
}

func (y *YtDlp) exec(ctx context.Context, url string) (string, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		NoPlaylist().
		IgnoreConfig().
		Print(ytdlpTemplate)
	if y.path != "" {
		cmd.SetExecutable(y.path)
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return "", fmt.Errorf("run yt-dlp: %w", err)
	}
	return res.Stdout, nil
}

func parseYtDlp(out string) (Info, error) {
	// A playlist-free URL prints one line; keep the first non-empty one.
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}

	var raw struct {
		Title    *string `json:"title"`
		Duration string  `json:"duration"`
	}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Info{}, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	if raw.Title == nil || *raw.Title == "" {
		return Info{}, errUnknown
	}

	d, err := parseSeconds(raw.Duration)
	if err != nil {
		return Info{}, err
	}
	return Info{Title: *raw.Title, Duration: d}, nil
}

// parseSeconds reads a decimal seconds value, truncating fractions.
// "NA", "null" and "" mean the tool could not tell.
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "null", "None":
		return 0, errUnknown
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return time.Duration(int64(f)) * time.Second, nil
}
