package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// Probe resolves direct media URLs and local files with ffprobe. For local
// files, fields ffprobe left empty are read from the file's tags.
type Probe struct {
	path    string
	timeout time.Duration
	run     func(ctx context.Context, url string) ([]byte, error)
}

// NewProbe creates the strategy. An empty path uses ffprobe from PATH.
func NewProbe(path string, timeout time.Duration) *Probe {
	if path == "" {
		path = "ffprobe"
	}
	p := &Probe{path: path, timeout: timeout}
	p.run = p.exec
	return p
}

func (p *Probe) Name() string { return "ffprobe" }

func (p *Probe) Resolve(ctx context.Context, url string) (Info, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	var (
		info  Info
		timed bool
		perr  error
	)
	out, err := p.run(ctx, url)
	if err == nil {
		info, timed, perr = parseProbe(out)
	} else {
		perr = err
	}

	if local, ok := localPath(url); ok {
		timed = fillFromFile(local, &info, timed)
	}

	// Sub-second clips have a zero duration but are still valid.
	if info.Title == "" || !timed {
		if perr != nil {
			return Info{}, perr
		}
		return Info{}, errUnknown
	}
	return info, nil
}

func (p *Probe) exec(ctx context.Context, url string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("run ffprobe: %w", err)
	}
	return out, nil
}

type probeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"streams"`
}

// parseProbe extracts what it can and reports whether a duration was
// present. Missing fields are left zero; it only fails on malformed output.
func parseProbe(out []byte) (Info, bool, error) {
	var raw probeOutput
	if err := json.Unmarshal(out, &raw); err != nil {
		return Info{}, false, fmt.Errorf("parse ffprobe output: %w", err)
	}

	tags := lowerKeys(raw.Format.Tags)
	// Containers such as Ogg keep tags on the stream.
	if tags["title"] == "" {
		for _, s := range raw.Streams {
			for k, v := range lowerKeys(s.Tags) {
				if _, ok := tags[k]; !ok {
					tags[k] = v
				}
			}
		}
	}

	info := Info{Title: strings.TrimSpace(tags["title"])}
	if d, err := parseSeconds(raw.Format.Duration); err == nil {
		info.Duration = d
		return info, true, nil
	}
	for _, s := range raw.Streams {
		if d, err := parseSeconds(s.Duration); err == nil {
			info.Duration = d
			return info, true, nil
		}
	}
	return info, false, nil
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// localPath returns the filesystem path for file:// URLs and bare paths
// that exist on disk.
func localPath(url string) (string, bool) {
	path := url
	if strings.HasPrefix(path, "file://") {
		path = strings.TrimPrefix(path, "file://")
	} else if strings.Contains(path, "://") {
		return "", false
	}
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return "", false
	}
	return path, true
}

// fillFromFile fills the title and, unless timed, the duration from the
// file itself. It returns whether a duration is now known.
func fillFromFile(path string, info *Info, timed bool) bool {
	if info.Title == "" {
		info.Title = readTitle(path)
	}
	if !timed {
		if props, err := taglib.ReadProperties(path); err == nil {
			info.Duration = props.Length.Truncate(time.Second)
			timed = true
		}
	}
	return timed
}

func readTitle(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err == nil && m.Title() != "" {
		return strings.TrimSpace(m.Title())
	}

	// dhowden/tag can't parse some files (e.g., ffmpeg-created M4A)
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return ""
	}
	if v := tags[taglib.Title]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}
