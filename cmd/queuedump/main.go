// Command queuedump prints every queue and its songs from the configured
// store. Useful after a night to see who sang what.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/UTD-JLA/karaoke-bot/internal/config"
	"github.com/UTD-JLA/karaoke-bot/internal/pgstate"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
	"github.com/UTD-JLA/karaoke-bot/internal/state"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	queues, err := store.ListQueues(ctx)
	if err != nil {
		log.Fatalf("Failed to list queues: %v", err)
	}
	if len(os.Args) > 1 {
		queues = filter(queues, os.Args[1])
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, q := range queues {
		fmt.Fprintf(w, "%s\tcurrent %d\tmax %d\tcreated %s\n",
			q.Name, q.CurrentPosition, q.MaxPosition, humanize.Time(q.CreatedAt))

		songs, err := store.ListSongs(ctx, q.Name, 0, true)
		if err != nil {
			log.Fatalf("Failed to list songs of %s: %v", q.Name, err)
		}
		for _, s := range songs {
			fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", s.Position, s.Title, s.SubmitterID, status(s))
		}
	}
	_ = w.Flush()
}

func open(ctx context.Context, cfg *config.Config) (queue.Store, error) {
	if cfg.StorageDriver() == config.DriverPostgres {
		return pgstate.Connect(ctx, cfg.Storage.DSN)
	}
	if cfg.Storage.Path != "" {
		return state.Open(cfg.Storage.Path)
	}
	return state.OpenDefault()
}

func filter(queues []queue.Queue, name string) []queue.Queue {
	for _, q := range queues {
		if q.Name == name {
			return []queue.Queue{q}
		}
	}
	return nil
}

func status(s queue.Song) string {
	switch {
	case s.Revoked:
		return "revoked"
	case s.CompletedAt != nil:
		return "sung " + humanize.Time(*s.CompletedAt)
	default:
		return "waiting"
	}
}
