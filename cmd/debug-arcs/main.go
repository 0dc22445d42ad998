package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
	"github.com/sudorandom/arc-globe/pkg/sources"
	"github.com/sudorandom/arc-globe/pkg/utils"
)

type CLI struct {
	Seed int64 `default:"1" help:"Seed for sample arc colors and ring sampling."`

	Points  PointsCmd  `cmd:"" help:"Resolve arcs to render points and print the data message."`
	Rings   RingsCmd   `cmd:"" help:"Sample ring indices and print the rings messages."`
	Serve   ServeCmd   `cmd:"" help:"Serve sample arc batches over a websocket feed."`
	History HistoryCmd `cmd:"" help:"Print the arc batches saved in an arc store."`
}

type PointsCmd struct {
	Input string `arg:"" optional:"" type:"existingfile" help:"JSON array of arc records. Defaults to the sample routes."`
}

func (c *PointsCmd) Run(cli *CLI) error {
	arcs, err := loadArcs(c.Input, cli.Seed)
	if err != nil {
		return err
	}
	return runJobs(cli.Seed, globeworker.ProcessData(arcs))
}

// loadArcs reads arc records from path, or builds the sample arcs when path is empty.
func loadArcs(path string, seed int64) ([]globeworker.ArcRecord, error) {
	if path == "" {
		return sources.Arcs(sources.SampleRoutes, rand.New(rand.NewSource(seed))), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var arcs []globeworker.ArcRecord
	if err := json.Unmarshal(data, &arcs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return arcs, nil
}

type RingsCmd struct {
	Min    int `default:"0" help:"Lower bound, inclusive."`
	Max    int `default:"15" help:"Upper bound, exclusive."`
	Count  int `default:"12" help:"Number of distinct indices."`
	Repeat int `default:"1" help:"Number of samples to draw."`
}

func (c *RingsCmd) Run(cli *CLI) error {
	reqs, err := c.requests()
	if err != nil {
		return err
	}
	return runJobs(cli.Seed, reqs...)
}

func (c *RingsCmd) requests() ([]globeworker.Request, error) {
	if c.Repeat < 0 {
		return nil, fmt.Errorf("--repeat must not be negative, got %d", c.Repeat)
	}
	reqs := make([]globeworker.Request, c.Repeat)
	for i := range reqs {
		reqs[i] = globeworker.NumbersOfRings(globeworker.RingRange{Min: c.Min, Max: c.Max, Count: c.Count})
	}
	return reqs, nil
}

type HistoryCmd struct {
	Store string `arg:"" type:"existingdir" help:"Arc store directory written by globe-viewer --store."`
}

func (c *HistoryCmd) Run() error {
	store, err := utils.OpenArcStore(c.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[STORE] Error closing arc store: %v", err)
		}
	}()
	return printHistory(os.Stdout, store)
}

type historyLine struct {
	Saved time.Time               `json:"saved"`
	Arcs  []globeworker.ArcRecord `json:"arcs"`
}

// printHistory writes every saved batch as a JSON line, oldest first.
func printHistory(w io.Writer, store *utils.ArcStore) error {
	enc := json.NewEncoder(w)
	return store.History(func(saved time.Time, arcs []globeworker.ArcRecord) error {
		return enc.Encode(historyLine{Saved: saved, Arcs: arcs})
	})
}

// runJobs runs reqs through a worker and prints each response as a JSON line.
func runJobs(seed int64, reqs ...globeworker.Request) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := globeworker.NewWorker(rand.New(rand.NewSource(seed)), len(reqs))
	w.Start(ctx)
	defer w.Terminate()

	for _, req := range reqs {
		if err := w.Post(req); err != nil {
			return err
		}
	}
	for range reqs {
		select {
		case resp := <-w.Responses():
			out, err := globeworker.EncodeResponse(resp)
			if err != nil {
				log.Printf("[WORKER] %s job failed: %v", resp.Kind, err)
				continue
			}
			fmt.Println(string(out))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("debug-arcs"),
		kong.Description("Inspect the data preparation worker and feed protocol."),
	)
	if err := kctx.Run(&cli); err != nil {
		log.Fatalf("%s failed: %v", kctx.Command(), err)
	}
}
