package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	_ "github.com/silbinarywolf/preferdiscretegpu"
	"github.com/sudorandom/arc-globe/pkg/config"
	"github.com/sudorandom/arc-globe/pkg/globeengine"
	"github.com/sudorandom/arc-globe/pkg/sources"
	"github.com/sudorandom/arc-globe/pkg/utils"
)

var cli struct {
	Config       string `help:"TOML file overriding the default globe settings." type:"path"`
	Width        int    `default:"1920" help:"Internal rendering width (headless only)."`
	Height       int    `default:"1080" help:"Internal rendering height (headless only)."`
	WindowWidth  int    `default:"1280" help:"Initial window width (non-headless only)."`
	WindowHeight int    `default:"720" help:"Initial window height (non-headless only)."`
	TPS          int    `name:"tps" default:"60" help:"Ticks per second (engine updates)."`
	Seed         int64  `help:"Random seed. Zero keeps the seed from the config."`
	Feed         string `help:"WebSocket URL of an arc feed (ws://...)."`
	Store        string `help:"Badger directory for feed batches. The newest batch is shown on start." type:"path"`
	Polygons     string `default:"${polygons_url}" help:"Country polygons GeoJSON, a local path or an http(s) URL. Empty disables the overlay."`
	CaptureDir   string `help:"Directory for F12 frame captures." type:"path"`
	Headless     bool   `help:"Run without a local window (Xvfb rendering active)."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("globe-viewer"),
		kong.Description("Rotating globe with animated arcs and ring pulses."),
		kong.Vars{"polygons_url": sources.CountryPolygonsURL},
	)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load(cli.Config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cli.Seed != 0 {
		cfg.Seed = cli.Seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := globeengine.NewEngine(cfg, cli.Width, cli.Height)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	engine.Headless = cli.Headless
	engine.FeedURL = cli.Feed
	engine.FrameCaptureDir = cli.CaptureDir

	arcs := sources.Arcs(sources.SampleRoutes, rand.New(rand.NewSource(cfg.Seed+2)))
	for i, r := range sources.SampleRoutes {
		engine.Legend = append(engine.Legend, globeengine.LegendEntry{Label: r.Label(), Color: arcs[i].Color})
	}
	engine.Highlight = sources.RouteCountries(sources.SampleRoutes)

	if cli.Store != "" {
		store, err := utils.OpenArcStore(cli.Store)
		if err != nil {
			log.Fatalf("Failed to open arc store: %v", err)
		}
		engine.Store = store
		latest, ok, err := store.Latest()
		switch {
		case err != nil:
			log.Printf("[STORE] Failed to read latest batch: %v", err)
		case ok && len(latest) > 0:
			log.Printf("[STORE] Restoring %d arcs from the last session", len(latest))
			arcs = latest
			engine.Legend = nil
			engine.Highlight = nil
		}
	}
	engine.Arcs = arcs

	if cli.Polygons != "" {
		polygons, err := sources.LoadCountryPolygons(ctx, cli.Polygons)
		if err != nil {
			log.Printf("[POLYGONS] %v. Rendering without the country overlay.", err)
		} else {
			engine.Polygons = polygons
		}
	}

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	ebiten.SetTPS(cli.TPS)
	if cli.Headless {
		log.Println("Running in HEADLESS mode (Rendering active).")
	} else {
		ebiten.SetWindowSize(cli.WindowWidth, cli.WindowHeight)
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
		ebiten.SetWindowTitle("Arc Globe")
	}
	runErr := ebiten.RunGame(engine)
	if err := engine.Close(); err != nil {
		log.Printf("Error closing engine: %v", err)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}
