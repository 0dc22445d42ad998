// Package globeengine presents the globe: it owns the data preparation worker, turns its
// results into scene layers and runs as an ebiten game.
package globeengine

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"log"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/sudorandom/arc-globe/pkg/config"
	"github.com/sudorandom/arc-globe/pkg/globe"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
	"golang.org/x/image/font/gofont/goregular"
)

// ArcStore persists the most recent arc batch.
type ArcStore interface {
	Save(arcs []globeworker.ArcRecord) error
	Close() error
}

// LegendEntry is one line of the route legend.
type LegendEntry struct {
	Label string
	Color string
}

// Engine is the globe presenter. It runs as an ebiten.Game, posts jobs to the data
// preparation worker and applies the results to the globe's layers.
type Engine struct {
	// Width and Height are the render size used when Headless is set. Otherwise the
	// render size follows the window.
	Width, Height int
	Headless      bool

	Arcs            []globeworker.ArcRecord
	Polygons        []*geojson.Feature
	// Highlight holds ISO alpha-2 codes of countries drawn in the highlight color.
	Highlight       map[string]bool
	Legend          []LegendEntry
	FeedURL         string
	Store           ArcStore
	FrameCaptureDir string

	cfg            config.Config
	rng            *rand.Rand
	globe          *globe.Globe
	defaultColor   color.NRGBA
	background     color.NRGBA
	polygonColor   color.NRGBA
	highlightColor color.NRGBA

	worker      *globeworker.Worker
	feed        *FeedListener
	feedDone    sync.WaitGroup
	batches     chan []globeworker.ArcRecord
	points      []globeworker.RenderPoint
	ringIndices []int

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool

	lastTick     time.Time
	dragging     bool
	dragX, dragY int
	captureNext  bool
	fontSource   *text.GoTextFaceSource
}

// NewEngine validates cfg and builds an engine rendering at width x height until the
// first Layout call.
func NewEngine(cfg config.Config, width, height int) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("loading font: %w", err)
	}

	cam := globe.NewCamera(
		cfg.Globe.InitialPosition.Lat, cfg.Globe.InitialPosition.Lng,
		cfg.Camera.Distance, cfg.Camera.FOV,
		cfg.Camera.MinPolarAngle, cfg.Camera.MaxPolarAngle,
		width, height,
	)
	e := &Engine{
		Width:          width,
		Height:         height,
		cfg:            cfg,
		rng:            rand.New(rand.NewSource(cfg.Seed + 1)),
		globe:          globe.New(cam),
		defaultColor:   config.MustColor(cfg.Globe.DefaultPointColor),
		background:     config.MustColor(cfg.Camera.Background),
		polygonColor:   config.MustColor(cfg.Globe.PolygonColor),
		highlightColor: config.MustColor(cfg.Globe.HighlightColor),
		batches:        make(chan []globeworker.ArcRecord, 1),
		ringIndices:    []int{1},
		fontSource:     s,
	}
	e.configureGlobe()
	return e, nil
}

// Start launches the worker, dispatches the current arcs and, when FeedURL is set,
// starts listening for new batches.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.worker != nil {
		return fmt.Errorf("engine already started")
	}
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.pushOverlay()
	e.worker = globeworker.NewWorker(rand.New(rand.NewSource(e.cfg.Seed)), globeworker.DefaultQueueSize)
	e.worker.Start(e.ctx)
	e.lastTick = time.Now()

	if e.FeedURL != "" {
		e.feed = NewFeedListener(e.FeedURL, e.enqueueBatch)
		e.feedDone.Add(1)
		go func() {
			defer e.feedDone.Done()
			e.feed.Listen(e.ctx)
		}()
	}
	return e.dispatch(e.Arcs)
}

// dispatch posts both jobs for arcs. Each job gets its own copy.
func (e *Engine) dispatch(arcs []globeworker.ArcRecord) error {
	if err := e.worker.Post(globeworker.ProcessData(slices.Clone(arcs))); err != nil {
		return fmt.Errorf("posting %s: %w", globeworker.JobProcessData, err)
	}
	rings := globeworker.RingRange{Min: 0, Max: len(arcs), Count: len(arcs) * 4 / 5}
	if err := e.worker.Post(globeworker.NumbersOfRings(rings)); err != nil {
		return fmt.Errorf("posting %s: %w", globeworker.JobNumbersOfRings, err)
	}
	return nil
}

// enqueueBatch runs on the feed goroutine. The batch is saved before the game loop
// picks it up.
func (e *Engine) enqueueBatch(arcs []globeworker.ArcRecord) {
	if e.Store != nil {
		if err := e.Store.Save(arcs); err != nil {
			log.Printf("[STORE] Failed to save batch: %v", err)
		}
	}
	select {
	case e.batches <- arcs:
	case <-e.ctx.Done():
	}
}

// Close terminates the worker, waits for the feed listener to return and closes the
// store. Responses that arrive afterwards are ignored.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.cancel != nil {
		e.cancel()
	}
	if e.worker != nil {
		e.worker.Terminate()
	}
	e.feedDone.Wait()
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Update applies feed batches and worker results, handles input and advances the
// auto-rotation. It returns ebiten.Termination once the engine's context is done.
func (e *Engine) Update() error {
	if e.ctx != nil && e.ctx.Err() != nil {
		return ebiten.Termination
	}
	now := time.Now()
	dt := now.Sub(e.lastTick).Seconds()
	if dt > 0.25 {
		dt = 0.25
	}
	e.lastTick = now

	e.pollFeed()
	e.pollWorker()
	e.handleInput()

	if e.cfg.Globe.AutoRotate && !e.dragging {
		e.globe.Camera().AutoRotate(dt, e.cfg.Globe.AutoRotateSpeed)
	}
	return nil
}

func (e *Engine) handleInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		e.captureNext = true
	}

	x, y := ebiten.CursorPosition()
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		e.dragging = false
		return
	}
	if !e.dragging {
		e.dragging, e.dragX, e.dragY = true, x, y
		return
	}
	cam := e.globe.Camera()
	degPerPixel := 180 / (math.Pi * cam.DiscRadius())
	cam.Orbit(float64(y-e.dragY)*degPerPixel, -float64(x-e.dragX)*degPerPixel)
	e.dragX, e.dragY = x, y
}

// Draw paints the background, the globe and the legend, then saves the frame if a
// capture was requested.
func (e *Engine) Draw(screen *ebiten.Image) {
	screen.Fill(e.background)
	e.globe.Draw(screen)
	e.drawLegend(screen)

	if e.captureNext {
		e.captureNext = false
		e.captureFrame(screen, "f12", time.Now())
	}
}

// Layout follows the window size, scaled by the device pixel ratio up to the configured
// cap. Headless engines keep their fixed render size.
func (e *Engine) Layout(outsideWidth, outsideHeight int) (int, int) {
	if e.Headless {
		e.globe.Resize(e.Width, e.Height)
		return e.Width, e.Height
	}
	ratio := PixelRatio(ebiten.Monitor().DeviceScaleFactor(), e.cfg.Camera.MaxPixelRatio)
	w, h := int(float64(outsideWidth)*ratio), int(float64(outsideHeight)*ratio)
	e.Width, e.Height = w, h
	e.globe.Resize(w, h)
	return w, h
}

// PixelRatio caps the device scale factor.
func PixelRatio(deviceScale, maxRatio float64) float64 {
	if deviceScale <= 0 {
		deviceScale = 1
	}
	if maxRatio > 0 && deviceScale > maxRatio {
		return maxRatio
	}
	return deviceScale
}
