package globeengine

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
)

// feedServer accepts websocket clients, sends them messages and then holds the
// connection open until the client goes away.
func feedServer(t *testing.T, messages ...[]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer c.Close()
		for _, m := range messages {
			if err := c.WriteMessage(websocket.TextMessage, m); err != nil {
				return
			}
		}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func mustEncode(t *testing.T, req globeworker.Request) []byte {
	t.Helper()
	b, err := globeworker.EncodeRequest(req)
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	return b
}

func TestFeedListenerDeliversBatches(t *testing.T) {
	batch := sampleArcs()[:2]
	srv := feedServer(t,
		[]byte("not json"),
		[]byte(`{"type":"bogus","data":null}`),
		mustEncode(t, globeworker.NumbersOfRings(globeworker.RingRange{Min: 0, Max: 3, Count: 1})),
		mustEncode(t, globeworker.ProcessData(batch)),
	)

	got := make(chan []globeworker.ArcRecord, 1)
	l := NewFeedListener(wsURL(srv), func(arcs []globeworker.ArcRecord) { got <- arcs })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Listen(ctx)
		close(done)
	}()

	select {
	case arcs := <-got:
		if diff := cmp.Diff(batch, arcs); diff != "" {
			t.Errorf("batch mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestFeedListenerStopsWhileRetrying(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	l := NewFeedListener(url, func([]globeworker.ArcRecord) { t.Error("unexpected batch") })
	l.minBackoff = 10 * time.Millisecond
	l.maxBackoff = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		l.Listen(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after the context expired")
	}
}

func TestEngineFeedReplacesArcs(t *testing.T) {
	batch := []globeworker.ArcRecord{
		{Order: 1, StartLat: 30.0444, StartLng: 31.2357, EndLat: 6.5244, EndLng: 3.3792, ArcAlt: 0.2, Color: "#6366f1"},
		{Order: 2, StartLat: -1.2921, StartLng: 36.8219, EndLat: 14.5995, EndLng: 120.9842, ArcAlt: 0.3, Color: "#06b6d4"},
	}
	srv := feedServer(t, mustEncode(t, globeworker.ProcessData(batch)))

	e := newTestEngine(t)
	store := &memStore{}
	e.Store = store
	e.FeedURL = wsURL(srv)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer e.Close()

	waitFor(t, "feed batch to reach the point layer", func() bool {
		e.pollFeed()
		e.pollWorker()
		return len(e.Arcs) == 2 && len(e.globe.PointsDataValue()) == 4
	})
	if diff := cmp.Diff(batch, e.globe.ArcsDataValue()); diff != "" {
		t.Errorf("arc layer mismatch (-want +got):\n%s", diff)
	}

	saved, _ := store.snapshot()
	if len(saved) != 1 {
		t.Fatalf("store saved %d batches, want 1", len(saved))
	}
	if diff := cmp.Diff(batch, saved[0]); diff != "" {
		t.Errorf("saved batch mismatch (-want +got):\n%s", diff)
	}
}

// slowStore blocks in Save until release is closed.
type slowStore struct {
	entered chan struct{}
	release chan struct{}

	mu       sync.Mutex
	saveDone bool

	// closedAfterSave records whether Close ran after Save finished.
	closedAfterSave bool
}

func (s *slowStore) Save([]globeworker.ArcRecord) error {
	close(s.entered)
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveDone = true
	return nil
}

func (s *slowStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closedAfterSave = s.saveDone
	return nil
}

func TestCloseWaitsForFeedSave(t *testing.T) {
	srv := feedServer(t, mustEncode(t, globeworker.ProcessData(sampleArcs()[:1])))

	e := newTestEngine(t)
	store := &slowStore{entered: make(chan struct{}), release: make(chan struct{})}
	e.Store = store
	e.FeedURL = wsURL(srv)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the feed batch to be saved")
	}

	closed := make(chan error, 1)
	go func() { closed <- e.Close() }()
	select {
	case <-closed:
		t.Fatal("Close returned while a save was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after the save finished")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if !store.closedAfterSave {
		t.Error("store closed before the in-flight save finished")
	}
}

func TestWritePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})

	path := capturePath(filepath.Join(t.TempDir(), "frames"), "f12", time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))
	if !strings.HasSuffix(path, "globe-20240501-123000.000-f12.png") {
		t.Errorf("capturePath() = %s", path)
	}
	if err := writePNG(path, img); err != nil {
		t.Fatalf("writePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open capture: %v", err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode capture: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
	if r, _, _, _ := decoded.At(1, 1).RGBA(); r != 0xffff {
		t.Errorf("pixel (1,1) red = %x, want ffff", r)
	}
}
