package globeworker

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestResolveColor(t *testing.T) {
	tests := []struct {
		hex    string
		want   RGB
		wantOK bool
	}{
		{"#fff", RGB{255, 255, 255}, true},
		{"#06b6d4", RGB{6, 182, 212}, true},
		{"06B6D4", RGB{6, 182, 212}, true},
		{"#3b82f6", RGB{59, 130, 246}, true},
		{"abc", RGB{0xaa, 0xbb, 0xcc}, true},
		{"#000000", RGB{0, 0, 0}, true},
		{"", RGB{}, false},
		{"#", RGB{}, false},
		{"#ffff", RGB{}, false},
		{"#ggg", RGB{}, false},
		{"##fff", RGB{}, false},
		{"#06b6d", RGB{}, false},
		{"rgba(255,255,255,0.5)", RGB{}, false},
	}

	for _, tt := range tests {
		got, ok := ResolveColor(tt.hex)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ResolveColor(%q) = (%v, %v); want (%v, %v)", tt.hex, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolvePointsSharedEndpoint(t *testing.T) {
	arcs := []ArcRecord{
		{Order: 1, StartLat: 40.7128, StartLng: -74.006, EndLat: 48.8566, EndLng: 2.3522, Color: "#06b6d4"},
		{Order: 2, StartLat: 40.7128, StartLng: -74.006, EndLat: 35.6895, EndLng: 139.6917, Color: "#3b82f6"},
	}

	points := ResolvePoints(arcs)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d: %+v", len(points), points)
	}
	if points[0].Color == nil || *points[0].Color != (RGB{6, 182, 212}) {
		t.Errorf("first point color = %v; want {6 182 212}", points[0].Color)
	}

	want := [][2]float64{{40.7128, -74.006}, {48.8566, 2.3522}, {35.6895, 139.6917}}
	for i, p := range points {
		if p.Lat != want[i][0] || p.Lng != want[i][1] {
			t.Errorf("point %d = (%f, %f); want (%f, %f)", i, p.Lat, p.Lng, want[i][0], want[i][1])
		}
		if p.Size != 1 {
			t.Errorf("point %d size = %f; want 1", i, p.Size)
		}
	}
	if points[2].Order != 2 {
		t.Errorf("Tokyo point should carry order 2, got %d", points[2].Order)
	}
}

func TestResolvePointsFirstOccurrenceWins(t *testing.T) {
	arcs := []ArcRecord{
		{Order: 1, StartLat: 1, StartLng: 1, EndLat: 2, EndLng: 2, Color: "#111"},
		{Order: 2, StartLat: 2, StartLng: 2, EndLat: 1, EndLng: 1, Color: "#222"},
		{Order: 3, StartLat: 3, StartLng: 3, EndLat: 3, EndLng: 3, Color: "#333"},
	}

	got := ResolvePoints(arcs)
	want := []RenderPoint{
		{Size: 1, Order: 1, Color: &RGB{0x11, 0x11, 0x11}, Lat: 1, Lng: 1},
		{Size: 1, Order: 1, Color: &RGB{0x11, 0x11, 0x11}, Lat: 2, Lng: 2},
		{Size: 1, Order: 3, Color: &RGB{0x33, 0x33, 0x33}, Lat: 3, Lng: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolvePoints mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePointsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for run := 0; run < 50; run++ {
		// Draw coordinates from a tiny pool so collisions are frequent.
		pool := []float64{-10, 0, 10, 20.5}
		var arcs []ArcRecord
		n := rng.Intn(20)
		for i := 0; i < n; i++ {
			arcs = append(arcs, ArcRecord{
				Order:    i,
				StartLat: pool[rng.Intn(len(pool))], StartLng: pool[rng.Intn(len(pool))],
				EndLat: pool[rng.Intn(len(pool))], EndLng: pool[rng.Intn(len(pool))],
				Color: "#abcdef",
			})
		}

		var firstSeen []coordKey
		seen := map[coordKey]bool{}
		for _, a := range arcs {
			for _, k := range []coordKey{{a.StartLat, a.StartLng}, {a.EndLat, a.EndLng}} {
				if !seen[k] {
					seen[k] = true
					firstSeen = append(firstSeen, k)
				}
			}
		}

		points := ResolvePoints(arcs)
		if len(points) != len(firstSeen) {
			t.Fatalf("run %d: got %d points, want %d", run, len(points), len(firstSeen))
		}
		for i, p := range points {
			if (coordKey{p.Lat, p.Lng}) != firstSeen[i] {
				t.Errorf("run %d: point %d = (%f, %f); want %v", run, i, p.Lat, p.Lng, firstSeen[i])
			}
		}
	}
}

func TestResolvePointsMalformedColor(t *testing.T) {
	points := ResolvePoints([]ArcRecord{{Order: 4, StartLat: 1, StartLng: 2, EndLat: 3, EndLng: 4, Color: "purple"}})
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	for _, p := range points {
		if p.Color != nil {
			t.Errorf("expected nil color for malformed hex, got %v", *p.Color)
		}
	}
}

func TestResolvePointsEdgeValues(t *testing.T) {
	if got := ResolvePoints(nil); got == nil || len(got) != 0 {
		t.Errorf("ResolvePoints(nil) = %#v; want empty non-nil slice", got)
	}

	negZero := math.Copysign(0, -1)
	points := ResolvePoints([]ArcRecord{{StartLat: 0, StartLng: 0, EndLat: negZero, EndLng: negZero, Color: "#fff"}})
	if len(points) != 1 {
		t.Errorf("0 and -0 should collapse to one point, got %d", len(points))
	}

	points = ResolvePoints([]ArcRecord{{StartLat: math.NaN(), StartLng: 0, EndLat: 5, EndLng: 5, Color: "#fff"}})
	if len(points) != 1 || points[0].Lat != 5 {
		t.Errorf("NaN endpoint should be dropped, got %+v", points)
	}
}

func TestSampleRingIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for run := 0; run < 200; run++ {
		got, err := SampleRingIndices(rng, RingRange{Min: 0, Max: 15, Count: 12})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		checkSample(t, got, 0, 15, 12)
	}

	tests := []RingRange{
		{Min: 5, Max: 10, Count: 5},
		{Min: -3, Max: 3, Count: 2},
		{Min: 4, Max: 4, Count: 0},
		{Min: 0, Max: 1, Count: 1},
		{Min: 0, Max: 100, Count: 0},
	}
	for _, r := range tests {
		got, err := SampleRingIndices(rng, r)
		if err != nil {
			t.Errorf("SampleRingIndices(%+v) error: %v", r, err)
			continue
		}
		checkSample(t, got, r.Min, r.Max, r.Count)
	}
}

func TestSampleRingIndicesInvalidRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []RingRange{
		{Min: 0, Max: 15, Count: 16},
		{Min: 0, Max: 0, Count: 1},
		{Min: 10, Max: 5, Count: 0},
		{Min: 0, Max: 5, Count: -1},
	}

	for _, r := range tests {
		done := make(chan error, 1)
		go func() {
			_, err := SampleRingIndices(rng, r)
			done <- err
		}()
		select {
		case err := <-done:
			if !errors.Is(err, ErrInvalidRange) {
				t.Errorf("SampleRingIndices(%+v) error = %v; want ErrInvalidRange", r, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("SampleRingIndices(%+v) did not return", r)
		}
	}
}

func TestSampleRingIndicesDeterministic(t *testing.T) {
	r := RingRange{Min: 0, Max: 15, Count: 12}
	a, _ := SampleRingIndices(rand.New(rand.NewSource(42)), r)
	b, _ := SampleRingIndices(rand.New(rand.NewSource(42)), r)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different samples (-a +b):\n%s", diff)
	}
}

func checkSample(t *testing.T, got []int, min, max, count int) {
	t.Helper()
	if len(got) != count {
		t.Errorf("got %d indices, want %d", len(got), count)
	}
	seen := map[int]bool{}
	for _, v := range got {
		if v < min || v >= max {
			t.Errorf("index %d outside [%d, %d)", v, min, max)
		}
		if seen[v] {
			t.Errorf("duplicate index %d in %v", v, got)
		}
		seen[v] = true
	}
}

func TestMessageEnvelope(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"type":"processData","data":[{"order":1,"startLat":40.7128,"startLng":-74.006,"endLat":48.8566,"endLng":2.3522,"arcAlt":0.2,"color":"#06b6d4"}]}`))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Kind != JobProcessData || len(req.Arcs) != 1 || req.Arcs[0].EndLng != 2.3522 || req.Arcs[0].ArcAlt != 0.2 {
		t.Errorf("unexpected request: %+v", req)
	}

	req, err = DecodeRequest([]byte(`{"type":"numbersOfRings","data":{"min":0,"max":15,"count":12}}`))
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if req.Kind != JobNumbersOfRings || req.Rings != (RingRange{Min: 0, Max: 15, Count: 12}) {
		t.Errorf("unexpected request: %+v", req)
	}

	if _, err := DecodeRequest([]byte(`{"type":"explode","data":null}`)); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("expected ErrUnknownMessage, got %v", err)
	}
	if _, err := DecodeRequest([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed envelope")
	}

	raw, err := EncodeResponse(Response{Kind: ResultRings, Rings: []int{3, 1}})
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	if string(raw) != `{"type":"rings","data":[3,1]}` {
		t.Errorf("EncodeResponse(rings) = %s", raw)
	}

	raw, err = EncodeResponse(Response{Kind: ResultPoints, Points: []RenderPoint{{Size: 1, Order: 2, Lat: 1, Lng: 2}}})
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	var msg struct {
		Type string            `json:"type"`
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "data" || len(msg.Data) != 1 || string(msg.Data[0]) != `{"size":1,"order":2,"color":null,"lat":1,"lng":2}` {
		t.Errorf("EncodeResponse(points) = %s", raw)
	}
}

func TestWorkerRoundTrip(t *testing.T) {
	w := NewWorker(rand.New(rand.NewSource(3)), 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Terminate()

	arcs := []ArcRecord{
		{Order: 1, StartLat: 40.7128, StartLng: -74.006, EndLat: 48.8566, EndLng: 2.3522, Color: "#06b6d4"},
		{Order: 2, StartLat: 40.7128, StartLng: -74.006, EndLat: 35.6895, EndLng: 139.6917, Color: "#3b82f6"},
	}
	if err := w.Post(ProcessData(arcs)); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if err := w.Post(NumbersOfRings(RingRange{Min: 0, Max: 2, Count: 1})); err != nil {
		t.Fatalf("Post: %v", err)
	}

	var gotPoints, gotRings bool
	timeout := time.After(2 * time.Second)
	for !gotPoints || !gotRings {
		select {
		case resp := <-w.Responses():
			switch resp.Kind {
			case ResultPoints:
				gotPoints = true
				if len(resp.Points) != 3 {
					t.Errorf("expected 3 points, got %d", len(resp.Points))
				}
			case ResultRings:
				gotRings = true
				if resp.Err != nil || len(resp.Rings) != 1 {
					t.Errorf("unexpected rings response: %+v", resp)
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for worker responses")
		}
	}
}

func TestWorkerInvalidRangeResponse(t *testing.T) {
	w := NewWorker(rand.New(rand.NewSource(3)), 1)
	w.Start(context.Background())
	defer w.Terminate()

	if err := w.Post(NumbersOfRings(RingRange{Min: 0, Max: 2, Count: 5})); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case resp := <-w.Responses():
		if resp.Kind != ResultRings || !errors.Is(resp.Err, ErrInvalidRange) {
			t.Errorf("expected failed rings response, got %+v", resp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker response")
	}
}

func TestWorkerTerminate(t *testing.T) {
	w := NewWorker(rand.New(rand.NewSource(3)), 1)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()
	w.Wait()

	if err := w.Post(ProcessData(nil)); !errors.Is(err, ErrTerminated) {
		t.Errorf("Post after cancel = %v; want ErrTerminated", err)
	}
	w.Terminate()
	w.Terminate()
}

func TestWorkerQueueFull(t *testing.T) {
	// Not started, so nothing drains the queue.
	w := NewWorker(rand.New(rand.NewSource(3)), 1)
	if err := w.Post(ProcessData(nil)); err != nil {
		t.Fatalf("first Post: %v", err)
	}
	if err := w.Post(ProcessData(nil)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Post = %v; want ErrQueueFull", err)
	}
}
