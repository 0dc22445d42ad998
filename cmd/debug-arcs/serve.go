package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
	"github.com/sudorandom/arc-globe/pkg/sources"
)

type ServeCmd struct {
	Addr     string        `default:":8765" help:"Listen address."`
	Interval time.Duration `default:"10s" help:"Time between batches."`
	MinArcs  int           `default:"3" help:"Smallest batch size."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := newHub()
	srv := &http.Server{Addr: c.Addr, Handler: h}
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Printf("[SERVE] Shutdown error: %v", err)
		}
	}()

	rng := rand.New(rand.NewSource(cli.Seed))
	go func() {
		ticker := time.NewTicker(c.Interval)
		defer ticker.Stop()
		for {
			batch := randomBatch(rng, c.MinArcs)
			msg, err := globeworker.EncodeRequest(globeworker.ProcessData(batch))
			if err != nil {
				log.Printf("[SERVE] Encode error: %v", err)
			} else {
				n := h.broadcast(msg)
				log.Printf("[SERVE] Sent %d arcs to %d clients", len(batch), n)
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("[SERVE] Listening on %s", c.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// randomBatch picks between minArcs and all of the sample routes in random order.
func randomBatch(rng *rand.Rand, minArcs int) []globeworker.ArcRecord {
	total := len(sources.SampleRoutes)
	if minArcs < 1 {
		minArcs = 1
	}
	if minArcs > total {
		minArcs = total
	}
	n := minArcs + rng.Intn(total-minArcs+1)
	routes := make([]sources.Route, n)
	for i, idx := range rng.Perm(total)[:n] {
		routes[i] = sources.SampleRoutes[idx]
	}
	return sources.Arcs(routes, rng)
}

// hub keeps the connected feed clients and sends each new client the last batch.
type hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	last     []byte
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]bool)}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVE] Upgrade error: %v", err)
		return
	}
	h.mu.Lock()
	h.clients[c] = true
	if h.last != nil {
		h.send(c, h.last)
	}
	h.mu.Unlock()
	log.Printf("[SERVE] Client connected: %s", r.RemoteAddr)

	// Drain until the client goes away.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	h.drop(c)
	h.mu.Unlock()
}

// broadcast sends msg to every client and returns how many received it.
func (h *hub) broadcast(msg []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = msg
	n := 0
	for c := range h.clients {
		if h.send(c, msg) {
			n++
		}
	}
	return n
}

// send must be called with mu held.
func (h *hub) send(c *websocket.Conn, msg []byte) bool {
	if err := c.SetWriteDeadline(time.Now().Add(5 * time.Second)); err == nil {
		if err = c.WriteMessage(websocket.TextMessage, msg); err == nil {
			return true
		}
	}
	h.drop(c)
	return false
}

func (h *hub) drop(c *websocket.Conn) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if err := c.Close(); err != nil {
		log.Printf("[SERVE] Error closing client: %v", err)
	}
}
