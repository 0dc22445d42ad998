package globeengine

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sudorandom/arc-globe/pkg/globeworker"
)

// BatchCallback receives each processData batch read from the feed.
type BatchCallback func(arcs []globeworker.ArcRecord)

// FeedListener reads arc batches from a websocket in the worker's message envelope and
// reconnects with exponential backoff.
type FeedListener struct {
	url        string
	onBatch    BatchCallback
	dialer     *websocket.Dialer
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewFeedListener returns a listener for url. It does not connect until Listen.
func NewFeedListener(url string, onBatch BatchCallback) *FeedListener {
	return &FeedListener{
		url:        url,
		onBatch:    onBatch,
		dialer:     websocket.DefaultDialer,
		minBackoff: 1 * time.Second,
		maxBackoff: 60 * time.Second,
	}
}

// Listen blocks until ctx is cancelled.
func (l *FeedListener) Listen(ctx context.Context) {
	backoff := l.minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		log.Printf("[FEED] Connecting to %s", l.url)
		c, _, err := l.dialer.DialContext(ctx, l.url, nil)
		if err != nil {
			log.Printf("[FEED] Dial error: %v. Retrying in %v...", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff *= 2
			if backoff > l.maxBackoff {
				backoff = l.maxBackoff
			}
			continue
		}
		backoff = l.minBackoff
		l.read(ctx, c)
	}
}

func (l *FeedListener) read(ctx context.Context, c *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		if err := c.Close(); err != nil {
			log.Printf("[FEED] Error closing connection: %v", err)
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[FEED] Read error: %v. Reconnecting...", err)
			}
			return
		}
		req, err := globeworker.DecodeRequest(message)
		if err != nil {
			log.Printf("[FEED] Skipping message: %v", err)
			continue
		}
		if req.Kind != globeworker.JobProcessData {
			log.Printf("[FEED] Ignoring %s message", req.Kind)
			continue
		}
		l.onBatch(req.Arcs)
	}
}
