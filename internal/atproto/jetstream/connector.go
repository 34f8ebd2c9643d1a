package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	reconnectDelay = 5 * time.Second
)

// EventHandler processes one decoded Jetstream event
type EventHandler interface {
	HandleEvent(ctx context.Context, event *JetstreamEvent) error
}

// Connector handles the WebSocket connection to Jetstream
type Connector struct {
	handler     EventHandler
	wsURL       string
	collections []string
}

// NewConnector creates a Jetstream connector that delivers events for the
// given collections to handler
func NewConnector(handler EventHandler, wsURL string, collections ...string) *Connector {
	return &Connector{
		handler:     handler,
		wsURL:       wsURL,
		collections: collections,
	}
}

// Start begins consuming events from Jetstream.
// Runs until ctx is cancelled, reconnecting on errors.
func (c *Connector) Start(ctx context.Context) error {
	log.Printf("[JETSTREAM] Starting consumer: %s", c.wsURL)

	for {
		if err := c.connect(ctx); err != nil {
			if ctx.Err() != nil {
				log.Println("[JETSTREAM] Consumer shutting down")
				return ctx.Err()
			}
			log.Printf("[JETSTREAM] Connection error: %v. Retrying in %s...", err, reconnectDelay)
		}

		select {
		case <-ctx.Done():
			log.Println("[JETSTREAM] Consumer shutting down")
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

// subscribeURL adds a wantedCollections parameter per collection
func (c *Connector) subscribeURL() (string, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return "", fmt.Errorf("invalid Jetstream URL: %w", err)
	}
	q := u.Query()
	for _, collection := range c.collections {
		q.Add("wantedCollections", collection)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// connect establishes the WebSocket connection and processes events
func (c *Connector) connect(ctx context.Context) error {
	wsURL, err := c.subscribeURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Jetstream: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			log.Printf("[JETSTREAM] Failed to close WebSocket connection: %v", closeErr)
		}
	}()

	log.Println("[JETSTREAM] Connected")

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		log.Printf("[JETSTREAM] Failed to set read deadline: %v", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	var closeOnce sync.Once
	stop := func() { closeOnce.Do(func() { close(done) }) }
	defer stop()

	// Ping goroutine; also unblocks ReadMessage on shutdown
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					log.Printf("[JETSTREAM] Failed to send ping: %v", err)
					stop()
					return
				}
			case <-ctx.Done():
				_ = conn.SetReadDeadline(time.Now())
				return
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return fmt.Errorf("connection closed by ping failure")
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		var event JetstreamEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("[JETSTREAM] Failed to parse event: %v", err)
			continue
		}

		if err := c.handler.HandleEvent(ctx, &event); err != nil {
			log.Printf("[JETSTREAM] Failed to handle event: %v", err)
		}
	}
}
