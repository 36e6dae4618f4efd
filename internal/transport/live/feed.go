// Package live streams a small status frame to websocket observers after
// every completed simulation tick. Read-only: observers never reach world
// state, they only see frames published by the core loop.
package live

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type StatusFrame struct {
	Type string `json:"type"`
	Tick uint64 `json:"tick"`
	Time string `json:"time"`
}

type Feed struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewFeed(logger *log.Logger) *Feed {
	return &Feed{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		subs: make(map[chan []byte]struct{}),
	}
}

// Publish fans one frame out to every subscriber. Called from the core loop
// goroutine, so it must never block: a slow subscriber has its oldest frame
// dropped instead.
func (f *Feed) Publish(tick uint64) {
	frame := StatusFrame{
		Type: "TICK",
		Tick: tick,
		Time: time.Now().UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		sendLatest(ch, b)
	}
}

func (f *Feed) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := f.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, 8)
		f.subscribe(out)
		defer f.unsubscribe(out)

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop only detects the peer going away.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		close(done)
	}
}

func (f *Feed) subscribe(ch chan []byte) {
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
}

func (f *Feed) unsubscribe(ch chan []byte) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

// SubscriberCount is exposed for tests and metrics.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
