package gorr

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Feed configuration defaults.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultWriteTimeout     = 10 * time.Second
)

// TxEvent is a transaction confirmation event pushed by the ledger node.
type TxEvent struct {
	TxID      string `json:"tx_id"`
	Status    string `json:"status"` // "confirmed" | "rejected"
	Reason    string `json:"reason,omitempty"`
	TokenAddr string `json:"token_address,omitempty"`
	PoolAddr  string `json:"pool_address,omitempty"`
}

// Feed is a WebSocket subscription to the node's transaction event
// stream, used to await finality instead of polling.
type Feed struct {
	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once

	// waiters maps tx id to the channel its waiter blocks on.
	waiters   map[string]chan TxEvent
	waitersMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewFeed dials the node's event stream and starts the read loop.
func NewFeed(ctx context.Context, endpoint string) (*Feed, error) {
	dialer := websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	f := &Feed{
		conn:    conn,
		waiters: make(map[string]chan TxEvent),
		done:    make(chan struct{}),
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return f, nil
}

// WaitFor blocks until the node reports the transaction as terminal or
// the context is done.
func (f *Feed) WaitFor(ctx context.Context, txID string) (*TxEvent, error) {
	if f.closed.Load() {
		return nil, fmt.Errorf("feed closed")
	}

	ch := make(chan TxEvent, 1)
	f.waitersMu.Lock()
	f.waiters[txID] = ch
	f.waitersMu.Unlock()

	defer func() {
		f.waitersMu.Lock()
		delete(f.waiters, txID)
		f.waitersMu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return nil, fmt.Errorf("feed closed while waiting for tx %s", txID)
	case event := <-ch:
		return &event, nil
	}
}

// Close shuts down the feed and its goroutines.
func (f *Feed) Close() error {
	f.shutdown()

	f.connMu.Lock()
	err := f.conn.Close()
	f.connMu.Unlock()

	f.wg.Wait()
	return err
}

// shutdown marks the feed closed and wakes every waiter, exactly once.
func (f *Feed) shutdown() {
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		close(f.done)
	})
}

// readLoop dispatches incoming tx events to their waiters. Events
// nobody waits for are dropped.
func (f *Feed) readLoop() {
	defer f.wg.Done()

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			// Connection lost; wake every waiter.
			f.shutdown()
			return
		}

		var event TxEvent
		if err := json.Unmarshal(data, &event); err != nil || event.TxID == "" {
			continue
		}
		if event.Status != "confirmed" && event.Status != "rejected" {
			continue
		}

		f.waitersMu.Lock()
		ch, ok := f.waiters[event.TxID]
		f.waitersMu.Unlock()
		if ok {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// pingLoop keeps the connection alive.
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(DefaultPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			err := f.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(DefaultWriteTimeout))
			f.connMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
