// Package authbridge maintains the persistent connection to the identity
// oracle and multiplexes token-validation requests over it.
package authbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/globed-io/central/internal/logging"
	"github.com/globed-io/central/internal/metrics"
	"github.com/globed-io/central/internal/wire"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	ackTimeout      = 5 * time.Second
	reconnectDelay  = 15 * time.Second
	requestQueueCap = 128
)

// ErrNotConnected is returned synchronously by Validate when the bridge has
// no live connection to the oracle.
var ErrNotConnected = errors.New("authbridge: not connected to identity oracle")

// ErrQueueFull is returned when the bounded request queue is saturated.
var ErrQueueFull = errors.New("authbridge: validation request queue is full")

// Outcome is the oracle's verdict on one validation request.
type Outcome struct {
	Valid    bool
	UserID   int32
	Username string
	Reason   string
}

type pendingEntry struct {
	accountID int32
	result    chan Outcome
}

type queuedRequest struct {
	accountID int32
	token     string
	result    chan Outcome
}

// Bridge is a persistent, auto-reconnecting client to the identity oracle.
type Bridge struct {
	url      string
	apiToken string

	connected atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn

	fifoMu sync.Mutex
	fifo   []pendingEntry

	requests chan queuedRequest
}

// New constructs a Bridge. Call Run in a background goroutine to start the
// connect/reconnect loop.
func New(url, apiToken string) *Bridge {
	return &Bridge{
		url:      url,
		apiToken: apiToken,
		requests: make(chan queuedRequest, requestQueueCap),
	}
}

// Connected reports whether the bridge currently has a live connection.
// Satisfies health.OracleStatus.
func (b *Bridge) Connected() bool {
	return b.connected.Load()
}

// Validate requests token validation for accountID. Returns ErrNotConnected
// synchronously if the bridge is down, and ErrQueueFull if the bounded
// queue is saturated. Otherwise blocks until the oracle responds or ctx is
// done.
func (b *Bridge) Validate(ctx context.Context, accountID int32, token string) (Outcome, error) {
	if !b.connected.Load() {
		return Outcome{}, ErrNotConnected
	}

	req := queuedRequest{accountID: accountID, token: token, result: make(chan Outcome, 1)}
	select {
	case b.requests <- req:
	default:
		return Outcome{}, ErrQueueFull
	}

	select {
	case out := <-req.result:
		return out, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Run drives the connect/authenticate/read/write cycle until ctx is
// cancelled, reconnecting after reconnectDelay on any failure.
func (b *Bridge) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := b.runOnce(ctx); err != nil {
			logging.Warn(ctx, "authbridge: connection cycle ended", zap.Error(err))
		}
		b.connected.Store(false)
		metrics.OracleConnected.Set(0)

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (b *Bridge) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: ackTimeout}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("dial oracle: %w", err)
	}
	defer conn.Close()

	hello, err := json.Marshal(map[string]string{"token": b.apiToken, "proto": "binary-v1"})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(ackTimeout)); err != nil {
		return err
	}
	_, ackPayload, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("waiting for auth ack: %w", err)
	}
	if err := checkAuthAck(ackPayload); err != nil {
		return err
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	b.connected.Store(true)
	metrics.OracleConnected.Set(1)
	logging.Info(ctx, "authbridge: connected to identity oracle")

	readErr := make(chan error, 1)
	go func() { readErr <- b.readLoop(ctx, conn) }()

	writeErr := make(chan error, 1)
	go func() { writeErr <- b.writeLoop(ctx, conn) }()

	select {
	case err := <-readErr:
		b.failPending()
		return err
	case err := <-writeErr:
		b.failPending()
		return err
	case <-ctx.Done():
		return nil
	}
}

// checkAuthAck only needs to reject a FatalError/Error hello response; the
// oracle's AuthAck body carries no fields this bridge needs to read.
func checkAuthAck(payload []byte) error {
	if len(payload) == 0 {
		return errors.New("authbridge: empty auth ack")
	}
	if payload[0] == 3 || payload[0] == 4 { // FatalError(3) / Error(4)
		return fmt.Errorf("authbridge: oracle rejected hello (kind %d)", payload[0])
	}
	return nil
}

func (b *Bridge) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-b.requests:
			batch := []queuedRequest{req}
			draining := true
			for draining && len(batch) < requestQueueCap {
				select {
				case next := <-b.requests:
					batch = append(batch, next)
				default:
					draining = false
				}
			}

			msg := &wire.ValidateCheckDataMany{Requests: make([]wire.ValidateRequest, len(batch))}
			b.fifoMu.Lock()
			for i, r := range batch {
				msg.Requests[i] = wire.ValidateRequest{AccountID: r.accountID, Token: r.token}
				b.fifo = append(b.fifo, pendingEntry{accountID: r.accountID, result: r.result})
			}
			b.fifoMu.Unlock()

			buf, err := wire.EncodeFrame(msg, 4096)
			if err != nil {
				return fmt.Errorf("encode validate batch: %w", err)
			}
			err = conn.WriteMessage(websocket.BinaryMessage, buf)
			wire.Put(buf)
			if err != nil {
				return fmt.Errorf("write validate batch: %w", err)
			}
		}
	}
}

func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("oracle read: %w", err)
		}

		msg, err := wire.DecodeFrame(payload)
		if err != nil {
			logging.Warn(ctx, "authbridge: dropping malformed oracle frame", zap.Error(err))
			continue
		}

		resp, ok := msg.(*wire.ValidateCheckDataManyResponse)
		if !ok {
			continue
		}

		for _, result := range resp.Results {
			if err := b.deliverOne(result); err != nil {
				return err
			}
			metrics.OracleValidations.WithLabelValues(validationStatus(result.Valid)).Inc()
		}
	}
}

func (b *Bridge) deliverOne(result wire.ValidateResult) error {
	b.fifoMu.Lock()
	if len(b.fifo) == 0 {
		b.fifoMu.Unlock()
		return errors.New("authbridge: response with no matching in-flight request")
	}
	entry := b.fifo[0]
	b.fifo = b.fifo[1:]
	b.fifoMu.Unlock()

	if entry.accountID != result.AccountID {
		return fmt.Errorf("authbridge: FIFO mismatch (expected account %d, got %d)", entry.accountID, result.AccountID)
	}

	entry.result <- Outcome{
		Valid:    result.Valid,
		UserID:   result.UserID,
		Username: result.Username,
		Reason:   result.Reason,
	}
	return nil
}

// failPending unblocks every in-flight waiter with a failure outcome so a
// dropped connection doesn't leave callers hanging until their own
// context's deadline.
func (b *Bridge) failPending() {
	b.fifoMu.Lock()
	pending := b.fifo
	b.fifo = nil
	b.fifoMu.Unlock()

	for _, entry := range pending {
		entry.result <- Outcome{Valid: false, Reason: "oracle disconnected"}
	}
}

func validationStatus(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
