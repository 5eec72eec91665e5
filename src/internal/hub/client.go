// Package hub is the websocket adapter for the interbank clearing hub. It
// owns the connection lifecycle, decodes instruction frames into saga events
// and writes acknowledgements back. All writes go through a single writer
// goroutine; inbound instructions are serialized per transfer id.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coralbank/transfer-settlement/src/internal/domain"
	"github.com/coralbank/transfer-settlement/src/internal/logger"
	"github.com/coralbank/transfer-settlement/src/internal/metrics"
	"github.com/coralbank/transfer-settlement/src/internal/saga"
)

// ErrNotConnected is returned when an outbound message cannot be handed to
// the hub session. The caller's durable state is unaffected.
var ErrNotConnected = errors.New("hub connection not established")

const (
	handshakeTimeout = 10 * time.Second
	outboundBuffer   = 64
)

// Handler consumes decoded hub instructions. A nil ack means no reply is
// owed. Implemented by saga.Engine.
type Handler interface {
	HandleReserve(ctx context.Context, event saga.ReserveEvent) *saga.Ack
	HandleCredit(ctx context.Context, event saga.CreditEvent) *saga.Ack
	HandleDebit(ctx context.Context, event saga.DebitEvent) *saga.Ack
	HandleCommit(ctx context.Context, event saga.CommitEvent)
	HandleRollback(ctx context.Context, event saga.RollbackEvent)
	HandleReject(ctx context.Context, event saga.RejectEvent)
}

// Options configures the hub session identity and reconnect pacing.
type Options struct {
	URL          string
	BankID       string
	BankName     string
	Token        string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

type Client struct {
	opts Options
	exec *serialExecutor

	mu        sync.Mutex
	handler   Handler
	connected bool

	outbound chan Envelope
}

func NewClient(opts Options) *Client {
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = time.Second
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = opts.ReconnectMin
	}
	return &Client{
		opts:     opts,
		exec:     newSerialExecutor(),
		outbound: make(chan Envelope, outboundBuffer),
	}
}

// SetHandler wires the instruction consumer. The client announces intents for
// the saga engine and the engine handles the client's instructions, so one of
// the two is attached after construction. Must be called before Run.
func (c *Client) SetHandler(handler Handler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// AnnounceIntent queues the intent frame for an already persisted transfer.
// It never blocks on the network; with no live session it reports
// ErrNotConnected and leaves retry to reconciliation.
func (c *Client) AnnounceIntent(ctx context.Context, transfer domain.Transfer) error {
	envelope, err := encodeEnvelope(EventIntent, IntentPayload{
		ID:       transfer.ID,
		From:     transfer.FromAccount,
		To:       transfer.ToAccount,
		Amount:   transfer.Amount,
		Currency: transfer.Currency,
	})
	if err != nil {
		return err
	}
	return c.send(envelope)
}

// Run keeps a session against the hub until the context is cancelled,
// redialing with doubling backoff between attempts.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.opts.ReconnectMin

	for {
		established, err := c.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Error("hub session ended", err, logger.Fields{"url": c.opts.URL})
		}
		if established {
			backoff = c.opts.ReconnectMin
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		metrics.HubReconnects.Inc()
		backoff *= 2
		if backoff > c.opts.ReconnectMax {
			backoff = c.opts.ReconnectMax
		}
	}
}

func (c *Client) runSession(ctx context.Context) (bool, error) {
	header := http.Header{}
	header.Set("X-Bank-Id", c.opts.BankID)
	header.Set("X-Bank-Name", c.opts.BankName)
	header.Set("Authorization", "Bearer "+c.opts.Token)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		return false, fmt.Errorf("dial hub: %w", err)
	}
	defer conn.Close()

	logger.Info("hub connected", logger.Fields{
		"url":    c.opts.URL,
		"bankId": c.opts.BankID,
	})

	// ReadMessage only unblocks when the connection closes, so cancellation
	// is propagated by closing it.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	defer close(stop)

	c.setConnected(true)
	defer c.setConnected(false)

	writerDone := make(chan struct{})
	sessionDone := make(chan struct{})
	go c.writePump(conn, sessionDone, writerDone)

	err = c.readLoop(ctx, conn)
	close(sessionDone)
	<-writerDone
	return true, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read hub frame: %w", err)
		}

		var envelope Envelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			logger.Error("hub frame is not an envelope", err, logger.Fields{})
			continue
		}

		c.dispatch(ctx, envelope)
	}
}

// dispatch hands the instruction to the per-id queue so events for one
// transfer apply in arrival order while other transfers proceed.
func (c *Client) dispatch(ctx context.Context, envelope Envelope) {
	payload, err := decodeInstruction(envelope)
	if err != nil {
		logger.Error("hub payload rejected", err, logger.Fields{"type": envelope.Type})
		return
	}

	c.exec.Submit(payload.ID, func() {
		c.handle(ctx, envelope.Type, payload)
	})
}

func (c *Client) handle(ctx context.Context, eventType string, payload InstructionPayload) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		logger.Error("hub instruction dropped, no handler attached", nil, logger.Fields{"type": eventType})
		return
	}

	switch eventType {
	case EventReserve:
		c.reply(EventReserveResult, handler.HandleReserve(ctx, saga.ReserveEvent{
			ID: payload.ID,
		}))
	case EventCredit:
		c.reply(EventCreditResult, handler.HandleCredit(ctx, saga.CreditEvent{
			ID:       payload.ID,
			From:     payload.From,
			To:       payload.To,
			Amount:   payload.Amount,
			Currency: payload.Currency,
		}))
	case EventDebit:
		c.reply(EventDebitResult, handler.HandleDebit(ctx, saga.DebitEvent{
			ID: payload.ID,
		}))
	case EventCommit:
		handler.HandleCommit(ctx, saga.CommitEvent{ID: payload.ID})
	case EventRollback:
		handler.HandleRollback(ctx, saga.RollbackEvent{ID: payload.ID})
	case EventReject:
		handler.HandleReject(ctx, saga.RejectEvent{
			ID:     payload.ID,
			Reason: payload.Reason,
		})
	default:
		logger.Info("hub event ignored", logger.Fields{"type": eventType})
	}
}

func (c *Client) reply(eventType string, ack *saga.Ack) {
	if ack == nil {
		return
	}

	envelope, err := encodeEnvelope(eventType, ResultPayload{
		ID:     ack.ID,
		OK:     ack.OK,
		Reason: ack.Reason,
	})
	if err != nil {
		logger.Error("hub result encode failed", err, logger.Fields{"type": eventType})
		return
	}

	if err := c.send(envelope); err != nil {
		logger.Error("hub result not delivered", err, logger.Fields{
			"type":       eventType,
			"transferId": ack.ID,
		})
	}
}

// sessionConn is the slice of the websocket connection the writer touches.
type sessionConn interface {
	WriteJSON(v any) error
	Close() error
}

// writePump is the only goroutine allowed to write on the connection. A
// failed write closes the connection so the read loop unblocks and the whole
// session tears down into the reconnect path instead of limping on read-only.
func (c *Client) writePump(conn sessionConn, done <-chan struct{}, finished chan<- struct{}) {
	defer close(finished)
	for {
		select {
		case <-done:
			return
		case envelope := <-c.outbound:
			if err := conn.WriteJSON(envelope); err != nil {
				logger.Error("hub write failed", err, logger.Fields{"type": envelope.Type})
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) send(envelope Envelope) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	select {
	case c.outbound <- envelope:
		return nil
	default:
		return fmt.Errorf("%w: outbound queue full", ErrNotConnected)
	}
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.mu.Unlock()
}
