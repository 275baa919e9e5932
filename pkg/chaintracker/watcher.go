package chaintracker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFallback = 2 * time.Minute
	reconnectDelay  = 5 * time.Second
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
)

// Change tells listeners that program accounts may have changed.
type Change struct {
	Slot     uint64 `json:"slot"`     // slot of the notification, 0 for fallback
	Fallback bool   `json:"fallback"` // no notification arrived in time
}

type changeSubscription struct {
	channel  chan<- Change
	blocking bool
}

/*
 * ProgramWatcher tracks changes to accounts owned by the program.
 * It notifies listeners each time the node reports a changed account.
 * It receives programNotification messages over a websocket subscription.
 * If it doesn't receive notifications for a while, it signals anyway so
 * listeners fall back to polling.
 */
type ProgramWatcher struct {
	wsURL      string
	program    clerk.Address
	commitment string
	fallback   time.Duration
	reconnect  time.Duration
	notify     chan uint64
	listeners  []changeSubscription
	mu         sync.Mutex
	log        zerolog.Logger
}

func NewProgramWatcher(wsURL string, program clerk.Address, commitment string, fallback time.Duration) *ProgramWatcher {
	if fallback <= 0 {
		fallback = DefaultFallback
	}
	if commitment == "" {
		commitment = "confirmed"
	}
	return &ProgramWatcher{
		wsURL:      wsURL,
		program:    program,
		commitment: commitment,
		fallback:   fallback,
		reconnect:  reconnectDelay,
		notify:     make(chan uint64, 100),
		log:        log.With().Str("component", "ProgramWatcher").Logger(),
	}
}

func (w *ProgramWatcher) Subscribe(ch chan<- Change, blocking bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, changeSubscription{ch, blocking})
}

// Implements conductor.Service
func (w *ProgramWatcher) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		if w.wsURL != "" {
			go w.subscribeLoop(ctx)
		} else {
			w.log.Info().Msg("no websocket URL, polling only")
		}
		started <- true
		for {
			select {
			case <-stop:
				cancel()
				stopped <- true
				return
			case slot := <-w.notify:
				w.sendEvent(Change{Slot: slot})
			case <-time.After(w.fallback):
				w.log.Debug().Dur("after", w.fallback).Msg("no change notification, falling back to polling")
				w.sendEvent(Change{Fallback: true})
			}
		}
	}()
	return nil
}

func (w *ProgramWatcher) sendEvent(e Change) {
	w.mu.Lock()
	listeners := append([]changeSubscription(nil), w.listeners...)
	w.mu.Unlock()
	for _, ch := range listeners {
		if ch.blocking {
			ch.channel <- e
		} else {
			// non-blocking send.
			select {
			case ch.channel <- e:
			default:
			}
		}
	}
}

// subscribeLoop keeps a programSubscribe subscription open until ctx ends.
func (w *ProgramWatcher) subscribeLoop(ctx context.Context) {
	for {
		err := w.subscribe(ctx)
		if ctx.Err() != nil {
			return
		}
		w.log.Warn().Err(err).Dur("retry", w.reconnect).Msg("subscription lost")
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.reconnect):
		}
	}
}

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wsMessage struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Params struct {
		Result struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
		} `json:"result"`
		Subscription uint64 `json:"subscription"`
	} `json:"params"`
}

func (w *ProgramWatcher) subscribe(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	// helpers live as long as this connection
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	// unblock ReadMessage on shutdown
	go func() {
		<-connCtx.Done()
		conn.Close()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "programSubscribe",
		Params:  []any{w.program.String(), map[string]any{"encoding": "base64", "commitment": w.commitment}},
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(req); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go w.pingLoop(connCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			w.log.Warn().Err(err).Msg("ignoring malformed message")
			continue
		}
		switch {
		case msg.Error != nil:
			return clerk.NewErr(clerk.NotAvailable, "programSubscribe: %d %s", msg.Error.Code, msg.Error.Message)
		case msg.ID == req.ID:
			w.log.Info().Str("program", w.program.String()).RawJSON("subscription", msg.Result).Msg("subscribed")
		case msg.Method == "programNotification":
			select {
			case w.notify <- msg.Params.Result.Context.Slot:
			default:
				// a wake-up is already queued
			}
		}
	}
}

func (w *ProgramWatcher) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
