package receivers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/ledgerclerk/ledgerclerk/pkg/conductor"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	SignatureHeader = "X-Clerk-Signature"
	TimestampHeader = "X-Clerk-Timestamp"
)

func NewCallbackSender(config clerk.CallbackConfig, bus clerk.MessageBus) CallbackSender {
	return CallbackSender{
		Rec:          make(chan clerk.Message, 1000),
		Path:         config.Path,
		HMACSecret:   config.HMACSecret,
		Bus:          bus,
		MaxRetries:   6,
		InitialDelay: 1 * time.Second,
		MaxDelay:     32 * time.Second,
		client:       &http.Client{Timeout: 30 * time.Second},
		log:          log.With().Str("component", "CallbackSender").Str("path", config.Path).Logger(),
	}
}

type CallbackSender struct {
	// incomming msgs
	Rec          chan clerk.Message
	Path         string
	HMACSecret   string
	Bus          clerk.MessageBus
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	client       *http.Client
	log          zerolog.Logger
}

// Implements clerk.MessageSubscriber
func (s CallbackSender) GetChan() chan clerk.Message {
	return s.Rec
}

// Implements conductor.Service
func (s CallbackSender) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		started <- true
		for {
			select {
			// handle stopping the service
			case <-stop:
				cancel()
				close(stopped)
				return
			case msg, ok := <-s.Rec:
				if !ok {
					<-stop
					cancel()
					close(stopped)
					return
				}
				go s.postWithRetry(ctx, msg)
			}
		}
	}()
	return nil
}

// Reads config and sets up any configured callbacks
func SetupCallbacks(cond *conductor.Conductor, bus clerk.MessageBus, conf clerk.Config) {
	for name, c := range conf.Callbacks {
		s := NewCallbackSender(c, bus)
		cond.Service(fmt.Sprintf("Callback sender for: %s", c.Path), s)
		bus.Register(s, eventTypes("Callback", name, c.Types)...)
	}
}

// generateSha256HMAC signs "timestamp.payload" with secret.
func generateSha256HMAC(timestamp string, payload []byte, secret string) string {
	if secret == "" {
		return ""
	}

	dataToSign := []byte(fmt.Sprintf("%s.%s", timestamp, string(payload)))
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(dataToSign)

	return hex.EncodeToString(h.Sum(nil))
}

// postWithRetry posts msg to the callback URL, backing off exponentially
// until it gets a 2xx or runs out of retries.
func (s CallbackSender) postWithRetry(ctx context.Context, msg clerk.Message) error {
	objJSON, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to serialize message")
		return err
	}

	delay := s.InitialDelay
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		err = s.post(ctx, objJSON)
		if err == nil {
			s.log.Debug().Str("id", msg.ID).Msg("delivered")
			return nil
		}
		s.log.Warn().Err(err).Int("attempt", attempt+1).Int("of", s.MaxRetries+1).Dur("retry", delay).Msg("request failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		// Increase delay exponentially, with a maximum limit
		delay *= 2
		if delay > s.MaxDelay {
			delay = s.MaxDelay
		}
	}

	s.log.Error().Str("id", msg.ID).Msg("request failed after maximum retries")
	if msg.EventType.Type() != "SYS" {
		s.Bus.Send(clerk.SYS_ERR, fmt.Sprintf("CallbackSender: request failed after maximum retries: %s", s.Path))
	}
	return err
}

func (s CallbackSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.HMACSecret != "" {
		timestampStr := fmt.Sprintf("%d", time.Now().Unix())
		signature := generateSha256HMAC(timestampStr, body, s.HMACSecret)
		req.Header.Set(SignatureHeader, fmt.Sprintf("sha256=%s", signature))
		req.Header.Set(TimestampHeader, timestampStr)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback returned %s", resp.Status)
	}
	return nil
}
