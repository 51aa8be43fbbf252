package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/config"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// Bisq2Adapter delivers messages to users of the Bisq2 desktop app through
// its support API. The HTTP path is always available; when realtime is
// enabled a websocket connection is kept alongside it and used while
// connected, falling back to HTTP whenever the socket degrades.
type Bisq2Adapter struct {
	client          *resty.Client
	logger          *zap.Logger
	realtimeEnabled bool
	wsURL           string

	mu    sync.Mutex
	state TransportState
	conn  *websocket.Conn
}

var _ secondary.ChannelAdapter = (*Bisq2Adapter)(nil)

type bisq2Metadata struct {
	ProfileID string `json:"profile_id"`
}

type bisq2OutboundMessage struct {
	ProfileID string `json:"profileId"`
	Text      string `json:"text"`
}

func NewBisq2Adapter(cfg config.Bisq2Config, logger *zap.Logger) *Bisq2Adapter {
	client := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Bisq2Adapter{
		client:          client,
		logger:          logger,
		realtimeEnabled: cfg.RealtimeEnabled,
		wsURL:           websocketURL(cfg.APIURL),
		state:           TransportDisconnected,
	}
}

func websocketURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}

func (a *Bisq2Adapter) Name() string {
	return config.ChannelBisq2
}

// GetDeliveryTarget extracts the Bisq2 profile ID from channel metadata.
func (a *Bisq2Adapter) GetDeliveryTarget(channelMetadata string) (string, error) {
	if channelMetadata == "" {
		return "", fmt.Errorf("bisq2 escalation is missing channel metadata")
	}
	var meta bisq2Metadata
	if err := json.Unmarshal([]byte(channelMetadata), &meta); err != nil {
		return "", fmt.Errorf("failed to parse bisq2 channel metadata: %w", err)
	}
	if meta.ProfileID == "" {
		return "", fmt.Errorf("bisq2 channel metadata has no profile_id")
	}
	return meta.ProfileID, nil
}

func (a *Bisq2Adapter) FormatEscalationMessage(username, messageID, supportHandle string) string {
	if supportHandle != "" {
		return fmt.Sprintf("Hi %s, your question has been escalated to %s. Reference: %s", username, supportHandle, messageID)
	}
	return fmt.Sprintf("Hi %s, your question has been escalated to our support team. Reference: %s", username, messageID)
}

func (a *Bisq2Adapter) FormatStaffResponse(username, staffAnswer string) string {
	return fmt.Sprintf("Hi %s, support replied: %s", username, staffAnswer)
}

// Send delivers a message to a Bisq2 profile. Prefers the websocket path
// while connected, otherwise posts against the support API.
func (a *Bisq2Adapter) Send(ctx context.Context, target, text string) error {
	if a.realtimeEnabled && a.sendRealtime(target, text) {
		return nil
	}
	return a.sendHTTP(ctx, target, text)
}

func (a *Bisq2Adapter) sendHTTP(ctx context.Context, target, text string) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(bisq2OutboundMessage{ProfileID: target, Text: text}).
		Post("/api/v1/support/messages")
	if err != nil {
		return fmt.Errorf("failed to send bisq2 message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("bisq2 send returned %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// sendRealtime attempts delivery over the websocket. A failure degrades the
// transport and reports false so the caller falls back to HTTP.
func (a *Bisq2Adapter) sendRealtime(target, text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.CanSendRealtime() || a.conn == nil {
		return false
	}
	payload := bisq2OutboundMessage{ProfileID: target, Text: text}
	if err := a.conn.WriteJSON(payload); err != nil {
		a.logger.Warn("Websocket send failed, degrading to HTTP delivery", zap.Error(err))
		a.degradeLocked()
		return false
	}
	return true
}

// Connect dials the websocket and keeps reconnecting until the context is
// cancelled. It returns immediately when realtime is disabled.
func (a *Bisq2Adapter) Connect(ctx context.Context) {
	if !a.realtimeEnabled || a.wsURL == "" {
		return
	}
	go a.connectLoop(ctx)
}

func (a *Bisq2Adapter) connectLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			a.shutdown()
			return
		}
		a.setState(TransportConnecting)

		dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
		conn, _, err := dialer.DialContext(ctx, a.wsURL, nil)
		if err != nil {
			a.logger.Warn("Websocket dial failed", zap.String("url", a.wsURL), zap.Error(err))
			a.setState(TransportDegradedPolling)
			select {
			case <-ctx.Done():
				a.shutdown()
				return
			case <-time.After(30 * time.Second):
			}
			continue
		}

		a.mu.Lock()
		a.conn = conn
		a.mu.Unlock()
		a.setState(TransportConnected)
		a.logger.Info("Websocket connected", zap.String("url", a.wsURL))

		// Drain the read side until the peer closes; writes happen from
		// sendRealtime under the mutex.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		conn.Close()
		a.mu.Lock()
		a.conn = nil
		a.mu.Unlock()
		a.setState(TransportDegradedPolling)
	}
}

func (a *Bisq2Adapter) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.state = TransportDisconnected
}

// State returns the current transport state.
func (a *Bisq2Adapter) State() TransportState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Bisq2Adapter) setState(to TransportState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next, err := a.state.Transition(to)
	if err != nil {
		a.logger.Warn("Ignoring transport transition", zap.Error(err))
		return
	}
	a.state = next
}

func (a *Bisq2Adapter) degradeLocked() {
	if next, err := a.state.Transition(TransportDegradedPolling); err == nil {
		a.state = next
	}
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}
