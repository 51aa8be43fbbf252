package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/config"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// MatrixAdapter delivers messages to Matrix rooms through the client-server
// API. The escalation's channel_metadata carries the room ID.
type MatrixAdapter struct {
	client *resty.Client
	logger *zap.Logger
}

var _ secondary.ChannelAdapter = (*MatrixAdapter)(nil)

type matrixMetadata struct {
	RoomID string `json:"room_id"`
}

type matrixMessage struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

func NewMatrixAdapter(cfg config.MatrixConfig, logger *zap.Logger) *MatrixAdapter {
	client := resty.New().
		SetBaseURL(cfg.HomeserverURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.AccessToken)

	return &MatrixAdapter{
		client: client,
		logger: logger,
	}
}

func (a *MatrixAdapter) Name() string {
	return config.ChannelMatrix
}

// GetDeliveryTarget extracts the Matrix room ID from channel metadata.
func (a *MatrixAdapter) GetDeliveryTarget(channelMetadata string) (string, error) {
	if channelMetadata == "" {
		return "", fmt.Errorf("matrix escalation is missing channel metadata")
	}
	var meta matrixMetadata
	if err := json.Unmarshal([]byte(channelMetadata), &meta); err != nil {
		return "", fmt.Errorf("failed to parse matrix channel metadata: %w", err)
	}
	if meta.RoomID == "" {
		return "", fmt.Errorf("matrix channel metadata has no room_id")
	}
	return meta.RoomID, nil
}

func (a *MatrixAdapter) FormatEscalationMessage(username, messageID, supportHandle string) string {
	if supportHandle != "" {
		return fmt.Sprintf("%s: your question has been escalated to %s. Reference: %s", username, supportHandle, messageID)
	}
	return fmt.Sprintf("%s: your question has been escalated to our support team. Reference: %s", username, messageID)
}

func (a *MatrixAdapter) FormatStaffResponse(username, staffAnswer string) string {
	return fmt.Sprintf("%s: %s", username, staffAnswer)
}

// Send posts an m.room.message event. Transaction IDs are fresh UUIDs, so the
// homeserver deduplicates retried sends of the same call but never collapses
// distinct messages.
func (a *MatrixAdapter) Send(ctx context.Context, target, text string) error {
	txnID := uuid.NewString()
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/m.room.message/%s", target, txnID)

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(matrixMessage{MsgType: "m.text", Body: text}).
		Put(path)
	if err != nil {
		return fmt.Errorf("failed to send matrix message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("matrix send returned %d: %s", resp.StatusCode(), resp.String())
	}

	a.logger.Debug("Delivered matrix message",
		zap.String("room_id", target),
		zap.String("txn_id", txnID))
	return nil
}
