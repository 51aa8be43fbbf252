package channels

import (
	"context"
	"fmt"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/config"
	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/secondary"
)

// WebAdapter covers the embedded web widget. Web users poll for their answer,
// so there is no push target and Send is never reached for this channel.
type WebAdapter struct{}

var _ secondary.ChannelAdapter = (*WebAdapter)(nil)

func NewWebAdapter() *WebAdapter {
	return &WebAdapter{}
}

func (a *WebAdapter) Name() string {
	return config.ChannelWeb
}

// GetDeliveryTarget returns an empty target. Empty string means the channel
// has no push delivery.
func (a *WebAdapter) GetDeliveryTarget(channelMetadata string) (string, error) {
	return "", nil
}

func (a *WebAdapter) FormatEscalationMessage(username, messageID, supportHandle string) string {
	return fmt.Sprintf("Your question has been escalated to our support team. Reference: %s", messageID)
}

func (a *WebAdapter) FormatStaffResponse(username, staffAnswer string) string {
	return staffAnswer
}

func (a *WebAdapter) Send(ctx context.Context, target, text string) error {
	return fmt.Errorf("web channel has no push delivery")
}
