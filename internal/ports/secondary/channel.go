package secondary

import "context"

// ChannelAdapter is the per-channel capability contract consumed by the
// delivery service. Implementations translate the opaque channel_metadata
// payload into a delivery target and produce the user-facing notification
// copy. Both methods are pure.
type ChannelAdapter interface {
	// Name returns the channel discriminator this adapter serves.
	Name() string

	// GetDeliveryTarget extracts where to send a notification from the
	// escalation's channel metadata. Returns empty string for channels
	// without push delivery (web), in which case no send is attempted.
	GetDeliveryTarget(channelMetadata string) (string, error)

	// FormatEscalationMessage produces the notification text telling the
	// user their question was escalated to staff.
	FormatEscalationMessage(username, messageID, supportHandle string) string

	// FormatStaffResponse produces the notification text carrying the staff
	// answer back to the user.
	FormatStaffResponse(username, staffAnswer string) string

	// Send pushes text to the resolved target over the channel's transport.
	Send(ctx context.Context, target, text string) error
}

// ChannelRegistry resolves channel discriminators to their adapters.
type ChannelRegistry interface {
	// Resolve returns the adapter serving a channel, or an error for an
	// unregistered channel.
	Resolve(channel string) (ChannelAdapter, error)

	// Known reports whether a channel has a registered adapter.
	Known(channel string) bool
}
