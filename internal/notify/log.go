package notify

import (
	"context"
	"log/slog"
)

// LogNotifier renders mail and logs it instead of sending. Used when no SMTP
// relay is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendDonationRequest(ctx context.Context, msg DonationRequest) error {
	m, err := RenderDonationRequest(msg)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "mail not sent (no smtp relay)",
		"to", m.To,
		"subject", m.Subject,
		"donation_id", msg.DonationID,
		"confirm_url", msg.ConfirmURL,
	)
	return nil
}

func (n *LogNotifier) SendDoneeVerified(ctx context.Context, msg DoneeVerification) error {
	m, err := RenderDoneeVerified(msg)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "mail not sent (no smtp relay)", "to", m.To, "subject", m.Subject)
	return nil
}

func (n *LogNotifier) SendDoneeRejected(ctx context.Context, msg DoneeRejection) error {
	m, err := RenderDoneeRejected(msg)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "mail not sent (no smtp relay)", "to", m.To, "subject", m.Subject, "reason", msg.Reason)
	return nil
}
