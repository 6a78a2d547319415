package notify

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
)

// DryRunNotifier logs each message instead of sending it.
type DryRunNotifier struct {
	logger *zerolog.Logger
}

// NewDryRun returns a DryRunNotifier logging to logger (nil discards).
func NewDryRun(logger *zerolog.Logger) *DryRunNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DryRunNotifier{logger: logger}
}

func (n *DryRunNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	names := make([]string, len(msg.Attachments))
	for i, path := range msg.Attachments {
		names[i] = filepath.Base(path)
	}

	n.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Strs("attachments", names).
		Msg("dry run: message not sent")
	return nil
}
