package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes mesh events to an slog.Logger. Useful in
// development to watch signal traffic on the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter over the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("node_id", event.NodeID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}
	if event.PeerAddr != "" {
		attrs = append(attrs, slog.String("peer", event.PeerAddr))
	}

	switch {
	case event.Signal != nil:
		attrs = append(attrs,
			slog.String("signal", event.Signal.Name),
			slog.Int("size", event.Signal.Size),
		)
		if event.Signal.Format != "" {
			attrs = append(attrs, slog.String("format", event.Signal.Format))
		}
	case event.Peer != nil:
		attrs = append(attrs,
			slog.String("peer_addr", event.Peer.Addr),
			slog.String("new_status", event.Peer.NewStatus),
		)
		if event.Peer.OldStatus != "" {
			attrs = append(attrs, slog.String("old_status", event.Peer.OldStatus))
		}
		if event.Peer.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Peer.Reason))
		}
	case event.Admission != nil:
		attrs = append(attrs,
			slog.String("signal", event.Admission.Signal),
			slog.Bool("accepted", event.Admission.Accepted),
		)
	case event.Error != nil:
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "mesh", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
