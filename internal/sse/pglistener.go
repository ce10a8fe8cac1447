package sse

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGListener relays NOTIFY payloads from the verdict insert trigger to the
// hub, so every replica's subscribers see verdicts recorded by any replica.
type PGListener struct {
	pool    *pgxpool.Pool
	channel string
	hub     *Hub
	logger  *slog.Logger
}

// NewPGListener creates a listener for channel.
func NewPGListener(pool *pgxpool.Pool, channel string, hub *Hub, logger *slog.Logger) *PGListener {
	return &PGListener{pool: pool, channel: channel, hub: hub, logger: logger}
}

// Listen blocks until ctx is cancelled or the connection fails. Run it
// inside server.RunWithRecovery so it reconnects.
func (pl *PGListener) Listen(ctx context.Context) {
	conn, err := pl.pool.Acquire(ctx)
	if err != nil {
		pl.logger.Error("pg-listen: acquire connection failed", "err", err)
		return
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{pl.channel}.Sanitize()); err != nil {
		pl.logger.Error("pg-listen: LISTEN failed", "channel", pl.channel, "err", err)
		return
	}
	pl.logger.Info("pg-listen: subscribed", "channel", pl.channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			pl.logger.Error("pg-listen: notification error", "err", err)
			return
		}
		pl.relay([]byte(n.Payload))
	}
}

func (pl *PGListener) relay(payload []byte) {
	var head struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal(payload, &head); err != nil || head.Mode == "" {
		pl.logger.Warn("pg-listen: malformed payload", "err", err)
		return
	}
	pl.hub.PublishVerdict(head.Mode, payload)
}
