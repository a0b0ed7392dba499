package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/simaogato/cryptodash-backend/internal/usecase/marketdata"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const wsWriteTimeout = 10 * time.Second

// handleMarketStream upgrades to a WebSocket and pushes the current snapshot,
// then every snapshot the cache publishes until either side goes away.
// Client messages are ignored.
func (s *Server) handleMarketStream(w http.ResponseWriter, r *http.Request) {
	patterns, allowAll := originPatterns(s.origins)
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     patterns,
		InsecureSkipVerify: allowAll,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket handshake failed")
		return
	}
	defer conn.CloseNow()

	updates, unsubscribe := s.market.Subscribe()
	defer unsubscribe()

	ctx := conn.CloseRead(r.Context())

	if err := s.writeSnapshot(ctx, conn, s.market.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := s.writeSnapshot(ctx, conn, snap); err != nil {
				return
			}
		}
	}
}

func (s *Server) writeSnapshot(ctx context.Context, conn *websocket.Conn, snap marketdata.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()

	err := wsjson.Write(ctx, conn, newSnapshotResponse(snap, snap.Assets))
	if err != nil && !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
		s.log.Warn().Err(err).Msg("Failed to push market snapshot")
	}
	return err
}
