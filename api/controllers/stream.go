package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/api/responses"
	"github.com/mercadero/auction-engine/internal/broadcast"
	"github.com/mercadero/auction-engine/pkg/config"
	"github.com/mercadero/auction-engine/pkg/db/models"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
)

type roomFinder interface {
	FindRoomByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RoomStream upgrades the connection to a websocket and streams the room's
// accepted bids in commit order. Clients that cannot keep up are closed.
func RoomStream(rooms roomFinder, registry *broadcast.Registry, cfg config.StreamConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rooms == nil || registry == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stream unavailable"))
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "roomId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid room id"))
			return
		}

		if _, err := rooms.FindRoomByID(r.Context(), roomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "auction room not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room"))
			return
		}

		conn, err := streamUpgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the error response.
			if logg != nil {
				logg.Warn(logg.WithRoomID(r.Context(), roomID.String()), "websocket upgrade failed")
			}
			return
		}

		observer := registry.Subscribe(roomID)
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithRoomID(ctx, roomID.String())
			logg.Info(ctx, "stream.observer.connected")
		}

		go readUntilClosed(conn, cfg, func() {
			registry.Unsubscribe(observer)
		})

		writeLoop(ctx, conn, observer, cfg, logg)
		registry.Unsubscribe(observer)
		_ = conn.Close()
		if logg != nil {
			logg.Info(ctx, "stream.observer.disconnected")
		}
	}
}

// readUntilClosed drains client frames so control messages are processed and
// a dropped connection is noticed promptly.
func readUntilClosed(conn *websocket.Conn, cfg config.StreamConfig, onClose func()) {
	defer onClose()
	if cfg.MaxMessageLen > 0 {
		conn.SetReadLimit(cfg.MaxMessageLen)
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, observer *broadcast.Observer, cfg config.StreamConfig, logg *logger.Logger) {
	pingInterval := cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-observer.C:
			if !ok {
				// A close without the drop flag is a normal unsubscribe.
				if observer.Dropped() {
					deadline := time.Now().Add(writeTimeout)
					_ = conn.WriteControl(
						websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "stream buffer overflow"),
						deadline,
					)
					if logg != nil {
						logg.Warn(ctx, "stream.observer.dropped")
					}
				}
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
