// Package bridge connects the agent to the portal frontend over a WebSocket:
// outbound VOICE_ACTION notifications go out as JSON frames, inbound frames
// carry UI signals such as the wallet-connection status.
package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	billdesk "github.com/bec-bridge/billdesk-voice"
	"github.com/bec-bridge/billdesk-voice/shared"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WalletStatusHandler receives the wallet-connection signal from the UI.
type WalletStatusHandler func(connected bool)

type inboundFrame struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
}

// WS serves the UI channel. One frontend connection at a time; a new
// connection replaces the previous one. Publish writes directly on the
// connection, so a delivery failure surfaces to the operation that caused it.
type WS struct {
	logger   shared.LoggerAdapter
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	onWallet WalletStatusHandler
}

var _ billdesk.Notifier = (*WS)(nil)

func NewWS(logger shared.LoggerAdapter) (*WS, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	return &WS{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}, nil
}

// OnWalletStatus registers the handler for inbound WALLET_STATUS frames.
func (b *WS) OnWalletStatus(handler WalletStatusHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onWallet = handler
}

func (b *WS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("upgrading UI connection", err)
		return
	}
	b.mu.Lock()
	if b.conn != nil {
		b.logger.Warn("replacing existing UI connection")
		_ = b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()
	b.logger.Info("UI connected", zap.String("remote", conn.RemoteAddr().String()))
	go b.readLoop(conn)
}

func (b *WS) readLoop(conn *websocket.Conn) {
	defer func() {
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			b.logger.Info("UI connection closed", zap.Error(err))
			return
		}
		switch frame.Type {
		case "WALLET_STATUS":
			b.mu.Lock()
			handler := b.onWallet
			b.mu.Unlock()
			if handler != nil {
				handler(frame.Connected)
			}
		default:
			b.logger.Warn("unknown UI frame", zap.String("type", frame.Type))
		}
	}
}

// Publish writes one notification frame to the connected UI. Frames are
// written under the lock, so publish order is preserved.
func (b *WS) Publish(ctx context.Context, n *billdesk.Notification) error {
	data, err := sonic.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return shared.ErrBridgeNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = b.conn.SetWriteDeadline(deadline)
	} else {
		// a deadline set by an earlier Publish must not outlive its context
		_ = b.conn.SetWriteDeadline(time.Time{})
	}
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("writing notification frame: %w", err)
	}
	return nil
}

func (b *WS) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}
