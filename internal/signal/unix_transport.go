package signal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	notificationBuffer = 100
	maxLineSize        = 10 * 1024 * 1024
)

// ErrTransportClosed is returned by calls made after the connection ended.
var ErrTransportClosed = errors.New("signal transport closed")

// UnixSocketTransport implements Transport over signal-cli's UNIX socket.
type UnixSocketTransport struct {
	conn          net.Conn
	logger        *zap.Logger
	pending       map[string]chan *rpcResponse
	notifications chan *Notification
	done          chan struct{}
	writeMu       sync.Mutex
	pendingMu     sync.Mutex
	closeOnce     sync.Once
}

// DialUnixSocket connects to the signal-cli socket at path.
func DialUnixSocket(ctx context.Context, path string, logger *zap.Logger) (*UnixSocketTransport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to signal-cli socket: %w", err)
	}
	return newUnixSocketTransport(conn, logger), nil
}

func newUnixSocketTransport(conn net.Conn, logger *zap.Logger) *UnixSocketTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &UnixSocketTransport{
		conn:          conn,
		logger:        logger.With(zap.String("component", "signal.transport")),
		pending:       make(map[string]chan *rpcResponse),
		notifications: make(chan *Notification, notificationBuffer),
		done:          make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Call implements Transport.
func (t *UnixSocketTransport) Call(ctx context.Context, method string, params any) (*json.RawMessage, error) {
	id := uuid.NewString()
	data, err := json.Marshal(&rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respCh := make(chan *rpcResponse, 1)
	t.pendingMu.Lock()
	t.pending[id] = respCh
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, id)
		t.pendingMu.Unlock()
	}()

	t.writeMu.Lock()
	_, err = t.conn.Write(append(data, '\n'))
	t.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for %s: %w", method, ctx.Err())
	case <-t.done:
		return nil, ErrTransportClosed
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// readLoop dispatches responses to their callers and forwards
// notifications until the connection ends.
func (t *UnixSocketTransport) readLoop() {
	defer close(t.done)
	defer close(t.notifications)

	scanner := bufio.NewScanner(t.conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err == nil && resp.ID != "" {
			t.pendingMu.Lock()
			if ch, ok := t.pending[resp.ID]; ok {
				ch <- &resp
			}
			t.pendingMu.Unlock()
			continue
		}

		var notif Notification
		if err := json.Unmarshal(line, &notif); err != nil || notif.Method == "" {
			t.logger.Debug("Ignoring unparseable line", zap.Int("length", len(line)))
			continue
		}
		t.notifications <- &notif
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		t.logger.Warn("signal-cli connection ended", zap.Error(err))
	}
}

// Notifications implements Transport.
func (t *UnixSocketTransport) Notifications() <-chan *Notification {
	return t.notifications
}

// Close implements Transport. Unread notifications are discarded.
func (t *UnixSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.conn.Close()
		go func() {
			for range t.notifications {
			}
		}()
		<-t.done
	})
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}
