// Package signal talks to a signal-cli daemon over its JSON-RPC UNIX socket
// and adapts it to the chat transport boundary.
package signal

import (
	"context"
	"encoding/json"
	"strconv"
)

// Transport is the JSON-RPC connection to signal-cli.
type Transport interface {
	// Call makes a JSON-RPC call and returns the raw result.
	Call(ctx context.Context, method string, params any) (*json.RawMessage, error)

	// Notifications returns the stream of server notifications. It is
	// closed when the connection ends.
	Notifications() <-chan *Notification

	// Close closes the transport.
	Close() error
}

// Notification is a JSON-RPC notification.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      string           `json:"id"`
	Result  *json.RawMessage `json:"result,omitempty"`
	Error   *RPCError        `json:"error,omitempty"`
}

// RPCError is an error returned by signal-cli.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return "RPC error " + strconv.Itoa(e.Code) + ": " + e.Message
}
