package signal

import (
	"context"
	"encoding/json"
	"fmt"
)

// SendRequest is a message to one recipient list or one group.
type SendRequest struct {
	Recipients []string
	GroupID    string
	Message    string
}

// SendResponse is signal-cli's answer to a send.
type SendResponse struct {
	Timestamp int64 `json:"timestamp"`
}

// Envelope is an incoming signal-cli envelope.
type Envelope struct {
	Source       string       `json:"source"`
	SourceNumber string       `json:"sourceNumber"`
	SourceUUID   string       `json:"sourceUuid"`
	SourceName   string       `json:"sourceName"`
	Timestamp    int64        `json:"timestamp"`
	DataMessage  *DataMessage `json:"dataMessage,omitempty"`
	SyncMessage  *SyncMessage `json:"syncMessage,omitempty"`
}

// DataMessage is a regular message body.
type DataMessage struct {
	Timestamp int64      `json:"timestamp"`
	Message   string     `json:"message"`
	GroupInfo *GroupInfo `json:"groupInfo,omitempty"`
}

// SyncMessage is a copy of a message sent from another linked device.
type SyncMessage struct {
	SentMessage *DataMessage `json:"sentMessage,omitempty"`
}

// GroupInfo identifies the group a message belongs to.
type GroupInfo struct {
	GroupID string `json:"groupId"`
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
}

// Client issues signal-cli JSON-RPC calls.
type Client struct {
	transport Transport
	account   string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithAccount sets the account for multi-account daemons.
func WithAccount(account string) ClientOption {
	return func(c *Client) {
		c.account = account
	}
}

// NewClient creates a client over transport.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{transport: transport}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) params() map[string]any {
	params := make(map[string]any)
	if c.account != "" {
		params["account"] = c.account
	}
	return params
}

// target sets either recipient or groupId on params.
func target(params map[string]any, recipients []string, groupID string) error {
	switch {
	case len(recipients) > 0:
		params["recipient"] = recipients
	case groupID != "":
		params["groupId"] = groupID
	default:
		return fmt.Errorf("either recipients or groupId must be specified")
	}
	return nil
}

// Send delivers a message.
func (c *Client) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	params := c.params()
	if err := target(params, req.Recipients, req.GroupID); err != nil {
		return nil, err
	}
	params["message"] = req.Message

	result, err := c.transport.Call(ctx, "send", params)
	if err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}
	if result == nil {
		return nil, fmt.Errorf("invalid response: empty result")
	}

	var resp SendResponse
	if err := json.Unmarshal(*result, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Timestamp == 0 {
		return nil, fmt.Errorf("invalid response: missing timestamp")
	}
	return &resp, nil
}

// SendTyping starts a typing indicator for a recipient or group.
func (c *Client) SendTyping(ctx context.Context, recipient, groupID string) error {
	params := c.params()
	var recipients []string
	if recipient != "" {
		recipients = []string{recipient}
	}
	if err := target(params, recipients, groupID); err != nil {
		return err
	}

	if _, err := c.transport.Call(ctx, "sendTyping", params); err != nil {
		return fmt.Errorf("sendTyping failed: %w", err)
	}
	return nil
}

// Subscribe streams envelopes from "receive" notifications. The channel
// closes when ctx is done or the transport ends.
func (c *Client) Subscribe(ctx context.Context) <-chan *Envelope {
	envelopes := make(chan *Envelope)
	go func() {
		defer close(envelopes)
		notifications := c.transport.Notifications()
		for {
			select {
			case <-ctx.Done():
				return
			case notif, ok := <-notifications:
				if !ok {
					return
				}
				env := parseEnvelope(notif)
				if env == nil {
					continue
				}
				select {
				case envelopes <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return envelopes
}

// parseEnvelope extracts the envelope from a receive notification.
func parseEnvelope(notif *Notification) *Envelope {
	if notif == nil || notif.Method != "receive" {
		return nil
	}
	var params struct {
		Envelope *Envelope `json:"envelope"`
	}
	if err := json.Unmarshal(notif.Params, &params); err != nil {
		return nil
	}
	return params.Envelope
}

// Close closes the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
