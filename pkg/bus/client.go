/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bus - JSON request/reply RPC over a NATS message bus.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultReconnectWait  = 2 * time.Second
	defaultMaxReconnects  = -1 // keep trying
)

// ClientOption allows customization of the client.
type ClientOption func(*Client)

// Client wraps a NATS connection with JSON request/reply semantics.
// Method names map to subjects as "<prefix>.<method>".
type Client struct {
	conn    *nats.Conn
	addr    string
	prefix  string
	timeout time.Duration
	name    string
}

// errEnvelope is the error half of a reply payload. A reply carrying a
// non-empty error field is treated as a remote failure regardless of
// what else it contains.
type errEnvelope struct {
	Error string `json:"error,omitempty"`
}

// NewClient connects to the bus at addr.
func NewClient(addr string, opts ...ClientOption) (*Client, error) {
	if addr == "" {
		return nil, errAddressRequired
	}

	c := &Client{
		addr:    addr,
		prefix:  "compdata",
		timeout: defaultRequestTimeout,
		name:    "compdata-client",
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.conn != nil {
		return c, nil
	}

	conn, err := nats.Connect(addr,
		nats.Name(c.name),
		nats.ReconnectWait(defaultReconnectWait),
		nats.MaxReconnects(defaultMaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bus at %s: %w", addr, err)
	}

	c.conn = conn

	log.Printf("Connected to bus at %s", addr)

	return c, nil
}

// WithPrefix sets the subject prefix for outgoing calls.
func WithPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithName sets the connection name reported to the bus.
func WithName(name string) ClientOption {
	return func(c *Client) {
		c.name = name
	}
}

// WithConn wires an existing connection instead of dialing, so one
// connection can be shared between consuming and calling.
func WithConn(conn *nats.Conn) ClientOption {
	return func(c *Client) {
		c.conn = conn
	}
}

// NewClientFromConn builds a client on top of an established
// connection. Closing the client also closes that connection.
func NewClientFromConn(conn *nats.Conn, opts ...ClientOption) (*Client, error) {
	if conn == nil {
		return nil, errNotConnected
	}

	c := &Client{
		conn:    conn,
		prefix:  "compdata",
		timeout: defaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Call issues a JSON request to method and decodes the reply into
// reply. A reply envelope with a non-empty error field becomes an
// ErrRemote. The context bounds the whole exchange; without a deadline
// the client timeout applies.
func (c *Client) Call(ctx context.Context, method string, req, reply interface{}) error {
	if c.conn == nil {
		return errNotConnected
	}

	if method == "" {
		return errEmptyMethod
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request for %s: %w", method, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	subject := c.prefix + "." + method
	start := time.Now()

	msg, err := c.conn.RequestWithContext(ctx, subject, data)

	log.Printf("Bus call: %s Duration: %v Error: %v", subject, time.Since(start), err)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return fmt.Errorf("%w: %s", ErrRequestTimeout, subject)
		}

		return fmt.Errorf("bus call %s failed: %w", subject, err)
	}

	var envelope errEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err == nil && envelope.Error != "" {
		return fmt.Errorf("%w: %s", ErrRemote, envelope.Error)
	}

	if reply == nil {
		return nil
	}

	if err := json.Unmarshal(msg.Data, reply); err != nil {
		return fmt.Errorf("failed to unmarshal reply from %s: %w", subject, err)
	}

	return nil
}

// Conn returns the underlying connection.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
