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

// Package cache - client for the upstream sample cache service.
package cache

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/mfreeman451/compdata/pkg/bus"
)

const (
	methodGet     = "get"
	methodGetRate = "get_rate"

	// Fan-out from one request is bounded by the number of scans plus
	// vals times hosts; the limiter keeps a burst of concurrent
	// requests from flooding the cache service.
	defaultRequestsPerSecond = 200
	defaultBurst             = 50
)

var (
	errNilBusClient = errors.New("bus client is nil")
)

// ClientOption customizes a cache client.
type ClientOption func(*Client)

// Client implements Service over the message bus.
type Client struct {
	bus     *bus.Client
	limiter *rate.Limiter
}

// NewClient wraps a bus client whose prefix addresses the cache
// service (e.g. "data" for methods data.get and data.get_rate).
func NewClient(busClient *bus.Client, opts ...ClientOption) (*Client, error) {
	if busClient == nil {
		return nil, errNilBusClient
	}

	c := &Client{
		bus:     busClient,
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// WithLimiter overrides the outbound request limiter.
func WithLimiter(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// Get implements Service.
func (c *Client) Get(ctx context.Context, nodes []string, oidmatch string) (Results, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("cache get limiter: %w", err)
	}

	var resp reply

	req := getRequest{Node: nodes, OIDMatch: oidmatch}
	if err := c.bus.Call(ctx, methodGet, &req, &resp); err != nil {
		return nil, fmt.Errorf("cache get %s: %w", oidmatch, err)
	}

	return resp.Results, nil
}

// GetRate implements Service.
func (c *Client) GetRate(ctx context.Context, nodes []string, period int, oidmatch string) (Results, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("cache get_rate limiter: %w", err)
	}

	var resp reply

	req := rateRequest{Node: nodes, Period: period, OIDMatch: []string{oidmatch}}
	if err := c.bus.Call(ctx, methodGetRate, &req, &resp); err != nil {
		return nil, fmt.Errorf("cache get_rate %s: %w", oidmatch, err)
	}

	return resp.Results, nil
}
