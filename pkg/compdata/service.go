// Package compdata pkg/compdata/service.go
package compdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mfreeman451/compdata/pkg/bus"
	"github.com/mfreeman451/compdata/pkg/cache"
	"github.com/mfreeman451/compdata/pkg/composite"
	"github.com/mfreeman451/compdata/pkg/metrics"
)

// Service answers one bus method per composite plus the ping
// diagnostic. Composite definitions are immutable for the service's
// lifetime.
type Service struct {
	composites map[string]*composite.Composite
	cache      cache.Service
	metrics    *metrics.Manager
}

// resultsReply is the success envelope of a composite method.
type resultsReply struct {
	Results map[string][]Row `json:"results"`
}

// pingReply carries wall-clock seconds since the epoch.
type pingReply struct {
	Result float64 `json:"result"`
}

// NewService builds the worker service.
func NewService(composites map[string]*composite.Composite, cacheClient cache.Service, m *metrics.Manager) (*Service, error) {
	if len(composites) == 0 {
		return nil, errNoComposites
	}

	if cacheClient == nil {
		return nil, errNilCacheClient
	}

	return &Service{
		composites: composites,
		cache:      cacheClient,
		metrics:    m,
	}, nil
}

// Composites returns the definitions the service answers for.
func (s *Service) Composites() map[string]*composite.Composite {
	return s.composites
}

// Register wires every composite method and ping onto the bus server.
func (s *Service) Register(server *bus.Server) error {
	for id, comp := range s.composites {
		comp := comp

		if err := server.Register(id, func(ctx context.Context, payload []byte) (interface{}, error) {
			return s.handleComposite(ctx, comp, payload)
		}); err != nil {
			return fmt.Errorf("failed to register composite %s: %w", id, err)
		}

		log.Printf("Registered composite method %s", id)
	}

	if err := server.Register("ping", s.handlePing); err != nil {
		return fmt.Errorf("failed to register ping: %w", err)
	}

	return nil
}

func (*Service) handlePing(_ context.Context, _ []byte) (interface{}, error) {
	return &pingReply{Result: float64(time.Now().UnixNano()) / float64(time.Second)}, nil
}

// handleComposite runs the full pipeline for one request.
func (s *Service) handleComposite(ctx context.Context, comp *composite.Composite, payload []byte) (interface{}, error) {
	start := time.Now()

	reply, err := s.runComposite(ctx, comp, payload)

	if s.metrics != nil {
		s.metrics.Record(comp.ID, time.Since(start), err == nil)
	}

	return reply, err
}

func (s *Service) runComposite(ctx context.Context, comp *composite.Composite, payload []byte) (interface{}, error) {
	inst := comp.DefaultInstance()
	if inst == nil {
		return nil, fmt.Errorf("composite %s: %w", comp.ID, errNoDefaultInstance)
	}

	params, err := parseParams(payload)
	if err != nil {
		return nil, err
	}

	hosts := params.stringList("node")
	if len(hosts) == 0 {
		return nil, errNodeRequired
	}

	for _, input := range comp.Inputs {
		if input.Required && len(params.stringList(input.ID)) == 0 {
			return nil, fmt.Errorf("%w: %s", errMissingInput, input.ID)
		}
	}

	period, err := params.period()
	if err != nil {
		return nil, err
	}

	excludes := params.excludeRegexps()

	req := newRequest(comp, inst, s.cache, hosts, period, excludes)

	return &resultsReply{Results: req.run(ctx)}, nil
}

// rpcParams is a decoded request payload. Every parameter is a string
// list except period, which is any number.
type rpcParams map[string]interface{}

func parseParams(payload []byte) (rpcParams, error) {
	params := make(rpcParams)

	if len(payload) == 0 {
		return params, nil
	}

	if err := json.Unmarshal(payload, &params); err != nil {
		return nil, fmt.Errorf("failed to decode request parameters: %w", err)
	}

	return params, nil
}

// stringList reads a parameter that may arrive as a scalar or a list.
func (p rpcParams) stringList(name string) []string {
	switch v := p[name].(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, toString(item))
		}

		return out
	default:
		return []string{toString(v)}
	}
}

// period returns the request period, defaulting to 60 seconds.
func (p rpcParams) period() (int, error) {
	switch v := p["period"].(type) {
	case nil:
		return defaultPeriod, nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errInvalidPeriod, v)
		}

		return n, nil
	default:
		return 0, fmt.Errorf("%w: %T", errInvalidPeriod, v)
	}
}

// excludeRegexps parses exclude_regexp entries of the form var=regex
// and groups the compiled patterns by variable name. Malformed entries
// are logged and skipped.
func (p rpcParams) excludeRegexps() map[string][]*regexp.Regexp {
	entries := p.stringList("exclude_regexp")
	if len(entries) == 0 {
		return nil
	}

	excludes := make(map[string][]*regexp.Regexp)

	for _, entry := range entries {
		name, expr, ok := strings.Cut(entry, "=")
		if !ok || name == "" {
			log.Printf("Ignoring malformed exclude_regexp entry %q", entry)
			continue
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			log.Printf("Ignoring bad exclude_regexp %q: %v", entry, err)
			continue
		}

		excludes[name] = append(excludes[name], re)
	}

	return excludes
}
