// Package bus pkg/bus/server.go
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	defaultWorkers    = 4
	defaultQueueGroup = "compdata"
	workerChanBuffer  = 64
)

// HandlerFunc processes one decoded request payload and returns the
// reply body. A returned error becomes an error envelope on the wire.
type HandlerFunc func(ctx context.Context, payload []byte) (interface{}, error)

// ServerOption is a function type that modifies Server configuration.
type ServerOption func(*Server)

// Server consumes method calls from the bus. All registered methods
// feed one shared delivery channel; each worker takes one message at a
// time, so a worker never has more than one request in flight.
type Server struct {
	conn     *nats.Conn
	addr     string
	prefix   string
	queue    string
	workers  int
	timeout  time.Duration
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	subs     []*nats.Subscription
	wg       sync.WaitGroup
}

// NewServer creates a bus server for the given address.
func NewServer(addr string, opts ...ServerOption) (*Server, error) {
	if addr == "" {
		return nil, errAddressRequired
	}

	s := &Server{
		addr:     addr,
		prefix:   "compdata",
		queue:    defaultQueueGroup,
		workers:  defaultWorkers,
		timeout:  defaultRequestTimeout,
		handlers: make(map[string]HandlerFunc),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// WithServerPrefix sets the subject prefix methods are served under.
func WithServerPrefix(prefix string) ServerOption {
	return func(s *Server) {
		s.prefix = prefix
	}
}

// WithQueueGroup sets the queue group shared by the workers.
func WithQueueGroup(queue string) ServerOption {
	return func(s *Server) {
		s.queue = queue
	}
}

// WithWorkers sets how many requests may be in flight at once.
func WithWorkers(workers int) ServerOption {
	return func(s *Server) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithHandlerTimeout bounds how long a single request may run.
func WithHandlerTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// Register adds a handler for a method name.
func (s *Server) Register(method string, handler HandlerFunc) error {
	if method == "" {
		return errEmptyMethod
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handlers[method]; ok {
		return fmt.Errorf("%w: %s", errMethodRegistered, method)
	}

	s.handlers[method] = handler

	return nil
}

// Methods returns the registered method names.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		methods = append(methods, m)
	}

	return methods
}

// Start connects, subscribes every registered method into one shared
// channel and runs the worker pool until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.RLock()
	count := len(s.handlers)
	s.mu.RUnlock()

	if count == 0 {
		return errNoMethods
	}

	conn, err := nats.Connect(s.addr,
		nats.Name("compdata-worker"),
		nats.ReconnectWait(defaultReconnectWait),
		nats.MaxReconnects(defaultMaxReconnects),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to bus at %s: %w", s.addr, err)
	}

	s.conn = conn

	msgs := make(chan *nats.Msg, workerChanBuffer)

	s.mu.RLock()
	for method := range s.handlers {
		subject := s.prefix + "." + method

		sub, err := conn.ChanQueueSubscribe(subject, s.queue, msgs)
		if err != nil {
			s.mu.RUnlock()
			conn.Close()

			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}

		s.subs = append(s.subs, sub)

		log.Printf("Serving method %s (queue %s)", subject, s.queue)
	}
	s.mu.RUnlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)

		go s.worker(ctx, i, msgs)
	}

	<-ctx.Done()

	s.drain()
	close(msgs)
	s.wg.Wait()
	conn.Close()

	return nil
}

// Conn returns the server's connection once Start has established it.
func (s *Server) Conn() *nats.Conn {
	return s.conn
}

func (s *Server) drain() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing %s: %v", sub.Subject, err)
		}
	}
}

// worker consumes deliveries one at a time.
func (s *Server) worker(ctx context.Context, id int, msgs <-chan *nats.Msg) {
	defer s.wg.Done()

	for msg := range msgs {
		s.handle(ctx, id, msg)
	}
}

func (s *Server) handle(ctx context.Context, worker int, msg *nats.Msg) {
	method := strings.TrimPrefix(msg.Subject, s.prefix+".")

	s.mu.RLock()
	handler, ok := s.handlers[method]
	s.mu.RUnlock()

	if !ok {
		log.Printf("Worker %d: no handler for subject %s", worker, msg.Subject)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	result, err := handler(reqCtx, msg.Data)

	log.Printf("Bus method: %s Worker: %d Duration: %v Error: %v",
		method, worker, time.Since(start), err)

	s.respond(msg, result, err)
}

func (s *Server) respond(msg *nats.Msg, result interface{}, err error) {
	if msg.Reply == "" {
		return
	}

	if err == nil && result == nil {
		err = errHandlerNilResponse
	}

	var data []byte

	if err != nil {
		data, _ = json.Marshal(errEnvelope{Error: err.Error()})
	} else {
		var marshalErr error

		data, marshalErr = json.Marshal(result)
		if marshalErr != nil {
			data, _ = json.Marshal(errEnvelope{Error: marshalErr.Error()})
		}
	}

	if err := msg.Respond(data); err != nil {
		log.Printf("Failed to publish reply on %s: %v", msg.Reply, err)
	}
}
