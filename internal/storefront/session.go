package storefront

import (
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/bakery-backend/internal/cart"
	"github.com/angelmondragon/bakery-backend/internal/checkout"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

var ErrSessionEnded = errors.New("storefront session has ended")

// SessionOptions tune the checkout workflows a session creates.
type SessionOptions struct {
	Location      *time.Location
	ChargeTimeout time.Duration
	Now           func() time.Time
	Logger        *logger.Logger
}

// Session owns one shopper's cart and checkout for the lifetime of a visit.
type Session struct {
	client *Client
	opts   SessionOptions

	mu       sync.Mutex
	cart     *cart.Store
	workflow *checkout.Workflow
	ended    bool
}

// StartSession creates an empty cart bound to the client.
func (c *Client) StartSession(opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = c.logg
	}
	return &Session{client: c, opts: opts, cart: cart.NewStore()}
}

// Cart returns the session cart, or nil after End.
func (s *Session) Cart() *cart.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// Checkout returns the active workflow, creating one when none exists or the
// previous checkout completed.
func (s *Session) Checkout() (*checkout.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return nil, ErrSessionEnded
	}
	if s.workflow != nil {
		if _, done := s.workflow.State().(checkout.Completed); !done {
			return s.workflow, nil
		}
	}
	wf, err := checkout.New(checkout.Options{
		Cart:          s.cart,
		Gateway:       s.client,
		Orders:        s.client,
		Location:      s.opts.Location,
		ChargeTimeout: s.opts.ChargeTimeout,
		Now:           s.opts.Now,
		Logger:        s.opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	s.workflow = wf
	return wf, nil
}

// End drops the cart and workflow. A charge still in flight keeps its own
// references and finishes normally.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	if s.cart != nil && (s.workflow == nil || !s.workflow.InFlight()) {
		s.cart.Clear()
	}
	s.cart = nil
	s.workflow = nil
}
