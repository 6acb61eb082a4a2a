// Package connector resolves a handle to the remote user service, retrying a
// bounded number of times while the server is not yet reachable.
package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	c "Userdb/common"
	"Userdb/config"
	unet "Userdb/net"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

// Connection states.
const (
	Disconnected = "disconnected"
	Connecting   = "connecting"
	Connected    = "connected"
)

// ErrConnectionExhausted is matched by the error Resolve returns after every
// attempt failed.
var ErrConnectionExhausted = errors.New("connection attempts exhausted")

// ExhaustedError carries the number of attempts made and the last failure.
type ExhaustedError struct {
	Addr     string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("unable to connect to %s after %d attempts: %v", e.Addr, e.Attempts, e.Last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrConnectionExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Connector tracks the connection to one service and hands out clients.
type Connector struct {
	fsm        *fsm.FSM
	name       string
	attempts   int
	delay      time.Duration
	httpClient *http.Client
	log        logrus.FieldLogger
}

type Option func(*Connector)

func WithLogger(l logrus.FieldLogger) Option {
	return func(co *Connector) { co.log = l }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(co *Connector) { co.httpClient = hc }
}

// New builds a connector from the client section of the configuration.
func New(cfg config.ClientConfig, opts ...Option) *Connector {
	co := &Connector{
		name:       cfg.ServiceName,
		attempts:   cfg.MaxRetries,
		delay:      cfg.RetryDelay,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		log:        logrus.StandardLogger(),
	}
	if co.attempts < 1 {
		co.attempts = 1
	}
	for _, opt := range opts {
		opt(co)
	}
	co.fsm = fsm.NewFSM(
		Disconnected,
		fsm.Events{
			{Name: "dial", Src: []string{Disconnected}, Dst: Connecting},
			{Name: "established", Src: []string{Connecting}, Dst: Connected},
			{Name: "fail", Src: []string{Connecting}, Dst: Disconnected},
			{Name: "lost", Src: []string{Connected}, Dst: Disconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				co.log.Debugf("%s: connection %s -> %s (%s)", c.CurFuncName(), e.Src, e.Dst, e.Event)
			},
		},
	)
	return co
}

// State returns the current connection state.
func (co *Connector) State() string {
	return co.fsm.Current()
}

func (co *Connector) fire(event string) {
	if err := co.fsm.Event(context.Background(), event); err != nil {
		co.log.Warnf("%s: %s ignored in state %s: %v", c.CurFuncName(), event, co.fsm.Current(), err)
	}
}

// Resolve connects to the service at addr (host:port). Attempts are made one
// after another; between failed attempts the caller waits for the configured
// delay. On success the returned client reports later transport failures
// back to the connector. On failure no client is returned.
func (co *Connector) Resolve(ctx context.Context, addr string) (*unet.Client, error) {
	if co.fsm.Is(Connected) {
		co.fire("lost")
	}

	var last error
	for i := 1; i <= co.attempts; i++ {
		co.fire("dial")
		co.log.Infof("Connecting to %s at %s (%d/%d)...", co.name, addr, i, co.attempts)

		cl := unet.NewClient(addr, co.name, co.httpClient)
		err := cl.Lookup(ctx)
		if err == nil {
			cl.OnTransportError = co.onTransportError
			co.fire("established")
			co.log.Infof("Connected to %s at %s", co.name, addr)
			return cl, nil
		}

		co.fire("fail")
		last = err
		co.log.Warnf("Connection failed: %v", err)

		if i < co.attempts {
			t := time.NewTimer(co.delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}
	}
	return nil, &ExhaustedError{Addr: addr, Attempts: co.attempts, Last: last}
}

func (co *Connector) onTransportError(err error) {
	if co.fsm.Is(Connected) {
		co.log.Errorf("%s: connection lost: %v", c.CurFuncName(), err)
		co.fire("lost")
	}
}
