package reqresp

import (
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("reqresp")

// Option is the functional option that is applied to the req/resp protocols to configure their
// parameters.
type Option func(*Parameters)

// Parameters is the set of parameters that must be configured for the req/resp protocols.
type Parameters struct {
	// RequestTimeout bounds a whole outbound request when the caller's context has no deadline.
	RequestTimeout time.Duration

	// ReadTimeout sets the timeout for reading an inbound request from the stream.
	ReadTimeout time.Duration

	// WriteTimeout sets the timeout for writing a response to the stream.
	WriteTimeout time.Duration

	// ConcurrencyLimit is the maximum number of inbound requests served at once per protocol.
	ConcurrencyLimit int
}

func DefaultParameters() *Parameters {
	return &Parameters{
		RequestTimeout:   10 * time.Second,
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
		ConcurrencyLimit: 64,
	}
}

const errSuffix = "value should be positive and non-zero"

func (p *Parameters) Validate() error {
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("reqresp: invalid request timeout: %v, %s", p.RequestTimeout, errSuffix)
	}
	if p.ReadTimeout <= 0 {
		return fmt.Errorf("reqresp: invalid read timeout: %v, %s", p.ReadTimeout, errSuffix)
	}
	if p.WriteTimeout <= 0 {
		return fmt.Errorf("reqresp: invalid write timeout: %v, %s", p.WriteTimeout, errSuffix)
	}
	if p.ConcurrencyLimit <= 0 {
		return fmt.Errorf("reqresp: invalid concurrency limit: %v, %s", p.ConcurrencyLimit, errSuffix)
	}
	return nil
}

// WithRequestTimeout is a functional option that configures the `RequestTimeout` parameter.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(p *Parameters) {
		p.RequestTimeout = timeout
	}
}

// WithConcurrencyLimit is a functional option that configures the `ConcurrencyLimit` parameter.
func WithConcurrencyLimit(limit int) Option {
	return func(p *Parameters) {
		p.ConcurrencyLimit = limit
	}
}
