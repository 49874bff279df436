package reqresp

import (
	"context"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"go.uber.org/multierr"
)

// ReqResp serves the beacon req/resp protocols on a host and issues outbound requests.
type ReqResp struct {
	params *Parameters
	host   host.Host

	status StatusProvider
	local  *LocalMetadata

	middlewares map[Method]*middleware

	emitLk         sync.RWMutex
	pingEmitter    event.Emitter
	statusEmitter  event.Emitter
	goodbyeEmitter event.Emitter

	metrics *metrics
}

// New creates a ReqResp answering from the given local status and metadata.
func New(h host.Host, status StatusProvider, local *LocalMetadata, opts ...Option) (*ReqResp, error) {
	params := DefaultParameters()
	for _, opt := range opts {
		opt(params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	middlewares := make(map[Method]*middleware, len(methods))
	for _, m := range methods {
		middlewares[m] = newMiddleware(params.ConcurrencyLimit)
	}

	return &ReqResp{
		params:      params,
		host:        h,
		status:      status,
		local:       local,
		middlewares: middlewares,
	}, nil
}

// Start registers the stream handlers of all protocols.
func (r *ReqResp) Start(context.Context) error {
	r.emitLk.Lock()
	defer r.emitLk.Unlock()

	var err error
	bus := r.host.EventBus()
	if r.pingEmitter, err = bus.Emitter(new(EvtPingReceived)); err != nil {
		return fmt.Errorf("reqresp: creating ping emitter: %w", err)
	}
	if r.statusEmitter, err = bus.Emitter(new(EvtStatusReceived)); err != nil {
		return fmt.Errorf("reqresp: creating status emitter: %w", err)
	}
	if r.goodbyeEmitter, err = bus.Emitter(new(EvtGoodbyeReceived)); err != nil {
		return fmt.Errorf("reqresp: creating goodbye emitter: %w", err)
	}

	handlers := map[Method]network.StreamHandler{
		MethodStatus:   r.handleStatus,
		MethodPing:     r.handlePing,
		MethodMetadata: r.handleMetadata,
		MethodGoodbye:  r.handleGoodbye,
	}
	for m, handler := range handlers {
		r.host.SetStreamHandler(ProtocolID(m), r.middlewares[m].rateLimitHandler(handler))
	}
	return nil
}

// Stop removes the stream handlers and closes the event emitters.
func (r *ReqResp) Stop(context.Context) error {
	for _, m := range methods {
		r.host.RemoveStreamHandler(ProtocolID(m))
	}

	r.emitLk.Lock()
	defer r.emitLk.Unlock()
	var err error
	for _, em := range []*event.Emitter{&r.pingEmitter, &r.statusEmitter, &r.goodbyeEmitter} {
		if *em != nil {
			err = multierr.Append(err, (*em).Close())
			*em = nil
		}
	}
	return err
}

func (r *ReqResp) emit(evt interface{}) {
	r.emitLk.RLock()
	defer r.emitLk.RUnlock()

	var em event.Emitter
	switch evt.(type) {
	case EvtPingReceived:
		em = r.pingEmitter
	case EvtStatusReceived:
		em = r.statusEmitter
	case EvtGoodbyeReceived:
		em = r.goodbyeEmitter
	}
	if em == nil {
		return
	}
	if err := em.Emit(evt); err != nil {
		log.Warnw("emitting event", "type", fmt.Sprintf("%T", evt), "err", err)
	}
}
