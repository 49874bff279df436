package reqresp

import (
	"bufio"
	"context"
	"fmt"
	"time"

	ssz "github.com/ferranbt/fastssz"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/libs/utils"
)

var tracer = otel.Tracer("reqresp")

// Status exchanges statuses with the peer and returns the remote one.
func (r *ReqResp) Status(ctx context.Context, to peer.ID, local beacon.Status) (beacon.Status, error) {
	var remote beacon.Status
	err := r.request(ctx, to, MethodStatus, &local, &remote)
	return remote, err
}

// Ping sends the local metadata sequence number and returns the remote one.
func (r *ReqResp) Ping(ctx context.Context, to peer.ID) (uint64, error) {
	seq := beacon.Uint64(r.local.SeqNumber())
	var remote beacon.Uint64
	err := r.request(ctx, to, MethodPing, &seq, &remote)
	return uint64(remote), err
}

// Metadata requests the peer's metadata.
func (r *ReqResp) Metadata(ctx context.Context, to peer.ID) (beacon.Metadata, error) {
	var md beacon.Metadata
	err := r.request(ctx, to, MethodMetadata, nil, &md)
	return md, err
}

// Goodbye notifies the peer that we are about to disconnect. No response is awaited.
func (r *ReqResp) Goodbye(ctx context.Context, to peer.ID, reason GoodbyeReason) error {
	code := beacon.Uint64(reason)
	return r.request(ctx, to, MethodGoodbye, &code, nil)
}

// request opens a stream for the method, writes req if any and reads a single response chunk into
// resp if any.
func (r *ReqResp) request(
	ctx context.Context,
	to peer.ID,
	method Method,
	req ssz.Marshaler,
	resp sszMessage,
) (err error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.params.RequestTimeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "reqresp/"+string(method), trace.WithAttributes(
		attribute.String("peer", to.String()),
	))
	startTime := time.Now()
	defer func() {
		r.metrics.observeRequest(ctx, method, time.Since(startTime), err)
		utils.SetStatusAndEnd(span, err)
	}()

	stream, err := r.host.NewStream(ctx, to, ProtocolID(method))
	if err != nil {
		return fmt.Errorf("reqresp: opening %s stream: %w", method, err)
	}

	// set stream deadline from the context deadline.
	if dl, ok := ctx.Deadline(); ok {
		if err := stream.SetDeadline(dl); err != nil {
			log.Debugw("setting stream deadline", "err", err)
		}
	}

	if req != nil {
		if err = writeMessage(stream, req); err != nil {
			stream.Reset() //nolint:errcheck
			return fmt.Errorf("reqresp: writing %s request: %w", method, err)
		}
	}
	if err = stream.CloseWrite(); err != nil {
		stream.Reset() //nolint:errcheck
		return fmt.Errorf("reqresp: closing write side of %s stream: %w", method, err)
	}

	if resp == nil {
		return stream.Close()
	}

	if err = readResponse(bufio.NewReader(stream), resp); err != nil {
		stream.Reset() //nolint:errcheck
		return fmt.Errorf("reqresp: reading %s response: %w", method, err)
	}

	if err := stream.Close(); err != nil {
		log.Debugw("closing stream", "err", err)
	}
	return nil
}
