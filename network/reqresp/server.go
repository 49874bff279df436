package reqresp

import (
	"bufio"
	"context"
	"time"

	ssz "github.com/ferranbt/fastssz"
	"github.com/libp2p/go-libp2p/core/network"
	"go.uber.org/zap"

	"github.com/beaconnode/beacon-node/beacon"
)

func (r *ReqResp) handleStatus(stream network.Stream) {
	logger := log.With("peer", stream.Conn().RemotePeer(), "method", MethodStatus)

	var remote beacon.Status
	if !r.readRequest(logger, stream, MethodStatus, &remote) {
		return
	}
	local := r.status.Status()
	if !r.respond(logger, stream, MethodStatus, &local) {
		return
	}

	r.emit(EvtStatusReceived{
		Peer:   stream.Conn().RemotePeer(),
		Status: remote,
	})
}

func (r *ReqResp) handlePing(stream network.Stream) {
	logger := log.With("peer", stream.Conn().RemotePeer(), "method", MethodPing)

	var remote beacon.Uint64
	if !r.readRequest(logger, stream, MethodPing, &remote) {
		return
	}
	seq := beacon.Uint64(r.local.SeqNumber())
	if !r.respond(logger, stream, MethodPing, &seq) {
		return
	}

	r.emit(EvtPingReceived{
		Peer: stream.Conn().RemotePeer(),
		Seq:  uint64(remote),
	})
}

func (r *ReqResp) handleMetadata(stream network.Stream) {
	logger := log.With("peer", stream.Conn().RemotePeer(), "method", MethodMetadata)

	if err := stream.CloseRead(); err != nil {
		logger.Debugw("server: closing read side of the stream", "err", err)
	}
	md := r.local.Metadata()
	r.respond(logger, stream, MethodMetadata, &md)
}

func (r *ReqResp) handleGoodbye(stream network.Stream) {
	logger := log.With("peer", stream.Conn().RemotePeer(), "method", MethodGoodbye)

	var code beacon.Uint64
	if !r.readRequest(logger, stream, MethodGoodbye, &code) {
		return
	}
	if err := stream.Close(); err != nil {
		logger.Debugw("server: closing stream", "err", err)
	}
	r.metrics.observeServed(context.Background(), MethodGoodbye, ResultSuccess)

	r.emit(EvtGoodbyeReceived{
		Peer:   stream.Conn().RemotePeer(),
		Reason: GoodbyeReason(code),
	})
}

// readRequest reads the request payload into msg. On failure it answers with an invalid request
// result and resets the stream.
func (r *ReqResp) readRequest(
	logger *zap.SugaredLogger,
	stream network.Stream,
	method Method,
	msg sszMessage,
) bool {
	err := stream.SetReadDeadline(time.Now().Add(r.params.ReadTimeout))
	if err != nil {
		logger.Debugw("server: setting read deadline", "err", err)
	}

	if err = readMessage(bufio.NewReader(stream), msg); err != nil {
		logger.Debugw("server: reading request", "err", err)
		r.metrics.observeServed(context.Background(), method, ResultInvalidRequest)
		if err := writeErrorResponse(stream, ResultInvalidRequest, err.Error()); err != nil {
			logger.Debugw("server: writing error response", "err", err)
		}
		stream.Reset() //nolint:errcheck
		return false
	}

	if err = stream.CloseRead(); err != nil {
		logger.Debugw("server: closing read side of the stream", "err", err)
	}
	return true
}

func (r *ReqResp) respond(logger *zap.SugaredLogger, stream network.Stream, method Method, msg ssz.Marshaler) bool {
	err := stream.SetWriteDeadline(time.Now().Add(r.params.WriteTimeout))
	if err != nil {
		logger.Debugw("server: setting write deadline", "err", err)
	}

	if err = writeResponse(stream, msg); err != nil {
		logger.Warnw("server: writing response", "err", err)
		r.metrics.observeServed(context.Background(), method, ResultServerError)
		stream.Reset() //nolint:errcheck
		return false
	}

	if err = stream.Close(); err != nil {
		logger.Debugw("server: closing stream", "err", err)
	}
	r.metrics.observeServed(context.Background(), method, ResultSuccess)
	return true
}
