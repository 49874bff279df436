package reqresp

import (
	"sync/atomic"

	"github.com/libp2p/go-libp2p/core/network"
)

// middleware caps the number of inbound streams served in parallel for one protocol.
type middleware struct {
	// numRateLimited is reset to 0 every time it is observed into metrics.
	numRateLimited atomic.Int64

	concurrencyLimit int64
	parallelRequests atomic.Int64
}

func newMiddleware(concurrencyLimit int) *middleware {
	return &middleware{
		concurrencyLimit: int64(concurrencyLimit),
	}
}

func (m *middleware) rateLimitHandler(handler network.StreamHandler) network.StreamHandler {
	return func(stream network.Stream) {
		current := m.parallelRequests.Add(1)
		defer m.parallelRequests.Add(-1)

		if current > m.concurrencyLimit {
			m.numRateLimited.Add(1)
			log.Debug("concurrency limit reached")
			err := writeErrorResponse(stream, ResultResourceUnavailable, "rate limited")
			if err != nil {
				log.Debugw("server: writing rate limit response", "err", err)
			}
			if err = stream.Close(); err != nil {
				log.Debugw("server: closing stream", "err", err)
			}
			return
		}
		handler(stream)
	}
}
