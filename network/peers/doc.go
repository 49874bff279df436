// Package peers provides the peer manager of the beacon node. It decides which connected peers are
// kept and when more peers are needed.
//
// The manager is responsible for:
//   - Tracking connected peers and the direction of their connection
//   - Pinging peers and refreshing their metadata
//   - Exchanging status with peers and disconnecting irrelevant ones
//   - Pruning the connected set to the configured peer limits
//   - Keeping subnets requested by the validator duties covered
//
// The manager is not responsible for:
//   - Dialing peers, which is left to discovery
//   - Scoring peers, which is read from the score store
//   - Serving req/resp protocols
//
// All mutable state is owned by a single event loop goroutine. Connection events, inbound
// req/resp events, timer ticks and public operations are serialized through it, while outbound
// requests run on a worker pool and post their results back to the loop.
//
// # Usage
//
// The manager is created using [NewManager] constructor:
//
//	manager, err := peers.NewManager(params, bus, host.Network(), reqResp, disc, scores, metaStore, chainState)
//
// Once started, the manager emits [EvtPeerUsable] for every peer whose status was accepted and
// [EvtPeerGone] for every tracked peer that disconnected:
//
//	err := manager.Start(ctx)
//
// Stopping the manager says goodbye to all connected peers:
//
//	err := manager.Stop(ctx)
package peers
