// Package reqresp implements the beacon request/response protocols the peer manager relies on:
// status, ping, metadata and goodbye.
//
// Every protocol runs over its own libp2p stream. A request is the varint-prefixed length of the SSZ
// payload followed by the snappy-framed payload. A response is prefixed by a single result byte.
// Inbound requests are answered from the local chain state and local metadata, and surfaced on the
// host event bus as EvtStatusReceived, EvtPingReceived and EvtGoodbyeReceived.
package reqresp
