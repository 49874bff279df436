package reqresp

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/protocol"
)

const (
	protocolPrefix = "/eth2/beacon_chain/req"
	schemaVersion  = 1
	encoding       = "ssz_snappy"
)

// Method is a req/resp protocol message name.
type Method string

const (
	MethodStatus   Method = "status"
	MethodPing     Method = "ping"
	MethodMetadata Method = "metadata"
	MethodGoodbye  Method = "goodbye"
)

var methods = []Method{MethodStatus, MethodPing, MethodMetadata, MethodGoodbye}

// ProtocolID returns the libp2p protocol id of the method.
func ProtocolID(m Method) protocol.ID {
	return protocol.ID(fmt.Sprintf("%s/%s/%d/%s", protocolPrefix, m, schemaVersion, encoding))
}
