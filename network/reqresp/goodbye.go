package reqresp

import "strconv"

// GoodbyeReason is the code sent with a goodbye message.
type GoodbyeReason uint64

const (
	GoodbyeClientShutdown    GoodbyeReason = 1
	GoodbyeIrrelevantNetwork GoodbyeReason = 2
	GoodbyeError             GoodbyeReason = 3
	GoodbyeUnableToVerify    GoodbyeReason = 128
	GoodbyeTooManyPeers      GoodbyeReason = 129
	GoodbyeScoreTooLow       GoodbyeReason = 250
	GoodbyeBanned            GoodbyeReason = 251
)

var goodbyeDescriptions = map[GoodbyeReason]string{
	GoodbyeClientShutdown:    "client shutdown",
	GoodbyeIrrelevantNetwork: "irrelevant network",
	GoodbyeError:             "fault/error",
	GoodbyeUnableToVerify:    "unable to verify network",
	GoodbyeTooManyPeers:      "too many peers",
	GoodbyeScoreTooLow:       "peer score too low",
	GoodbyeBanned:            "peer banned this node",
}

// Known reports whether the code has a registered description.
func (r GoodbyeReason) Known() bool {
	_, ok := goodbyeDescriptions[r]
	return ok
}

func (r GoodbyeReason) String() string {
	if desc, ok := goodbyeDescriptions[r]; ok {
		return desc
	}
	return "unknown(" + strconv.FormatUint(uint64(r), 10) + ")"
}
