package beacon

import (
	"fmt"

	ssz "github.com/ferranbt/fastssz"
)

const (
	statusSize   = 4 + 32 + 8 + 32 + 8
	metadataSize = 8 + len(Attnets{})
	uint64Size   = 8
)

var (
	_ ssz.Marshaler   = (*Status)(nil)
	_ ssz.Unmarshaler = (*Status)(nil)
	_ ssz.Marshaler   = (*Metadata)(nil)
	_ ssz.Unmarshaler = (*Metadata)(nil)
)

// Status is the chain summary peers exchange to decide whether they follow the same chain.
type Status struct {
	ForkDigest     ForkDigest
	FinalizedRoot  Root
	FinalizedEpoch Epoch
	HeadRoot       Root
	HeadSlot       Slot
}

func (s *Status) SizeSSZ() int {
	return statusSize
}

func (s *Status) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(s)
}

func (s *Status) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = append(dst, s.ForkDigest[:]...)
	dst = append(dst, s.FinalizedRoot[:]...)
	dst = ssz.MarshalUint64(dst, uint64(s.FinalizedEpoch))
	dst = append(dst, s.HeadRoot[:]...)
	dst = ssz.MarshalUint64(dst, uint64(s.HeadSlot))
	return dst, nil
}

func (s *Status) UnmarshalSSZ(buf []byte) error {
	if len(buf) != statusSize {
		return fmt.Errorf("beacon: status: %w", ssz.ErrSize)
	}
	copy(s.ForkDigest[:], buf[0:4])
	copy(s.FinalizedRoot[:], buf[4:36])
	s.FinalizedEpoch = Epoch(ssz.UnmarshallUint64(buf[36:44]))
	copy(s.HeadRoot[:], buf[44:76])
	s.HeadSlot = Slot(ssz.UnmarshallUint64(buf[76:84]))
	return nil
}

// Metadata is what a peer announces about itself. SeqNumber grows every time Attnets changes.
type Metadata struct {
	SeqNumber uint64
	Attnets   Attnets
}

func (m *Metadata) SizeSSZ() int {
	return metadataSize
}

func (m *Metadata) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(m)
}

func (m *Metadata) MarshalSSZTo(dst []byte) ([]byte, error) {
	dst = ssz.MarshalUint64(dst, m.SeqNumber)
	dst = append(dst, m.Attnets[:]...)
	return dst, nil
}

func (m *Metadata) UnmarshalSSZ(buf []byte) error {
	if len(buf) != metadataSize {
		return fmt.Errorf("beacon: metadata: %w", ssz.ErrSize)
	}
	m.SeqNumber = ssz.UnmarshallUint64(buf[0:8])
	copy(m.Attnets[:], buf[8:])
	return nil
}

// Uint64 is the payload of ping and goodbye messages.
type Uint64 uint64

func (u *Uint64) SizeSSZ() int {
	return uint64Size
}

func (u *Uint64) MarshalSSZ() ([]byte, error) {
	return ssz.MarshalSSZ(u)
}

func (u *Uint64) MarshalSSZTo(dst []byte) ([]byte, error) {
	return ssz.MarshalUint64(dst, uint64(*u)), nil
}

func (u *Uint64) UnmarshalSSZ(buf []byte) error {
	if len(buf) != uint64Size {
		return fmt.Errorf("beacon: uint64: %w", ssz.ErrSize)
	}
	*u = Uint64(ssz.UnmarshallUint64(buf))
	return nil
}
