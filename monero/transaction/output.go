package transaction

import (
	"encoding/binary"
	"fmt"
	"io"

	"git.gammaspectra.live/P2Pool/sharechain/monero/crypto"
	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// MaxOutputs bounds pre-allocation when decoding, not a consensus rule
const MaxOutputs = 8192

type Outputs []Output

type Output struct {
	Index uint64 `json:"index"`
	// Reward amount of Monero rewarded on this output.
	Reward             uint64                `json:"reward"`
	EphemeralPublicKey crypto.PublicKeyBytes `json:"ephemeral_public_key"`
	// ViewTag only present on the wire when the block output type is TxOutToTaggedKey
	ViewTag uint8 `json:"view_tag"`
}

// FromReader decodes a varint count followed by outputs, all of which must be of outputType
func (s *Outputs) FromReader(reader utils.ReaderAndByteReader, outputType uint8) (err error) {
	if outputType != TxOutToKey && outputType != TxOutToTaggedKey {
		return fmt.Errorf("unknown output type %d", outputType)
	}

	var outputCount uint64

	if outputCount, err = utils.ReadCanonicalUvarint(reader); err != nil {
		return err
	}

	*s = make(Outputs, 0, min(outputCount, MaxOutputs))

	var o Output
	var t uint8
	for index := range outputCount {
		o.Index = index

		if o.Reward, err = utils.ReadCanonicalUvarint(reader); err != nil {
			return err
		}

		if t, err = reader.ReadByte(); err != nil {
			return err
		} else if t != outputType {
			return fmt.Errorf("output %d: expected type %d, got %d", index, outputType, t)
		}

		if _, err = io.ReadFull(reader, o.EphemeralPublicKey[:]); err != nil {
			return err
		}

		if outputType == TxOutToTaggedKey {
			if o.ViewTag, err = reader.ReadByte(); err != nil {
				return err
			}
		} else {
			o.ViewTag = 0
		}

		*s = append(*s, o)
	}
	return nil
}

func (s Outputs) BufferLength(outputType uint8) (n int) {
	n = utils.UVarInt64Size(len(s))
	for _, o := range s {
		n += utils.UVarInt64Size(o.Reward) + 1 + crypto.PublicKeySize
		if outputType == TxOutToTaggedKey {
			n++
		}
	}
	return n
}

func (s Outputs) MarshalBinary(outputType uint8) ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, s.BufferLength(outputType)), outputType)
}

// AppendBinary writes every output with the same outputType, view tags are written only for TxOutToTaggedKey
func (s Outputs) AppendBinary(preAllocatedBuf []byte, outputType uint8) (data []byte, err error) {
	if outputType != TxOutToKey && outputType != TxOutToTaggedKey {
		return nil, fmt.Errorf("unknown output type %d", outputType)
	}

	data = binary.AppendUvarint(preAllocatedBuf, uint64(len(s)))

	for _, o := range s {
		data = binary.AppendUvarint(data, o.Reward)
		data = append(data, outputType)
		data = append(data, o.EphemeralPublicKey[:]...)

		if outputType == TxOutToTaggedKey {
			data = append(data, o.ViewTag)
		}
	}
	return data, nil
}
