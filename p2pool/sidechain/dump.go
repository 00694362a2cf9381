package sidechain

import (
	"encoding/binary"
	"fmt"
	"io"

	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// LoadPoolBlocks reads consecutive uint32 little endian length prefixed blocks until EOF
func LoadPoolBlocks(consensus *Consensus, derivationCache DerivationCacheInterface, reader io.Reader) ([]*PoolBlock, error) {
	var err error
	var buf []byte

	var blocks []*PoolBlock

	for {
		var blockLen uint32
		if err = binary.Read(reader, binary.LittleEndian, &blockLen); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		if blockLen > PoolBlockMaxTemplateSize {
			return nil, fmt.Errorf("block %d: %w: %d", len(blocks), ErrBufferTooLarge, blockLen)
		}
		if _, err = utils.ReadFullProgressive(reader, &buf, int(blockLen)); err != nil {
			return nil, fmt.Errorf("block %d: %w", len(blocks), err)
		}
		b := &PoolBlock{}
		if err = b.UnmarshalBinary(consensus, derivationCache, buf); err != nil {
			return nil, fmt.Errorf("block %d: %w", len(blocks), err)
		}
		blocks = append(blocks, b)
	}

	return blocks, nil
}

// WritePoolBlocks inverse of LoadPoolBlocks
func WritePoolBlocks(writer io.Writer, blocks ...*PoolBlock) error {
	var buf []byte
	for _, b := range blocks {
		var err error
		buf = binary.LittleEndian.AppendUint32(buf[:0], 0)
		if buf, err = b.AppendBinary(buf); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(buf, uint32(len(buf)-4))
		if _, err = writer.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
