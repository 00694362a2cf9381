//go:build poolblock_debug

package sidechain

import (
	"bytes"
	"slices"

	"git.gammaspectra.live/P2Pool/sharechain/utils"
)

// debugData encodings captured when the block was parsed, every later serialization must reproduce them
type debugData struct {
	mainData []byte
	sideData []byte
}

const debugEnabled = true

func (d *debugData) capture(mainData, sideData []byte) {
	d.mainData = slices.Clone(mainData)
	d.sideData = slices.Clone(sideData)
}

func (d *debugData) copyFrom(other *debugData) {
	d.capture(other.mainData, other.sideData)
}

func (d *debugData) checkMainchain(mainData []byte) {
	if len(d.mainData) > 0 && !bytes.Equal(mainData, d.mainData) {
		utils.Panicf("PoolBlock", "mainchain serialization does not match the parsed block, fix the code!")
	}
}

func (d *debugData) checkSidechain(sideData []byte) {
	if len(d.sideData) > 0 && !bytes.Equal(sideData, d.sideData) {
		utils.Panicf("PoolBlock", "sidechain serialization does not match the parsed block, fix the code!")
	}
}
