//go:build !poolblock_debug

package sidechain

// debugData reference encodings are only kept with the poolblock_debug build tag
type debugData struct{}

const debugEnabled = false

func (d *debugData) capture(mainData, sideData []byte) {}

func (d *debugData) copyFrom(other *debugData) {}

func (d *debugData) checkMainchain(mainData []byte) {}

func (d *debugData) checkSidechain(sideData []byte) {}
