package webgpuref

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxywm/corewm/internal/geom"
)

func TestRasterizeMaskFillsOnlyRegionArea(t *testing.T) {
	origin := geom.Rect{X: 10, Y: 10, Width: 8, Height: 8}
	region := geom.NewRegion(geom.Rect{X: 12, Y: 12, Width: 2, Height: 2})

	mask := rasterizeMask(region, origin, 8, 8)
	assert.Equal(t, byte(0xff), mask[2*8+2])
	assert.Equal(t, byte(0), mask[0])
	assert.Equal(t, byte(0), mask[7*8+7])
}

func TestRasterizeMaskClipsToBounds(t *testing.T) {
	origin := geom.Rect{X: 0, Y: 0, Width: 4, Height: 4}
	region := geom.NewRegion(geom.Rect{X: -2, Y: -2, Width: 10, Height: 10})

	mask := rasterizeMask(region, origin, 4, 4)
	for _, v := range mask {
		assert.Equal(t, byte(0xff), v)
	}
}

func TestRasterizeShadowFadesTowardEdges(t *testing.T) {
	pixels := rasterizeShadow(40, 40, [4]float32{0, 0, 0, 1})
	centerAlpha := pixels[(20*40+20)*4+3]
	cornerAlpha := pixels[(0*40+0)*4+3]
	assert.Greater(t, centerAlpha, cornerAlpha)
}

func TestBGRXToRGBASwapsChannelsAndForcesOpaque(t *testing.T) {
	// one BGRX pixel: blue=0x10, green=0x20, red=0x30, pad=0x00
	data := []byte{0x10, 0x20, 0x30, 0x00}
	out := bgrxToRGBA(data, 1, 1)
	assert.Equal(t, []byte{0x30, 0x20, 0x10, 0xff}, out)
}

func TestClipCoordAndExtentMapFullRootToUnitClipSpace(t *testing.T) {
	assert.InDelta(t, -1.0, clipCoord(0, 1920), 0.001)
	assert.InDelta(t, 1.0, clipCoord(1920, 1920), 0.001)
	assert.InDelta(t, 2.0, clipExtent(1920, 1920), 0.001)
	assert.Equal(t, float32(0), clipExtent(100, 0))
}
