package webgpuref

import (
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
)

// shadowFalloffPixels is the width of the linear edge falloff used by
// rasterizeShadow. Shadow kernel correctness is a Non-goal (spec.md §1:
// "Rendering correctness of shadow/blur kernels is explicitly a
// Non-goal"), so this is a deliberately simple analytic falloff rather than
// a true separable Gaussian blur of ctx's mask.
const shadowFalloffPixels = 12.0

// RenderShadow renders a drop shadow of the given size/color covering the
// whole size rectangle. ctx is not consulted: the shadow is not clipped
// against the window's mask. The falloff is computed analytically from each
// texel's distance to the rectangle's border rather than a real blur pass —
// see shadowFalloffPixels.
func (b *Backend) RenderShadow(size geom.Rect, ctx gpu.Image, color [4]float32) (gpu.Image, error) {
	width, height := int(size.Width), int(size.Height)
	if width <= 0 || height <= 0 {
		return gpu.Image{}, nil
	}

	pixels := rasterizeShadow(width, height, color)

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "window drop shadow",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return gpu.Image{}, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: texture},
		pixels,
		&wgpu.TextureDataLayout{BytesPerRow: uint32(width * 4), RowsPerImage: uint32(height)},
		&wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return gpu.Image{}, err
	}
	return gpu.NewImage(&imageEntry{texture: texture, view: view, width: width, height: height}), nil
}

// rasterizeShadow fills a width*height RGBA8 buffer with color, its alpha
// channel attenuated by distance-to-edge so the shadow fades out toward
// size's border instead of presenting a hard-edged rectangle.
func rasterizeShadow(width, height int, color [4]float32) []byte {
	out := make([]byte, width*height*4)
	r := byte(clampFloat(color[0]) * 255)
	g := byte(clampFloat(color[1]) * 255)
	bch := byte(clampFloat(color[2]) * 255)
	baseAlpha := clampFloat(color[3])

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			distX := float64(min(x, width-1-x))
			distY := float64(min(y, height-1-y))
			dist := math.Min(distX, distY)
			falloff := dist / shadowFalloffPixels
			if falloff > 1 {
				falloff = 1
			}
			idx := (y*width + x) * 4
			out[idx+0] = r
			out[idx+1] = g
			out[idx+2] = bch
			out[idx+3] = byte(baseAlpha * float32(falloff) * 255)
		}
	}
	return out
}

func clampFloat(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
