package webgpuref

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
)

// MakeMask rasterizes region at size into a single-channel mask Image, used
// by the shadow/blur pipeline to clip a window's drop shadow to its actual
// bounding shape (spec.md §3's per-window mask resource) rather than its
// bounding rectangle.
func (b *Backend) MakeMask(size geom.Rect, region geom.Region) (gpu.Image, error) {
	width, height := int(size.Width), int(size.Height)
	if width <= 0 || height <= 0 {
		return gpu.Image{}, nil
	}

	mask := rasterizeMask(region, size, width, height)

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "window shape mask",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatR8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return gpu.Image{}, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: texture},
		mask,
		&wgpu.TextureDataLayout{BytesPerRow: uint32(width), RowsPerImage: uint32(height)},
		&wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return gpu.Image{}, err
	}
	return gpu.NewImage(&imageEntry{texture: texture, view: view, width: width, height: height}), nil
}

// rasterizeMask paints region's rectangles (translated into size's local
// coordinate space) as 0xff into an otherwise-zeroed width*height byte
// buffer. Factored out of MakeMask so the rasterization itself can be unit
// tested without a GPU device.
func rasterizeMask(region geom.Region, origin geom.Rect, width, height int) []byte {
	out := make([]byte, width*height)
	for _, rect := range region.Rects() {
		local, ok := rect.Intersect(origin)
		if !ok {
			continue
		}
		x0 := int(local.X - origin.X)
		y0 := int(local.Y - origin.Y)
		x1 := x0 + int(local.Width)
		y1 := y0 + int(local.Height)
		x0, y0 = clamp(x0, 0, width), clamp(y0, 0, height)
		x1, y1 = clamp(x1, 0, width), clamp(y1, 0, height)
		for y := y0; y < y1; y++ {
			row := y * width
			for x := x0; x < x1; x++ {
				out[row+x] = 0xff
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
