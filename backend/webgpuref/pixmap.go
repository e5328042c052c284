package webgpuref

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
)

// BindPixmap reads the named pixmap's geometry and pixels over the X
// connection and uploads them into a new GPU texture, per gpu.Backend's
// "binds a server-side named pixmap ... into a backend Image" contract.
func (b *Backend) BindPixmap(pixmap uintptr) (gpu.Image, error) {
	if b.xconn == nil {
		return gpu.Image{}, fmt.Errorf("webgpuref: BindPixmap requires WithXConn")
	}
	drawable := xproto.Drawable(pixmap)

	geomReply, err := xproto.GetGeometry(b.xconn, drawable).Reply()
	if err != nil {
		return gpu.Image{}, fmt.Errorf("webgpuref: get pixmap geometry: %w", err)
	}
	width, height := int(geomReply.Width), int(geomReply.Height)
	if width <= 0 || height <= 0 {
		return gpu.Image{}, fmt.Errorf("webgpuref: pixmap %d has zero-area geometry", pixmap)
	}

	imgReply, err := xproto.GetImage(
		b.xconn, xproto.ImageFormatZPixmap, drawable,
		0, 0, uint16(width), uint16(height),
		0xffffffff,
	).Reply()
	if err != nil {
		return gpu.Image{}, fmt.Errorf("webgpuref: get pixmap image: %w", err)
	}

	pixels := bgrxToRGBA(imgReply.Data, width, height)
	entry, err := b.uploadRGBA(pixels, width, height, "window pixmap texture")
	if err != nil {
		return gpu.Image{}, err
	}
	return gpu.NewImage(entry), nil
}

// bgrxToRGBA converts the 32-bit BGRX pixel layout X's core protocol uses
// for ZPixmap depth-24 images (the common case for composited windows)
// into the RGBA8 layout wgpu textures expect.
func bgrxToRGBA(data []byte, width, height int) []byte {
	out := make([]byte, width*height*4)
	n := width * height
	for i := 0; i < n && i*4+3 < len(data); i++ {
		b0, g0, r0 := data[i*4], data[i*4+1], data[i*4+2]
		out[i*4+0] = r0
		out[i*4+1] = g0
		out[i*4+2] = b0
		out[i*4+3] = 0xff
	}
	return out
}

// uploadRGBA creates a sampled RGBA8 texture sized width x height and
// writes pixels into it in one WriteTexture call, mirroring
// wgpu_renderer_backend.go's CreateTexture+CreateView pattern used for its
// MSAA/depth render targets, generalized to an externally-sourced image
// instead of an internally-rendered target.
func (b *Backend) uploadRGBA(pixels []byte, width, height int, label string) (*imageEntry, error) {
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: texture},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * 4),
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	)

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, err
	}

	return &imageEntry{texture: texture, view: view, width: width, height: height}, nil
}

// ReleaseImage releases a previously bound or created Image. Safe to call
// with an invalid Image.
func (b *Backend) ReleaseImage(img gpu.Image) {
	entry, ok := img.Handle().(*imageEntry)
	if !ok || entry == nil {
		return
	}
	if entry.view != nil {
		entry.view.Release()
	}
	if entry.texture != nil {
		entry.texture.Release()
	}
}

// CloneImage snapshots region of img into a new, independently-owned
// Image, used for the cross-fade-on-resize/unmap saved image (spec.md §3
// "an optional saved image"). The copy is a GPU CopyTextureToTexture from
// the source's origin: only region's size is used (clamped to the source
// size; an empty region copies the whole image), and region.X/Y are ignored.
func (b *Backend) CloneImage(img gpu.Image, region geom.Rect) (gpu.Image, error) {
	entry, ok := img.Handle().(*imageEntry)
	if !ok || entry == nil {
		return gpu.Image{}, fmt.Errorf("webgpuref: CloneImage: invalid source image")
	}
	width, height := int(region.Width), int(region.Height)
	if width <= 0 || height <= 0 {
		width, height = entry.width, entry.height
	}

	dst, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "cloned window image",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return gpu.Image{}, err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		dst.Release()
		return gpu.Image{}, err
	}
	copyWidth, copyHeight := min(width, entry.width), min(height, entry.height)
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: entry.texture},
		&wgpu.ImageCopyTexture{Texture: dst},
		&wgpu.Extent3D{Width: uint32(copyWidth), Height: uint32(copyHeight), DepthOrArrayLayers: 1},
	)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		dst.Release()
		return gpu.Image{}, err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	view, err := dst.CreateView(nil)
	if err != nil {
		dst.Release()
		return gpu.Image{}, err
	}

	return gpu.NewImage(&imageEntry{texture: dst, view: view, width: width, height: height}), nil
}
