package webgpuref

import (
	"fmt"
	"math"
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxywm/corewm/internal/geom"
	"github.com/oxywm/corewm/internal/gpu"
	"github.com/oxywm/corewm/internal/scheduler"
)

// frameState is the in-flight acquired-surface state, split the same way
// wgpu_renderer_backend.go splits BeginFrame/EndFrame/Present: Draw
// acquires the surface, encodes and submits every window's quad, and
// EndFrame's submit boundary; Present (the gpu.Backend interface method)
// only performs the swap, matching spec.md §6's narrow single-method
// Present(frame).
type frameState struct {
	surfaceTexture *wgpu.SurfaceTexture
	view           *wgpu.TextureView
}

// Draw encodes and submits one textured, opacity-blended quad per
// to_paint entry, bottom-to-top in stacking order, against root's extent.
// This is the compositing step spec.md §5 calls "render"; it is exposed
// here (rather than folded into the narrow gpu.Backend.Present) because a
// RenderFunc wired against this concrete backend needs the paint-
// preprocess result Present alone never receives.
func (b *Backend) Draw(entries []scheduler.PaintEntry, root geom.Rect) error {
	start := time.Now()

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("webgpuref: acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("webgpuref: create surface view: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0, G: 0, B: 0, A: 1,
				},
			},
		},
	})
	pass.SetPipeline(b.quadPipeline)

	// entries arrive top-to-bottom (PaintPreprocess order); walk them in
	// reverse so lower windows are painted first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.ToPaint {
			continue
		}
		if err := b.drawEntry(pass, e, root); err != nil {
			b.log.Warnf("webgpuref: skipping window draw: %v", err)
		}
	}

	pass.End()
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		view.Release()
		surfaceTexture.Release()
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	b.mu.Lock()
	b.pending = &frameState{surfaceTexture: surfaceTexture, view: view}
	b.lastRenderDur = time.Since(start)
	b.lastRenderValid = true
	b.mu.Unlock()

	return nil
}

// drawEntry binds e's window image (falling back to its saved snapshot
// while the window has no live image, per spec.md §3) and issues one
// instance of the quad pipeline covering its effective geometry mapped
// into root's clip space.
func (b *Backend) drawEntry(pass *wgpu.RenderPassEncoder, e scheduler.PaintEntry, root geom.Rect) error {
	img := e.Record.Res.Window
	if !img.Valid() {
		img = e.Record.Res.Saved
	}
	entry, ok := img.Handle().(*imageEntry)
	if !ok || entry == nil {
		return fmt.Errorf("window %d has no bound image", e.Record.Handle)
	}

	rect := e.Record.Derived.EffectiveGeom
	uniforms := quadUniforms{
		rectX:   clipCoord(rect.X, root.Width),
		rectY:   clipCoord(rect.Y, root.Height),
		rectW:   clipExtent(rect.Width, root.Width),
		rectH:   clipExtent(rect.Height, root.Height),
		opacity: float32(e.Record.Derived.FrameOpacity),
	}

	data := quadUniformsBytes(uniforms)
	uniformBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "quad uniforms",
		Size:             uint64(len(data)),
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return err
	}
	defer uniformBuf.Release()
	b.queue.WriteBuffer(uniformBuf, 0, data)

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "quad bind group",
		Layout: b.quadBindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuf, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: b.sampler},
			{Binding: 2, TextureView: entry.view},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(4, 1, 0, 0)
	return nil
}

// clipCoord maps a root-relative pixel coordinate to WebGPU's [-1, 1]
// clip-space, Y-down to match X11's coordinate convention.
func clipCoord(px int32, extent int32) float32 {
	if extent == 0 {
		return -1
	}
	return 2*(float32(px)/float32(extent)) - 1
}

// clipExtent maps a pixel extent to a clip-space delta.
func clipExtent(px int32, extent int32) float32 {
	if extent == 0 {
		return 0
	}
	return 2 * (float32(px) / float32(extent))
}

func quadUniformsBytes(u quadUniforms) []byte {
	buf := make([]byte, 32)
	putFloat32(buf[0:], u.rectX)
	putFloat32(buf[4:], u.rectY)
	putFloat32(buf[8:], u.rectW)
	putFloat32(buf[12:], u.rectH)
	putFloat32(buf[16:], u.opacity)
	return buf
}

func putFloat32(dst []byte, v float32) {
	bits := math.Float32bits(v)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}

// Present issues the swap of the surface texture Draw already rendered
// into, per gpu.Backend.Present("issues the accumulated render commands for
// frame"). frame.Sequence/Started are accepted for interface conformance;
// this backend's timing is tracked internally by Draw/LastRenderTime.
func (b *Backend) Present(frame gpu.Frame) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	if pending == nil {
		return fmt.Errorf("webgpuref: Present called with no pending frame from Draw")
	}
	b.surface.Present()
	pending.view.Release()
	pending.surfaceTexture.Release()
	return nil
}
