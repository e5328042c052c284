// Package webgpuref is the reference gpu.Backend adapter over
// cogentcore/webgpu, grounded on engine/renderer/wgpu_renderer_backend.go's
// device/queue/instance/adapter/surface wrapper and its
// BeginFrame/DrawCall/EndFrame/Present frame-batching split. The teacher's
// mesh/pipeline/bind-group machinery is generalized down to the much
// narrower surface gpu.Backend names: one textured quad per painted window,
// composited bottom-to-top with per-window opacity (spec.md §6).
//
// BindPixmap's pixel upload path (pixmap.go) reads the named pixmap back
// over the X connection with a plain GetImage round trip rather than MIT-SHM
// shared memory — a real compositor avoids that per-frame copy cost, but
// rendering/upload performance is the same kind of concern spec.md §1 already
// puts out of scope for shadow/blur kernels, and no corpus example wires
// MIT-SHM, so the simpler round trip is used here and the gap is recorded in
// DESIGN.md rather than invented against.
package webgpuref

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/gpu"
)

// Option configures a Backend, the same With*-function-over-unexported-
// struct shape every package in this module uses
// (engine/engine_builder.go's EngineBuilderOption).
type Option func(*Backend)

// WithLogger overrides the logger; defaults to corelog.Nop().
func WithLogger(log corelog.Logger) Option {
	return func(b *Backend) { b.log = log }
}

// WithForceFallbackAdapter forces wgpu's software/fallback adapter,
// matching newWGPURendererBackend's forceFallbackAdapter parameter — useful
// for headless CI rendering.
func WithForceFallbackAdapter(force bool) Option {
	return func(b *Backend) { b.forceFallback = force }
}

// WithXConn supplies the X connection pixmap reads are issued over. Callers
// typically share the xgbref.Display's underlying connection so this
// backend doesn't open a second client connection to the server.
func WithXConn(conn *xgb.Conn) Option {
	return func(b *Backend) { b.xconn = conn }
}

// imageEntry is the concrete value gpu.Image wraps for this backend: a
// bound GPU texture plus the view drawing reads it through (the sampler is
// shared, held on Backend).
type imageEntry struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   int
	height  int
	props   map[string]any
}

// Backend is the cogentcore/webgpu-backed gpu.Backend implementation.
type Backend struct {
	log           corelog.Logger
	forceFallback bool
	xconn         *xgb.Conn

	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	format   wgpu.TextureFormat

	quadPipeline        *wgpu.RenderPipeline
	quadBindGroupLayout *wgpu.BindGroupLayout
	sampler             *wgpu.Sampler

	pending *frameState

	lastRenderDur   time.Duration
	lastRenderValid bool
	maxBufferAge    int
	status          gpu.DeviceStatus
}

var _ gpu.Backend = (*Backend)(nil)

// Connect creates the wgpu instance/adapter/device/queue and configures
// surface for presentation, mirroring newWGPURendererBackend's
// CreateInstance -> CreateSurface -> RequestAdapter -> RequestDevice chain.
func Connect(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, opts ...Option) (*Backend, error) {
	b := &Backend{
		log:          corelog.Nop(),
		maxBufferAge: 2,
		status:       gpu.DeviceOK,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallback,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpuref: request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "corewm compositor device"})
	if err != nil {
		return nil, fmt.Errorf("webgpuref: request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	device.SetDeviceLostCallback(func(reason wgpu.DeviceLostReason, msg string) {
		b.mu.Lock()
		b.status = gpu.DeviceLost
		b.mu.Unlock()
		b.log.Warnf("webgpuref: device lost (%v): %s", reason, msg)
	})
	device.SetUncapturedErrorCallback(func(errType wgpu.ErrorType, msg string) {
		b.mu.Lock()
		b.status = gpu.DeviceError
		b.mu.Unlock()
		b.log.Errorf("webgpuref: uncaptured device error (%v): %s", errType, msg)
	})

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.format = capabilities.Formats[0]
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpuref: create sampler: %w", err)
	}
	b.sampler = sampler

	if err := b.buildQuadPipeline(); err != nil {
		return nil, err
	}

	return b, nil
}

// RootChange handles a monitor layout/resolution change, per
// gpu.Backend.RootChange. It only logs the change; the presentation surface
// keeps the size it was configured with in Connect.
func (b *Backend) RootChange() {
	b.log.Infof("webgpuref: root geometry changed; surface reconfigure deferred to next Connect-style resize call")
}

// DeviceStatus reports current GPU device health, per gpu.Backend.DeviceStatus.
func (b *Backend) DeviceStatus() gpu.DeviceStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// LastRenderTime returns the duration Draw measured for the most recent
// frame, if one has been recorded since the last call, per spec.md §4.4.
// The duration covers CPU-side encoding and submission only; Draw does not
// wait for the GPU to finish the frame.
func (b *Backend) LastRenderTime() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.lastRenderValid {
		return 0, false
	}
	b.lastRenderValid = false
	return b.lastRenderDur, true
}

// MaxBufferAge returns the number of back buffers this backend retains.
func (b *Backend) MaxBufferAge() int { return b.maxBufferAge }

// SetImageProperty attaches a backend-defined key/value pair to img.
func (b *Backend) SetImageProperty(img gpu.Image, key string, value any) {
	entry, ok := img.Handle().(*imageEntry)
	if !ok || entry == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry.props == nil {
		entry.props = make(map[string]any)
	}
	entry.props[key] = value
}
