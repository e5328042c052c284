// Package gpu defines the abstract GPU backend the compositor core
// consumes, per spec.md §6. Rendering correctness of shadow/blur kernels is
// explicitly a Non-goal (spec.md §1); this package only names the
// operations the core's render pass drives.
package gpu

import (
	"time"

	"github.com/oxywm/corewm/internal/geom"
)

// Image is an opaque GPU-resident image handle (spec.md §3 "GPU
// resources"): a bound window pixmap, a saved cross-fade snapshot, a
// shadow, or a mask. The concrete representation is backend-defined; the
// core never inspects it.
type Image struct {
	handle any
}

// NewImage wraps a backend-specific value as an Image. Backends call this;
// core code only passes Images through.
func NewImage(handle any) Image { return Image{handle: handle} }

// Handle returns the backend-specific value a Backend implementation
// stashed in this Image.
func (i Image) Handle() any { return i.handle }

// Valid reports whether the Image wraps a non-nil backend handle.
func (i Image) Valid() bool { return i.handle != nil }

// Shader is an opaque compiled shader handle.
type Shader struct {
	handle any
}

// NewShader wraps a backend-specific compiled-shader value.
func NewShader(handle any) Shader { return Shader{handle: handle} }

// Handle returns the backend-specific shader value.
func (s Shader) Handle() any { return s.handle }

// DeviceStatus reports the GPU device's health, per spec.md §7 "Device
// reset".
type DeviceStatus int

const (
	DeviceOK DeviceStatus = iota
	DeviceLost
	DeviceError
)

// Frame carries the per-frame render context handed to Present.
type Frame struct {
	Sequence uint64
	Started  time.Time
}

// Backend is the abstract GPU backend named in spec.md §6.
type Backend interface {
	// BindPixmap binds a server-side named pixmap (from
	// xserver.Display.NamedPixmap) into a backend Image.
	BindPixmap(pixmap uintptr) (Image, error)

	// ReleaseImage releases a previously bound or created Image. Safe to
	// call with an invalid Image (no-op).
	ReleaseImage(img Image)

	// CloneImage snapshots region of img into a new, independently-owned
	// Image, used for the cross-fade-on-resize/unmap saved image
	// (spec.md §3 "an optional saved image").
	CloneImage(img Image, region geom.Rect) (Image, error)

	// MakeMask rasterizes region at size into a single-channel mask Image.
	MakeMask(size geom.Rect, region geom.Region) (Image, error)

	// RenderShadow renders a drop shadow of the given size/color given a
	// paint context opaque to the core (backend-defined); ctx is typically
	// the window's mask Image. Shadow kernel correctness is a Non-goal.
	RenderShadow(size geom.Rect, ctx Image, color [4]float32) (Image, error)

	// CreateShader compiles source into a reusable shader handle (used for
	// scripted foreground shaders, spec.md §3 "foreground shader
	// binding").
	CreateShader(source string) (Shader, error)

	// SetImageProperty attaches a backend-defined key/value pair to img
	// (e.g. a shader binding or blend mode); the core treats both as
	// opaque.
	SetImageProperty(img Image, key string, value any)

	// LastRenderTime returns the CPU+GPU duration of the most recently
	// completed render, if one has completed since the last call, per
	// spec.md §4.4 "queries the backend for whether the last render has
	// completed".
	LastRenderTime() (time.Duration, bool)

	// MaxBufferAge returns the number of back buffers the backend retains,
	// bounding how stale an accumulated damage region may be.
	MaxBufferAge() int

	// RootChange notifies the backend that the root window geometry
	// changed (monitor layout, resolution change).
	RootChange()

	// DeviceStatus reports current GPU device health.
	DeviceStatus() DeviceStatus

	// Present issues the accumulated render commands for frame.
	Present(frame Frame) error
}
