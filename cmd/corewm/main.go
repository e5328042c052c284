// Command corewm wires the display connection, GPU backend, and
// compositor event loop together, the same way examples/scene.go wires an
// engine.Engine's window/renderer/camera/scene before calling Run. Flags
// are intentionally minimal: this is a reference wiring point, not a
// configuration surface (spec.md's Non-goals exclude a user-facing config
// format).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/oxywm/corewm/backend/webgpuref"
	"github.com/oxywm/corewm/backend/xgbref"
	"github.com/oxywm/corewm/internal/compositor"
	"github.com/oxywm/corewm/internal/corelog"
	"github.com/oxywm/corewm/internal/gpu"
	"github.com/oxywm/corewm/internal/scheduler"
)

// frameSequence hands out the monotonically increasing gpu.Frame.Sequence
// each presented frame is tagged with.
var frameSequence uint64

func nextFrame() gpu.Frame {
	return gpu.Frame{
		Sequence: atomic.AddUint64(&frameSequence, 1),
		Started:  time.Now(),
	}
}

func main() {
	displayName := flag.String("display", "", "X display name (empty uses $DISPLAY)")
	fallbackAdapter := flag.Bool("software-gpu", false, "force wgpu's fallback/software adapter")
	flag.Parse()

	log := corelog.New(os.Stderr)

	if err := run(*displayName, *fallbackAdapter, log); err != nil {
		log.Errorf("corewm: %v", err)
		os.Exit(1)
	}
}

func run(displayName string, fallbackAdapter bool, log corelog.Logger) error {
	disp, err := xgbref.Connect(displayName, xgbref.WithLogger(log))
	if err != nil {
		return fmt.Errorf("connect to display server: %w", err)
	}
	defer disp.Close()

	owned, err := disp.AcquireSelection()
	if err != nil {
		return fmt.Errorf("acquire compositor manager selection: %w", err)
	}
	if !owned {
		return fmt.Errorf("another compositor already owns the manager selection")
	}

	root, err := disp.RootGeometry()
	if err != nil {
		return fmt.Errorf("query root geometry: %w", err)
	}

	overlay, surfaceDescriptor, err := newOverlaySurface(int(root.Width), int(root.Height))
	if err != nil {
		return fmt.Errorf("create GPU overlay surface: %w", err)
	}
	defer overlay.Destroy()
	defer glfw.Terminate()

	backend, err := webgpuref.Connect(
		surfaceDescriptor, int(root.Width), int(root.Height),
		webgpuref.WithLogger(log),
		webgpuref.WithForceFallbackAdapter(fallbackAdapter),
		webgpuref.WithXConn(disp.Conn()),
	)
	if err != nil {
		return fmt.Errorf("initialize GPU backend: %w", err)
	}

	comp := compositor.New(
		compositor.WithDisplay(disp),
		compositor.WithBackend(backend),
		compositor.WithLogger(log),
		compositor.WithRoot(root),
		compositor.WithRenderFunc(func(entries []scheduler.PaintEntry) error {
			if err := backend.Draw(entries, root); err != nil {
				return err
			}
			return backend.Present(nextFrame())
		}),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infof("corewm: shutdown signal received")
		comp.Quit()
	}()

	return comp.Run()
}

// newOverlaySurface creates the GLFW-backed window the GPU backend presents
// into, and derives its wgpu.SurfaceDescriptor through wgpuglfw the same
// way engine/window/window_glfw.go's platformGetSurfaceDescriptor does.
//
// This is a deliberate simplification: the real X Composite "overlay
// window" is obtained from the server via XCompositeGetOverlayWindow, but
// wgpu-native's X11/Wayland surface creation needs a native display+window
// handle, and xgb (a pure-Go XCB-protocol client) never holds one — only a
// toolkit like GLFW does. Using a GLFW window sized and positioned to cover
// root as the presentation target gets a real, working wgpu surface
// without fabricating a native-handle bridge xgb cannot provide; DESIGN.md
// records the gap this trades away (presenting through an ordinary
// undecorated top-level window rather than the actual composite overlay
// window XID).
func newOverlaySurface(width, height int) (*glfw.Window, *wgpu.SurfaceDescriptor, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("init glfw: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Decorated, glfw.False)

	win, err := glfw.CreateWindow(width, height, "corewm overlay", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("create overlay window: %w", err)
	}
	win.SetPos(0, 0)

	return win, wgpuglfw.GetSurfaceDescriptor(win), nil
}
