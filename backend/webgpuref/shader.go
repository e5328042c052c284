package webgpuref

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oxywm/corewm/internal/gpu"
)

// CreateShader compiles source (WGSL) into a reusable shader handle, used
// for scripted foreground shaders (spec.md §3 "foreground shader
// binding"). The core treats the returned gpu.Shader as opaque; only a
// RenderFunc wired against this concrete backend ever unwraps it.
func (b *Backend) CreateShader(source string) (gpu.Shader, error) {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "corewm foreground shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return gpu.Shader{}, err
	}
	return gpu.NewShader(&shaderHandle{module: module}), nil
}

// shaderHandle is the concrete value gpu.Shader wraps for this backend.
type shaderHandle struct {
	module *wgpu.ShaderModule
}
