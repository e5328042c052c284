package webgpuref

import "github.com/cogentcore/webgpu/wgpu"

// quadShaderSource is the minimal WGSL program drawing one textured,
// opacity-blended rectangle per painted window. Position/size are supplied
// per-draw through a uniform buffer (quadUniforms) rather than a vertex
// buffer, mirroring how wgpu_renderer_backend.go keeps per-instance data in
// bind-group buffers instead of re-encoding geometry per draw call.
const quadShaderSource = `
struct QuadUniforms {
    rect: vec4<f32>,   // x, y, width, height in clip-space-normalized units
    opacity: f32,
    _pad0: f32,
    _pad1: f32,
    _pad2: f32,
};

@group(0) @binding(0) var<uniform> quad: QuadUniforms;
@group(0) @binding(1) var quadSampler: sampler;
@group(0) @binding(2) var quadTexture: texture_2d<f32>;

struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOut {
    var corners = array<vec2<f32>, 4>(
        vec2<f32>(0.0, 0.0),
        vec2<f32>(1.0, 0.0),
        vec2<f32>(0.0, 1.0),
        vec2<f32>(1.0, 1.0),
    );
    let c = corners[idx];
    var out: VertexOut;
    let clipXY = vec2<f32>(quad.rect.x + c.x * quad.rect.z, quad.rect.y + c.y * quad.rect.w);
    out.position = vec4<f32>(clipXY, 0.0, 1.0);
    out.uv = c;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    let texel = textureSample(quadTexture, quadSampler, in.uv);
    return vec4<f32>(texel.rgb, texel.a * quad.opacity);
}
`

// quadUniforms is the CPU-side mirror of the WGSL QuadUniforms struct: one
// vec4 followed by four f32 scalars, 32 bytes in both declarations, matching
// how wgpu_renderer_backend.go's bind_group_provider
// package keeps uniform structs field-for-field with their WGSL
// declarations.
type quadUniforms struct {
	rectX, rectY, rectW, rectH float32
	opacity                    float32
	_pad0, _pad1, _pad2        float32
}

func (b *Backend) buildQuadPipeline() error {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "corewm quad shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: quadShaderSource},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	bindGroupLayout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "corewm quad bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type: wgpu.BufferBindingTypeUniform,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return err
	}
	defer bindGroupLayout.Release()
	b.quadBindGroupLayout = bindGroupLayout

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "corewm quad pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindGroupLayout},
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	pipeline, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "corewm quad pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format: b.format,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
						Alpha: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
					},
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleStrip,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return err
	}
	b.quadPipeline = pipeline
	return nil
}
