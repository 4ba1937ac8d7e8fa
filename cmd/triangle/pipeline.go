package main

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"

	"vkplayground/internal/vkutil"
)

var (
	vertices = []mgl32.Vec2{
		{-0.5, -0.25},
		{0, 0.5},
		{0.25, -0.1},
	}
	clearColor = mgl32.Vec4{0, 0, 1, 1}
)

func vertexBytes(verts []mgl32.Vec2) []byte {
	size := len(verts) * int(unsafe.Sizeof(mgl32.Vec2{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), size)
}

// chooseSurfaceFormat takes whatever the surface lists first.
func chooseSurfaceFormat(iface *vkutil.Interface) (vulkan.SurfaceFormat, error) {
	var count uint32
	vulkan.GetPhysicalDeviceSurfaceFormats(iface.Physical(), iface.Surface(), &count, nil)
	if count == 0 {
		return vulkan.SurfaceFormat{}, errNoSurfaceFormat
	}
	formats := make([]vulkan.SurfaceFormat, count)
	vulkan.GetPhysicalDeviceSurfaceFormats(iface.Physical(), iface.Surface(), &count, formats)
	formats[0].Deref()
	return formats[0], nil
}

func createRenderPass(device vulkan.Device, format vulkan.Format) (vulkan.RenderPass, error) {
	color := vulkan.AttachmentDescription{
		Format:         format,
		Samples:        vulkan.SampleCount1Bit,
		LoadOp:         vulkan.AttachmentLoadOpClear,
		StoreOp:        vulkan.AttachmentStoreOpStore,
		StencilLoadOp:  vulkan.AttachmentLoadOpDontCare,
		StencilStoreOp: vulkan.AttachmentStoreOpDontCare,
		InitialLayout:  vulkan.ImageLayoutUndefined,
		FinalLayout:    vulkan.ImageLayoutPresentSrc,
	}
	subpass := vulkan.SubpassDescription{
		PipelineBindPoint:    vulkan.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vulkan.AttachmentReference{{
			Attachment: 0,
			Layout:     vulkan.ImageLayoutColorAttachmentOptimal,
		}},
	}
	dependency := vulkan.SubpassDependency{
		SrcSubpass:    vulkan.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vulkan.PipelineStageFlags(vulkan.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vulkan.AccessFlags(vulkan.AccessColorAttachmentWriteBit),
	}
	createInfo := vulkan.RenderPassCreateInfo{
		SType:           vulkan.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vulkan.AttachmentDescription{color},
		SubpassCount:    1,
		PSubpasses:      []vulkan.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vulkan.SubpassDependency{dependency},
	}
	var renderPass vulkan.RenderPass
	if res := vulkan.CreateRenderPass(device, &createInfo, nil, &renderPass); res != vulkan.Success {
		return vulkan.RenderPass(vulkan.NullHandle), wrapResult(res, "create render pass")
	}
	return renderPass, nil
}

// createPipeline builds the triangle pipeline. Viewport and scissor are
// dynamic so a resize only rebuilds the swapchain and its framebuffers.
func createPipeline(iface *vkutil.Interface, renderPass vulkan.RenderPass, vert, frag []uint32) (vulkan.PipelineLayout, vulkan.Pipeline, error) {
	device := iface.Device()

	vertModule, err := iface.CreateShaderModule(vert)
	if err != nil {
		return vulkan.PipelineLayout(vulkan.NullHandle), vulkan.Pipeline(vulkan.NullHandle), err
	}
	defer vulkan.DestroyShaderModule(device, vertModule, nil)
	fragModule, err := iface.CreateShaderModule(frag)
	if err != nil {
		return vulkan.PipelineLayout(vulkan.NullHandle), vulkan.Pipeline(vulkan.NullHandle), err
	}
	defer vulkan.DestroyShaderModule(device, fragModule, nil)

	mainName := "main\x00"
	stages := []vulkan.PipelineShaderStageCreateInfo{
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageVertexBit,
			Module: vertModule,
			PName:  mainName,
		},
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  mainName,
		},
	}

	vertexInput := vulkan.PipelineVertexInputStateCreateInfo{
		SType:                         vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vulkan.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    uint32(unsafe.Sizeof(mgl32.Vec2{})),
			InputRate: vulkan.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: 1,
		PVertexAttributeDescriptions: []vulkan.VertexInputAttributeDescription{{
			Location: 0,
			Binding:  0,
			Format:   vulkan.FormatR32g32Sfloat,
		}},
	}
	inputAssembly := vulkan.PipelineInputAssemblyStateCreateInfo{
		SType:    vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vulkan.PrimitiveTopologyTriangleList,
	}
	viewportState := vulkan.PipelineViewportStateCreateInfo{
		SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	rasterizer := vulkan.PipelineRasterizationStateCreateInfo{
		SType:       vulkan.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vulkan.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    vulkan.CullModeFlags(vulkan.CullModeNone),
		FrontFace:   vulkan.FrontFaceCounterClockwise,
	}
	multisampling := vulkan.PipelineMultisampleStateCreateInfo{
		SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vulkan.SampleCount1Bit,
	}
	colorBlending := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments: []vulkan.PipelineColorBlendAttachmentState{{
			ColorWriteMask: vulkan.ColorComponentFlags(vulkan.ColorComponentRBit | vulkan.ColorComponentGBit | vulkan.ColorComponentBBit | vulkan.ColorComponentABit),
			BlendEnable:    vulkan.False,
		}},
	}
	dynamicState := vulkan.PipelineDynamicStateCreateInfo{
		SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: 2,
		PDynamicStates:    []vulkan.DynamicState{vulkan.DynamicStateViewport, vulkan.DynamicStateScissor},
	}

	layoutInfo := vulkan.PipelineLayoutCreateInfo{
		SType: vulkan.StructureTypePipelineLayoutCreateInfo,
	}
	var layout vulkan.PipelineLayout
	if res := vulkan.CreatePipelineLayout(device, &layoutInfo, nil, &layout); res != vulkan.Success {
		return vulkan.PipelineLayout(vulkan.NullHandle), vulkan.Pipeline(vulkan.NullHandle), wrapResult(res, "create pipeline layout")
	}

	pipelineInfo := vulkan.GraphicsPipelineCreateInfo{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             0,
	}
	pipelines := make([]vulkan.Pipeline, 1)
	if res := vulkan.CreateGraphicsPipelines(device, vulkan.PipelineCache(vulkan.NullHandle), 1, []vulkan.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines); res != vulkan.Success {
		vulkan.DestroyPipelineLayout(device, layout, nil)
		return vulkan.PipelineLayout(vulkan.NullHandle), vulkan.Pipeline(vulkan.NullHandle), wrapResult(res, "create graphics pipeline")
	}
	return layout, pipelines[0], nil
}
