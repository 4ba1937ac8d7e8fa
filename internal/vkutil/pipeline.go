package vkutil

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

// CreateShaderModule wraps SPIR-V words in a shader module.
func (i *Interface) CreateShaderModule(code []uint32) (vulkan.ShaderModule, error) {
	createInfo := vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}
	var module vulkan.ShaderModule
	if err := check(vulkan.CreateShaderModule(i.device, &createInfo, nil, &module), "create shader module"); err != nil {
		return vulkan.ShaderModule(vulkan.NullHandle), err
	}
	return module, nil
}

// ComputePipeline is a compute shader with a single descriptor set holding
// one storage image at binding 0.
type ComputePipeline struct {
	iface     *Interface
	setLayout vulkan.DescriptorSetLayout
	layout    vulkan.PipelineLayout
	pipeline  vulkan.Pipeline
	pool      vulkan.DescriptorPool
	set       vulkan.DescriptorSet
}

func (i *Interface) NewComputePipeline(code []uint32) (*ComputePipeline, error) {
	p := &ComputePipeline{iface: i}
	if err := p.createSetLayout(); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.createPipeline(code); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.allocateSet(); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *ComputePipeline) createSetLayout() error {
	binding := vulkan.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  vulkan.DescriptorTypeStorageImage,
		DescriptorCount: 1,
		StageFlags:      vulkan.ShaderStageFlags(vulkan.ShaderStageComputeBit),
	}
	layoutInfo := vulkan.DescriptorSetLayoutCreateInfo{
		SType:        vulkan.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vulkan.DescriptorSetLayoutBinding{binding},
	}
	return check(vulkan.CreateDescriptorSetLayout(p.iface.device, &layoutInfo, nil, &p.setLayout), "create descriptor set layout")
}

func (p *ComputePipeline) createPipeline(code []uint32) error {
	dev := p.iface.device
	module, err := p.iface.CreateShaderModule(code)
	if err != nil {
		return err
	}
	defer vulkan.DestroyShaderModule(dev, module, nil)

	layoutInfo := vulkan.PipelineLayoutCreateInfo{
		SType:          vulkan.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vulkan.DescriptorSetLayout{p.setLayout},
	}
	if err := check(vulkan.CreatePipelineLayout(dev, &layoutInfo, nil, &p.layout), "create pipeline layout"); err != nil {
		return err
	}

	createInfo := vulkan.ComputePipelineCreateInfo{
		SType: vulkan.StructureTypeComputePipelineCreateInfo,
		Stage: vulkan.PipelineShaderStageCreateInfo{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageComputeBit,
			Module: module,
			PName:  "main\x00",
		},
		Layout: p.layout,
	}
	pipelines := make([]vulkan.Pipeline, 1)
	if err := check(vulkan.CreateComputePipelines(dev, vulkan.PipelineCache(vulkan.NullHandle), 1, []vulkan.ComputePipelineCreateInfo{createInfo}, nil, pipelines), "create compute pipeline"); err != nil {
		return err
	}
	p.pipeline = pipelines[0]
	return nil
}

func (p *ComputePipeline) allocateSet() error {
	dev := p.iface.device
	poolInfo := vulkan.DescriptorPoolCreateInfo{
		SType:         vulkan.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes: []vulkan.DescriptorPoolSize{{
			Type:            vulkan.DescriptorTypeStorageImage,
			DescriptorCount: 1,
		}},
	}
	if err := check(vulkan.CreateDescriptorPool(dev, &poolInfo, nil, &p.pool), "create descriptor pool"); err != nil {
		return err
	}
	allocInfo := vulkan.DescriptorSetAllocateInfo{
		SType:              vulkan.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vulkan.DescriptorSetLayout{p.setLayout},
	}
	return check(vulkan.AllocateDescriptorSets(dev, &allocInfo, &p.set), "allocate descriptor set")
}

// BindStorageImage points binding 0 at img, which must be in General layout
// when the dispatch runs.
func (p *ComputePipeline) BindStorageImage(img *Image) error {
	if img == nil {
		return errors.New("bind nil storage image")
	}
	write := vulkan.WriteDescriptorSet{
		SType:           vulkan.StructureTypeWriteDescriptorSet,
		DstSet:          p.set,
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vulkan.DescriptorTypeStorageImage,
		PImageInfo: []vulkan.DescriptorImageInfo{{
			ImageView:   img.view,
			ImageLayout: vulkan.ImageLayoutGeneral,
		}},
	}
	vulkan.UpdateDescriptorSets(p.iface.device, 1, []vulkan.WriteDescriptorSet{write}, 0, nil)
	return nil
}

func (p *ComputePipeline) Destroy() {
	dev := p.iface.device
	if p.pool != vulkan.DescriptorPool(vulkan.NullHandle) {
		vulkan.DestroyDescriptorPool(dev, p.pool, nil)
		p.pool = vulkan.DescriptorPool(vulkan.NullHandle)
	}
	if p.pipeline != vulkan.Pipeline(vulkan.NullHandle) {
		vulkan.DestroyPipeline(dev, p.pipeline, nil)
		p.pipeline = vulkan.Pipeline(vulkan.NullHandle)
	}
	if p.layout != vulkan.PipelineLayout(vulkan.NullHandle) {
		vulkan.DestroyPipelineLayout(dev, p.layout, nil)
		p.layout = vulkan.PipelineLayout(vulkan.NullHandle)
	}
	if p.setLayout != vulkan.DescriptorSetLayout(vulkan.NullHandle) {
		vulkan.DestroyDescriptorSetLayout(dev, p.setLayout, nil)
		p.setLayout = vulkan.DescriptorSetLayout(vulkan.NullHandle)
	}
}
