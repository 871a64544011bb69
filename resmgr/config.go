package resmgr

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config sizes every pool the resource manager owns and points at the
// on-disk pipeline pack. Zero-valued fields are filled in by
// applyDefaults, a post-decode default pass run once after the YAML
// document loads.
type Config struct {
	BufferCapacity              int `yaml:"buffer_capacity"`
	ImageCapacity               int `yaml:"image_capacity"`
	VirtualBufferCapacity       int `yaml:"virtual_buffer_capacity"`
	VirtualImageCapacity        int `yaml:"virtual_image_capacity"`
	SamplerCapacity             int `yaml:"sampler_capacity"`
	DescriptorSetLayoutCapacity int `yaml:"descriptor_set_layout_capacity"`
	PipelineLayoutCapacity      int `yaml:"pipeline_layout_capacity"`
	GraphicsPipelineCapacity    int `yaml:"graphics_pipeline_capacity"`
	MeshPipelineCapacity        int `yaml:"mesh_pipeline_capacity"`
	ComputePipelineCapacity     int `yaml:"compute_pipeline_capacity"`
	RenderPassCapacity          int `yaml:"render_pass_capacity"`
	FramebufferCapacity         int `yaml:"framebuffer_capacity"`
	DescriptorSetCapacity       int `yaml:"descriptor_set_capacity"`
	CommandBufferCapacity       int `yaml:"command_buffer_capacity"`

	// DualSourceBlendSupported gates ColorTargetDesc.DualSourceBlend
	// validation.
	DualSourceBlendSupported bool `yaml:"dual_source_blend_supported"`

	// Staging pool sizing; page sizes are picked from the discrete ladder
	// {16,32,64} MiB (uniform) / {64,128,256} MiB (write/read) unless
	// overridden here.
	StagingWritePageMiB   int `yaml:"staging_write_page_mib"`
	StagingReadPageMiB    int `yaml:"staging_read_page_mib"`
	StagingUniformPageMiB int `yaml:"staging_uniform_page_mib"`
	StagingWritePages     int `yaml:"staging_write_pages"`
	StagingReadPages      int `yaml:"staging_read_pages"`
	StagingUniformPages   int `yaml:"staging_uniform_pages"`

	// PipelinePackPath, if non-empty, is loaded at NewManager time via
	// LoadPipelinePack.
	PipelinePackPath string `yaml:"pipeline_pack_path"`
}

// DefaultConfig returns the baseline sizing used when no YAML file is
// supplied.
func DefaultConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

// LoadConfig reads and decodes a YAML config file, applying defaults to
// any field the file left zero.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.BufferCapacity == 0 {
		c.BufferCapacity = 4096
	}
	if c.ImageCapacity == 0 {
		c.ImageCapacity = 4096
	}
	if c.VirtualBufferCapacity == 0 {
		c.VirtualBufferCapacity = 1024
	}
	if c.VirtualImageCapacity == 0 {
		c.VirtualImageCapacity = 1024
	}
	if c.SamplerCapacity == 0 {
		c.SamplerCapacity = 256
	}
	if c.DescriptorSetLayoutCapacity == 0 {
		c.DescriptorSetLayoutCapacity = 512
	}
	if c.PipelineLayoutCapacity == 0 {
		c.PipelineLayoutCapacity = 512
	}
	if c.GraphicsPipelineCapacity == 0 {
		c.GraphicsPipelineCapacity = 2048
	}
	if c.MeshPipelineCapacity == 0 {
		c.MeshPipelineCapacity = 512
	}
	if c.ComputePipelineCapacity == 0 {
		c.ComputePipelineCapacity = 1024
	}
	if c.RenderPassCapacity == 0 {
		c.RenderPassCapacity = 512
	}
	if c.FramebufferCapacity == 0 {
		c.FramebufferCapacity = 512
	}
	if c.DescriptorSetCapacity == 0 {
		c.DescriptorSetCapacity = 2048
	}
	if c.CommandBufferCapacity == 0 {
		c.CommandBufferCapacity = 256
	}
	if c.StagingWritePageMiB == 0 {
		c.StagingWritePageMiB = 64
	}
	if c.StagingReadPageMiB == 0 {
		c.StagingReadPageMiB = 64
	}
	if c.StagingUniformPageMiB == 0 {
		c.StagingUniformPageMiB = 16
	}
	if c.StagingWritePages == 0 {
		c.StagingWritePages = 8
	}
	if c.StagingReadPages == 0 {
		c.StagingReadPages = 4
	}
	if c.StagingUniformPages == 0 {
		c.StagingUniformPages = 4
	}
}
