package rendergraph

// Config sizes a Graph's per-frame resources. Zero-valued fields are
// filled in by applyDefaults (NodeCapacity 256, BatchCapacity 3), so a
// caller only needs to override what genuinely differs from the common
// case.
type Config struct {
	// NodeCapacity sizes the per-frame node arena; exceeding it within a
	// single frame forces the backing slice to grow and reallocate.
	NodeCapacity int `yaml:"node_capacity"`

	// BatchCapacity sizes the in-flight command-batch pool.
	BatchCapacity int `yaml:"batch_capacity"`
}

func (c *Config) applyDefaults() {
	if c.NodeCapacity <= 0 {
		c.NodeCapacity = 256
	}
	if c.BatchCapacity <= 0 {
		c.BatchCapacity = 3
	}
}
