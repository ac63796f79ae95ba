package dram

import (
	"log"

	"github.com/sarchlab/dramifc/mem"
)

// Builder can build memory systems.
type Builder struct {
	cfg        Config
	label      string
	capacityMB uint64
	logger     *log.Logger
}

// MakeBuilder creates a builder with a DDR3-1600 configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg:        DefaultConfig(),
		label:      "DRAM",
		capacityMB: 65536,
	}
}

// WithConfig sets the device and system configuration.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// WithLabel sets the name that shows up in traces.
func (b Builder) WithLabel(label string) Builder {
	b.label = label
	return b
}

// WithCapacityMB sets the size of the address space. Addresses beyond it
// wrap around. 0 means unbounded.
func (b Builder) WithCapacityMB(mb uint64) Builder {
	b.capacityMB = mb
	return b
}

// WithTraceLogger makes the memory system log every transaction it adds,
// issues, and completes.
func (b Builder) WithTraceLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// Build creates a memory system. It panics if the configuration is invalid.
func (b Builder) Build() *MemorySystem {
	if err := b.cfg.Validate(); err != nil {
		log.Panicf("invalid DRAM configuration: %v", err)
	}

	m := &MemorySystem{
		cfg:    b.cfg,
		label:  b.label,
		mapper: newAddressMapper(b.cfg, b.capacityMB*mem.MB),
		logger: b.logger,
	}

	for i := 0; i < b.cfg.System.NumChannels; i++ {
		m.channels = append(m.channels, newChannel(b.cfg))
	}

	return m
}

// New loads the device and system configuration files and builds a memory
// system from them.
func New(
	devicePath, systemPath string,
	traceLogger *log.Logger,
	label string,
	capacityMB uint64,
) (*MemorySystem, error) {
	cfg, err := LoadConfig(devicePath, systemPath)
	if err != nil {
		return nil, err
	}

	m := MakeBuilder().
		WithConfig(cfg).
		WithLabel(label).
		WithCapacityMB(capacityMB).
		WithTraceLogger(traceLogger).
		Build()

	return m, nil
}
