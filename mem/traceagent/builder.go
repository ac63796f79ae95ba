package traceagent

import "log"

// DefaultMaxPollTicks bounds the ticks spent polling for one write.
const DefaultMaxPollTicks = 1 << 20

// A Builder can build trace agents.
type Builder struct {
	bridge          Bridge
	pollBeforeWrite bool
	maxPollTicks    uint64
	progress        ProgressTracker
	logger          *log.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		maxPollTicks: DefaultMaxPollTicks,
	}
}

// WithBridge sets the bridge that the agent drives.
func (b Builder) WithBridge(bridge Bridge) Builder {
	b.bridge = bridge
	return b
}

// WithPollBeforeWrite makes the agent tick the bridge until the write
// buffer has room before each write.
func (b Builder) WithPollBeforeWrite(poll bool) Builder {
	b.pollBeforeWrite = poll
	return b
}

// WithMaxPollTicks sets the poll limit of a single write.
func (b Builder) WithMaxPollTicks(n uint64) Builder {
	b.maxPollTicks = n
	return b
}

// WithProgressTracker sets where finished ops are reported.
func (b Builder) WithProgressTracker(p ProgressTracker) Builder {
	b.progress = p
	return b
}

// WithLogger makes the agent print every access it issues.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// Build creates a new agent.
func (b Builder) Build(name string) *Agent {
	if b.bridge == nil {
		log.Panicf("%s: bridge is not set", name)
	}

	return &Agent{
		name:            name,
		bridge:          b.bridge,
		pollBeforeWrite: b.pollBeforeWrite,
		maxPollTicks:    b.maxPollTicks,
		progress:        b.progress,
		logger:          b.logger,
	}
}
