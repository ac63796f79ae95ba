package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/dramifc/mem/dram"
	"github.com/sarchlab/dramifc/sim"
	"github.com/spf13/pflag"
)

// envVars maps flags to the environment variables that provide their
// defaults.
var envVars = map[string]string{
	"write-buffer-bytes":   "DRAMIFC_WRITE_BUFFER_BYTES",
	"write-buffer-entries": "DRAMIFC_WRITE_BUFFER_ENTRIES",
	"cpu-cycle-ns":         "DRAMIFC_CPU_CYCLE_NS",
	"module":               "DRAMIFC_MODULE",
	"system":               "DRAMIFC_SYSTEM",
	"trace-db":             "DRAMIFC_TRACE_DB",
	"monitor-port":         "DRAMIFC_MONITOR_PORT",
}

// applyEnv sets every flag that was not given on the command line from its
// environment variable.
func applyEnv(flags *pflag.FlagSet) error {
	for name, env := range envVars {
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok {
			continue
		}

		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
	}

	return nil
}

// bridgeConfig is everything needed to build the memory system and the
// bridge.
type bridgeConfig struct {
	WriteBufferBytes   uint64
	WriteBufferEntries int
	CPUCycleNs         float64
	ModulePath         string
	SystemPath         string
	CapacityMB         uint64

	DRAM dram.Config
}

func readBridgeConfig(flags *pflag.FlagSet) (bridgeConfig, error) {
	c := bridgeConfig{}

	var err error

	if c.WriteBufferBytes, err = flags.GetUint64("write-buffer-bytes"); err != nil {
		return c, err
	}

	if c.WriteBufferEntries, err = flags.GetInt("write-buffer-entries"); err != nil {
		return c, err
	}

	if c.CPUCycleNs, err = flags.GetFloat64("cpu-cycle-ns"); err != nil {
		return c, err
	}

	if c.ModulePath, err = flags.GetString("module"); err != nil {
		return c, err
	}

	if c.SystemPath, err = flags.GetString("system"); err != nil {
		return c, err
	}

	if c.CapacityMB, err = flags.GetUint64("capacity-mb"); err != nil {
		return c, err
	}

	return c, c.validate()
}

func (c *bridgeConfig) validate() error {
	if c.WriteBufferEntries < 0 {
		return errors.New("write-buffer-entries cannot be negative")
	}

	cfg, err := dram.LoadConfig(c.ModulePath, c.SystemPath)
	if err != nil {
		return err
	}

	c.DRAM = cfg

	_, err = sim.NewCycleConverter(cfg.Device.TCK, c.CPUCycleNs)
	if err != nil {
		return fmt.Errorf("clock ratio: %w", err)
	}

	return c.queueMustHoldWriteBuffer()
}

// queueMustHoldWriteBuffer rejects write buffers whose writes can take
// every transaction slot of the DRAM system, since a read would then wait
// for the whole buffer to drain.
func (c *bridgeConfig) queueMustHoldWriteBuffer() error {
	if !c.writeBufferEnabled() {
		return nil
	}

	s := c.DRAM.System
	slots := s.TransQueueDepth * s.NumChannels

	if c.WriteBufferEntries+1 > slots {
		return fmt.Errorf(
			"write-buffer-entries %d leaves no transaction slot for a read, "+
				"the DRAM system has %d slots (%d channel(s) of depth %d)",
			c.WriteBufferEntries, slots, s.NumChannels, s.TransQueueDepth)
	}

	return nil
}

// multiplier returns the number of processor cycles per memory cycle of a
// validated configuration.
func (c bridgeConfig) multiplier() uint64 {
	converter, err := sim.NewCycleConverter(c.DRAM.Device.TCK, c.CPUCycleNs)
	if err != nil {
		panic(err)
	}

	return converter.Multiplier()
}

// writeBufferEnabled tells if the configuration times writes.
func (c bridgeConfig) writeBufferEnabled() bool {
	return c.WriteBufferBytes > 0 && c.WriteBufferEntries > 0
}
