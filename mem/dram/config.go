package dram

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Row buffer policies.
const (
	OpenPage  = "open_page"
	ClosePage = "close_page"
)

// DeviceConfig describes the organization and timing of a DRAM device. All
// timing parameters except TCK are in memory cycles. Currents are in mA and
// Vdd in V.
type DeviceConfig struct {
	TCK         float64 `yaml:"tCK"`
	CL          int     `yaml:"CL"`
	AL          int     `yaml:"AL"`
	CWL         int     `yaml:"CWL"`
	TRCD        int     `yaml:"tRCD"`
	TRP         int     `yaml:"tRP"`
	TRAS        int     `yaml:"tRAS"`
	TWR         int     `yaml:"tWR"`
	TRTP        int     `yaml:"tRTP"`
	BL          int     `yaml:"BL"`
	TREFI       int     `yaml:"tREFI"`
	TRFC        int     `yaml:"tRFC"`
	NumBanks    int     `yaml:"NUM_BANKS"`
	NumRows     int     `yaml:"NUM_ROWS"`
	NumCols     int     `yaml:"NUM_COLS"`
	DeviceWidth int     `yaml:"DEVICE_WIDTH"`
	Vdd         float64 `yaml:"Vdd"`
	IDD0        float64 `yaml:"IDD0"`
	IDD2N       float64 `yaml:"IDD2N"`
	IDD4R       float64 `yaml:"IDD4R"`
	IDD4W       float64 `yaml:"IDD4W"`
	IDD5        float64 `yaml:"IDD5"`
}

// SystemConfig describes how devices are put together into channels and
// ranks and how the controller schedules them.
type SystemConfig struct {
	NumChannels      int    `yaml:"NUM_CHANS"`
	NumRanks         int    `yaml:"NUM_RANKS"`
	JEDECDataBusBits int    `yaml:"JEDEC_DATA_BUS_BITS"`
	TransQueueDepth  int    `yaml:"TRANS_QUEUE_DEPTH"`
	RowBufferPolicy  string `yaml:"ROW_BUFFER_POLICY"`
	EpochLength      uint64 `yaml:"EPOCH_LENGTH"`
}

// Config is the full configuration of a memory system.
type Config struct {
	Device DeviceConfig
	System SystemConfig
}

// DefaultConfig returns a DDR3-1600 configuration.
func DefaultConfig() Config {
	return Config{
		Device: DeviceConfig{
			TCK:         1.25,
			CL:          11,
			AL:          0,
			CWL:         8,
			TRCD:        11,
			TRP:         11,
			TRAS:        28,
			TWR:         12,
			TRTP:        6,
			BL:          8,
			TREFI:       6240,
			TRFC:        208,
			NumBanks:    8,
			NumRows:     32768,
			NumCols:     1024,
			DeviceWidth: 16,
			Vdd:         1.5,
			IDD0:        95,
			IDD2N:       42,
			IDD4R:       180,
			IDD4W:       185,
			IDD5:        215,
		},
		System: SystemConfig{
			NumChannels:      1,
			NumRanks:         2,
			JEDECDataBusBits: 64,
			TransQueueDepth:  32,
			RowBufferPolicy:  OpenPage,
			EpochLength:      100000,
		},
	}
}

// LoadConfig reads a device file and a system file on top of the default
// configuration. An empty path keeps the defaults for that part.
func LoadConfig(devicePath, systemPath string) (Config, error) {
	cfg := DefaultConfig()

	if err := loadYAML(devicePath, &cfg.Device); err != nil {
		return cfg, fmt.Errorf("device config: %w", err)
	}

	if err := loadYAML(systemPath, &cfg.System); err != nil {
		return cfg, fmt.Errorf("system config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func loadYAML(path string, out any) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	return nil
}

// Validate reports the first inconsistency in the configuration.
func (c Config) Validate() error {
	d := c.Device
	s := c.System

	switch {
	case d.TCK <= 0:
		return errors.New("tCK must be positive")
	case d.CL <= 0 || d.CWL <= 0:
		return errors.New("CL and CWL must be positive")
	case d.AL < 0 || d.TRCD < 0 || d.TRP < 0 || d.TRAS < 0 ||
		d.TWR < 0 || d.TRTP < 0 || d.TREFI < 0 || d.TRFC < 0:
		return errors.New("timing parameters cannot be negative")
	case d.BL <= 0 || d.BL%2 != 0:
		return fmt.Errorf("BL must be a positive even number, got %d", d.BL)
	case d.NumBanks <= 0 || d.NumRows <= 0 || d.NumCols <= 0:
		return errors.New("NUM_BANKS, NUM_ROWS and NUM_COLS must be positive")
	case d.NumCols%d.BL != 0:
		return fmt.Errorf("NUM_COLS %d is not a multiple of BL %d",
			d.NumCols, d.BL)
	case d.DeviceWidth <= 0:
		return errors.New("DEVICE_WIDTH must be positive")
	case s.NumChannels <= 0 || s.NumRanks <= 0:
		return errors.New("NUM_CHANS and NUM_RANKS must be positive")
	case s.JEDECDataBusBits <= 0 || s.JEDECDataBusBits%8 != 0:
		return fmt.Errorf("JEDEC_DATA_BUS_BITS must be a positive multiple "+
			"of 8, got %d", s.JEDECDataBusBits)
	case s.JEDECDataBusBits%d.DeviceWidth != 0:
		return errors.New("JEDEC_DATA_BUS_BITS is not a multiple of " +
			"DEVICE_WIDTH")
	case s.TransQueueDepth <= 0:
		return errors.New("TRANS_QUEUE_DEPTH must be positive")
	case s.RowBufferPolicy != OpenPage && s.RowBufferPolicy != ClosePage:
		return fmt.Errorf("unknown ROW_BUFFER_POLICY %q", s.RowBufferPolicy)
	}

	return nil
}

// BurstBytes returns the number of bytes one burst moves, which is also the
// granularity of the address mapping.
func (c Config) BurstBytes() uint64 {
	return uint64(c.System.JEDECDataBusBits/8) * uint64(c.Device.BL)
}

func (c Config) devicesPerRank() int {
	return c.System.JEDECDataBusBits / c.Device.DeviceWidth
}
