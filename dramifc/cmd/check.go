package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the bridge and DRAM configuration.",
	Long: "`check` loads the DRAM configuration files, verifies that the " +
		"processor cycle divides the memory cycle, and prints the result.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := readBridgeConfig(cmd.Flags())
		if err != nil {
			return err
		}

		printConfig(cmd, cfg)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func printConfig(cmd *cobra.Command, cfg bridgeConfig) {
	w := cmd.OutOrStdout()
	d := cfg.DRAM.Device
	s := cfg.DRAM.System

	fmt.Fprintf(w, "dram: tCK %gns, CL %d, CWL %d, tRCD %d, tRP %d, BL %d\n",
		d.TCK, d.CL, d.CWL, d.TRCD, d.TRP, d.BL)
	fmt.Fprintf(w, "dram: %d channel(s), %d rank(s), %d bank(s), "+
		"queue depth %d, %s\n",
		s.NumChannels, s.NumRanks, d.NumBanks,
		s.TransQueueDepth, s.RowBufferPolicy)
	fmt.Fprintf(w, "write buffer: %d bytes, %d entries, enabled %t\n",
		cfg.WriteBufferBytes, cfg.WriteBufferEntries, cfg.writeBufferEnabled())
	fmt.Fprintf(w, "cpu cycle %gns, ratio %d\n",
		cfg.CPUCycleNs, cfg.multiplier())
}
