// Package cmd provides the command-line interface of dramifc.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dramifc",
	Short: "dramifc drives a DRAM timing model from a processor-side trace.",
	Long: `dramifc connects a cycle-stepped processor stand-in to a ` +
		`cycle-level DRAM timing model through a write-buffered bridge. ` +
		`Flags that are not given fall back to DRAMIFC_* environment ` +
		`variables, which can also come from an env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := loadEnvFile(envFile); err != nil {
			return err
		}

		return applyEnv(cmd.Flags())
	},
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File to load DRAMIFC_* variables from")
	addBridgeFlags(rootCmd.PersistentFlags())
}

func addBridgeFlags(f *pflag.FlagSet) {
	f.Uint64("write-buffer-bytes", 1024,
		"Write buffer capacity in bytes, 0 disables the write buffer")
	f.Int("write-buffer-entries", 16,
		"Number of write buffer slots, 0 disables the write buffer")
	f.Float64("cpu-cycle-ns", 0.25, "Processor cycle time in ns")
	f.String("module", "", "DRAM device configuration file (YAML)")
	f.String("system", "", "DRAM system configuration file (YAML)")
	f.Uint64("capacity-mb", 65536, "Memory capacity in MB")
}

// loadEnvFile loads the variables of an env file without overriding the
// ones already set. The default file is optional.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if os.IsNotExist(err) && path == ".env" {
		return nil
	}

	return fmt.Errorf("loading %s: %w", path, err)
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
