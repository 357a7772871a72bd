// Command rt4d reads, edits and writes Radtel RT-4D codeplugs and manages
// the radio's DMR address book.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configFile string
	port       string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "rt4d",
		Short: "Codeplug and address book tool for the Radtel RT-4D",
		Long: `rt4d converts RT-4D codeplug images (.4rdmf) to and from YAML, talks to
the radio over its programming cable, and maintains a DMR address book
synced from RadioID.net.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "Path to configuration file (default: ./rt4d.yaml)")
	pf.StringVar(&flags.port, "port", "", "Serial port of the programming cable (overrides serial.port)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides logging.level)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newInfoCmd(flags))
	rootCmd.AddCommand(newExportCmd(flags))
	rootCmd.AddCommand(newImportCmd(flags))
	rootCmd.AddCommand(newBeta41Cmd(flags))
	rootCmd.AddCommand(newRadioCmd(flags))
	rootCmd.AddCommand(newAddressBookCmd(flags))
	rootCmd.AddCommand(newServeCmd(flags))

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
