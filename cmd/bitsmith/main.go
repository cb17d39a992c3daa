package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"bitsmith/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "bitsmith",
	Short: "Bit-precise constant materializer",
	Long:  `Bitsmith lowers typed constant initializers into exact target byte images`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("targets", "", "TOML file with extra target definitions")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
