package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shenjiangwei/earlyAllocator/early"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	pageSize uint64
)

var printer = message.NewPrinter(language.English)

var rootCmd = &cobra.Command{
	Use:   "earlyalloc",
	Short: "Exercise the boot-time dual-zone allocator",
	Long: `earlyalloc drives the early allocator: a single arena where byte
allocations grow up from the start and page allocations grow down from the end.
It can run randomized workloads against host memory or serve an arena over RPC.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case verbose:
			early.SetLogLevel(early.LogLevelDebug)
		case quiet:
			early.SetLogLevel(early.LogLevelNone)
		}
		if pageSize == 0 || pageSize&(pageSize-1) != 0 {
			return fmt.Errorf("page size %d is not a power of two", pageSize)
		}
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Uint64Var(&pageSize, "page-size", early.DefaultPageSize, "Arena page size in bytes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		printer.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
