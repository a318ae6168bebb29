package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/markscan/formatter"
	"github.com/gnoswap-labs/markscan/scan"
)

var selectCmd = &cobra.Command{
	Use:   "select <selector> [paths...]",
	Short: "Print the elements matching a selector",
	Long: `Prints every element matching a compound selector.
Example) markscan select 'a[href^=http]:contains(docs)' site/`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := scan.New(cfgFile)
		if err != nil {
			logger.Fatal("Failed to initialize scan engine", zap.Error(err))
		}
		if err := engine.SetSelector(args[0]); err != nil {
			logger.Fatal("Invalid selector", zap.String("selector", args[0]), zap.Error(err))
		}

		n, err := runSelect(ctx, logger, engine, args[1:], cmd.OutOrStdout())
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}
		// like grep, no match is a failure
		if n == 0 {
			os.Exit(1)
		}
	},
}

// runSelect prints the matches found in paths and returns how many there were.
func runSelect(ctx context.Context, logger *zap.Logger, engine scan.ScanEngine, paths []string, out io.Writer) (int, error) {
	results, err := scan.ProcessFiles(ctx, logger, engine, paths, scan.ProcessFile)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, r := range results {
		n += len(r.Matches)
	}

	_, err = io.WriteString(out, formatter.FormatMatches(results))
	return n, err
}
