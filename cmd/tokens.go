package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/markscan/formatter"
	"github.com/gnoswap-labs/markscan/scan"
)

var tokensJSONOutput bool

var tokensCmd = &cobra.Command{
	Use:   "tokens [paths...]",
	Short: "Print the markup tokens of each file",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := scan.New(cfgFile)
		if err != nil {
			logger.Fatal("Failed to initialize scan engine", zap.Error(err))
		}

		if err := runTokens(ctx, logger, engine, args, tokensJSONOutput, cmd.OutOrStdout()); err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	tokensCmd.Flags().BoolVar(&tokensJSONOutput, "json", false, "Output tokens in JSON format")
}

func runTokens(ctx context.Context, logger *zap.Logger, engine scan.ScanEngine, paths []string, isJSON bool, out io.Writer) error {
	results, err := scan.ProcessFiles(ctx, logger, engine, paths, scan.ProcessFile)
	if err != nil {
		return err
	}

	if isJSON {
		byFile := make(map[string]any, len(results))
		for _, r := range results {
			byFile[r.File] = r.Tokens
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(byFile)
	}

	_, err = io.WriteString(out, formatter.FormatTokens(results))
	return err
}
