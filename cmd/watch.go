package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/markscan/formatter"
	"github.com/gnoswap-labs/markscan/scan"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Print tokens of markup files as they change",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		engine, err := scan.New(cfgFile)
		if err != nil {
			logger.Fatal("Failed to initialize scan engine", zap.Error(err))
		}

		if err := runWatch(ctx, logger, engine, args, cmd.OutOrStdout()); err != nil {
			logger.Error("Error watching directories", zap.Error(err))
			os.Exit(1)
		}
	},
}

// runWatch blocks until ctx is done.
func runWatch(ctx context.Context, logger *zap.Logger, engine scan.ScanEngine, dirs []string, out io.Writer) error {
	var mu sync.Mutex
	watcher, err := scan.NewWatcher(logger, engine.Extensions(), func(path string) {
		result, err := engine.Run(path)
		if err != nil {
			logger.Error("Error processing file", zap.String("file", path), zap.Error(err))
			return
		}

		mu.Lock()
		defer mu.Unlock()
		_, _ = io.WriteString(out, formatter.FormatTokens([]scan.Result{result}))
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dirs...); err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	logger.Info("Watching for changes", zap.Strings("dirs", dirs))
	<-watcher.Done()
	return nil
}
