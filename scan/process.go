package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/markscan/scanner"
)

// Processor scans a single file with an engine.
type Processor func(ScanEngine, string) (Result, error)

// ProgressOutput receives the progress bar drawn for directory inputs.
var ProgressOutput io.Writer = os.Stderr

func ProcessSources(
	ctx context.Context,
	logger *zap.Logger,
	engine ScanEngine,
	sources [][]byte,
	processor func(ScanEngine, []byte) (Result, error),
) ([]Result, error) {
	var results []Result
	for i, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := processor(engine, source)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing source", zap.Int("source", i), zap.Error(err))
			}
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// ProcessFiles scans every path, expanding directories, and returns the
// results ordered by file name.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine ScanEngine,
	paths []string,
	processor Processor,
) ([]Result, error) {
	var results []Result
	for _, path := range paths {
		res, err := ProcessPath(ctx, logger, engine, path, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return nil, err
		}
		results = append(results, res...)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].File < results[j].File })
	return results, nil
}

func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine ScanEngine,
	path string,
	processor Processor,
) ([]Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !hasDesiredExtension(engine.Extensions(), path) {
			if logger != nil {
				logger.Debug("Skipping file", zap.String("file", path))
			}
			return nil, nil
		}
		result, err := processor(engine, path)
		if err != nil {
			return nil, err
		}
		return []Result{result}, nil
	}

	files, err := scanner.New(path, engine.Extensions()...).Scan()
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, nil
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(ProgressOutput),
		progressbar.OptionSetDescription(path),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	type outcome struct {
		result Result
		err    error
	}
	outcomes := make(chan outcome, len(files))

	// limit the number of workers
	sem := make(chan struct{}, runtime.NumCPU())

	started := 0
	for _, file := range files {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if err := ctx.Err(); err != nil {
			// wait for in-flight workers so none outlive the call
			for i := 0; i < started; i++ {
				<-outcomes
			}
			return nil, err
		}

		started++
		go func(fp string) {
			defer func() { <-sem }()

			result, err := processor(engine, fp)
			if err != nil && logger != nil {
				logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
			}
			outcomes <- outcome{result: result, err: err}
			_ = bar.Add(1)
		}(file.Path)
	}

	var results []Result
	for range files {
		o := <-outcomes
		if o.err != nil {
			continue
		}
		results = append(results, o.result)
	}
	_ = bar.Finish()

	return results, nil
}

func ProcessFile(engine ScanEngine, filePath string) (Result, error) {
	return engine.Run(filePath)
}

func ProcessSource(engine ScanEngine, source []byte) (Result, error) {
	return engine.RunSource(source)
}

func hasDesiredExtension(extensions []string, path string) bool {
	ext := filepath.Ext(path)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
