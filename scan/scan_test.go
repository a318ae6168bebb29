package scan

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/markscan/markup"
)

func init() {
	ProgressOutput = io.Discard
}

type mockScanEngine struct {
	mock.Mock
}

func (m *mockScanEngine) Run(filePath string) (Result, error) {
	args := m.Called(filePath)
	return args.Get(0).(Result), args.Error(1)
}

func (m *mockScanEngine) RunSource(source []byte) (Result, error) {
	args := m.Called(source)
	return args.Get(0).(Result), args.Error(1)
}

func (m *mockScanEngine) Extensions() []string {
	return []string{".html"}
}

func createTempFiles(t *testing.T, dir string, fileNames ...string) []string {
	t.Helper()
	var paths []string
	for _, fileName := range fileNames {
		path := filepath.Join(dir, fileName)
		require.NoError(t, os.WriteFile(path, []byte("<p>"+fileName+"</p>"), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestProcessFile(t *testing.T) {
	t.Parallel()
	expected := Result{File: "index.html", Tokens: []markup.Token{{Type: markup.TokenEOF}}}

	mockEngine := new(mockScanEngine)
	mockEngine.On("Run", "index.html").Return(expected, nil)

	result, err := ProcessFile(mockEngine, "index.html")

	assert.NoError(t, err)
	assert.Equal(t, expected, result)
	mockEngine.AssertExpectations(t)
}

func TestProcessSources(t *testing.T) {
	t.Parallel()
	logger, _ := zap.NewProduction()
	ctx := context.Background()

	first := Result{Tokens: []markup.Token{{Type: markup.TokenText, Value: "one"}}}
	second := Result{Tokens: []markup.Token{{Type: markup.TokenText, Value: "two"}}}

	mockEngine := new(mockScanEngine)
	mockEngine.On("RunSource", []byte("one")).Return(first, nil)
	mockEngine.On("RunSource", []byte("two")).Return(second, nil)

	results, err := ProcessSources(ctx, logger, mockEngine, [][]byte{[]byte("one"), []byte("two")}, ProcessSource)

	assert.NoError(t, err)
	assert.Equal(t, []Result{first, second}, results)
	mockEngine.AssertExpectations(t)
}

func TestProcessPath(t *testing.T) {
	t.Parallel()
	logger, _ := zap.NewProduction()
	ctx := context.Background()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "b.html", "a.html", "skip.txt")

	mockEngine := new(mockScanEngine)
	mockEngine.On("Run", paths[0]).Return(Result{File: paths[0]}, nil)
	mockEngine.On("Run", paths[1]).Return(Result{File: paths[1]}, nil)

	results, err := ProcessPath(ctx, logger, mockEngine, tempDir, ProcessFile)

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Contains(t, results, Result{File: paths[0]})
	assert.Contains(t, results, Result{File: paths[1]})
	mockEngine.AssertExpectations(t)
}

func TestProcessPath_SkipsOtherExtensions(t *testing.T) {
	t.Parallel()
	paths := createTempFiles(t, t.TempDir(), "notes.txt")

	mockEngine := new(mockScanEngine)
	results, err := ProcessPath(context.Background(), nil, mockEngine, paths[0], ProcessFile)

	assert.NoError(t, err)
	assert.Empty(t, results)
	mockEngine.AssertNotCalled(t, "Run", mock.Anything)
}

func TestProcessPath_Missing(t *testing.T) {
	t.Parallel()
	_, err := ProcessPath(context.Background(), nil, new(mockScanEngine), filepath.Join(t.TempDir(), "nope"), ProcessFile)
	assert.Error(t, err)
}

func TestProcessPath_Cancelled(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	// one more file than there are worker slots
	workers := runtime.NumCPU()
	for i := 0; i <= workers; i++ {
		createTempFiles(t, tempDir, fmt.Sprintf("page%d.html", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, workers+1)
	blocking := func(_ ScanEngine, path string) (Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return Result{File: path}, nil
	}

	go func() {
		for i := 0; i < workers; i++ {
			<-started
		}
		cancel()
	}()

	results, err := ProcessPath(ctx, nil, new(mockScanEngine), tempDir, blocking)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
	assert.Len(t, started, 0, "no worker starts after cancellation")
}

func TestProcessPath_CancelledBeforeStart(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	createTempFiles(t, tempDir, "a.html")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mockEngine := new(mockScanEngine)
	_, err := ProcessPath(ctx, nil, mockEngine, tempDir, ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	mockEngine.AssertNotCalled(t, "Run", mock.Anything)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()
	logger, _ := zap.NewProduction()
	ctx := context.Background()

	tempDir := t.TempDir()
	paths := createTempFiles(t, tempDir, "z.html", "m.html")

	mockEngine := new(mockScanEngine)
	mockEngine.On("Run", paths[0]).Return(Result{File: paths[0]}, nil)
	mockEngine.On("Run", paths[1]).Return(Result{File: paths[1]}, nil)

	results, err := ProcessFiles(ctx, logger, mockEngine, paths, ProcessFile)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, paths[1], results[0].File, "results are sorted by file")
	assert.Equal(t, paths[0], results[1].File)
	mockEngine.AssertExpectations(t)
}

func TestEngine_Run(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "page.html")
	content := `<p class="x">one</p><textarea><p class="x">raw</p></textarea>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	engine := NewEngine(DefaultConfig())
	require.NoError(t, engine.SetSelector("p.x"))

	result, err := engine.Run(path)
	require.NoError(t, err)

	assert.Equal(t, path, result.File)
	require.Len(t, result.Matches, 1, "markup inside textarea is raw text")
	assert.Equal(t, "one", result.Matches[0].Text)
	assert.Equal(t, markup.TokenEOF, result.Tokens[len(result.Tokens)-1].Type)
}

func TestEngine_NoSelector(t *testing.T) {
	t.Parallel()
	result, err := NewEngine(DefaultConfig()).RunSource([]byte("<b>hi</b>"))
	require.NoError(t, err)
	assert.Nil(t, result.Matches)
	assert.Len(t, result.Tokens, 4)
}

func TestEngine_SetSelectorError(t *testing.T) {
	t.Parallel()
	err := NewEngine(DefaultConfig()).SetSelector("p:nope(x)")
	assert.Error(t, err)
}

func TestEngine_RunMissingFile(t *testing.T) {
	t.Parallel()
	_, err := NewEngine(DefaultConfig()).Run(filepath.Join(t.TempDir(), "missing.html"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), DefaultConfigPath)

	config := DefaultConfig()
	config.RawText = []string{"xmp"}
	require.NoError(t, SaveConfig(path, config))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Parallel()
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)

	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: custom\n"), 0o644))

	config, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", config.Name)
	assert.Equal(t, DefaultConfig().Extensions, config.Extensions)
	assert.Equal(t, DefaultConfig().RawText, config.RawText)

	_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcher(t *testing.T) {
	t.Parallel()
	tempDir := t.TempDir()

	changed := make(chan string, 4)
	w, err := NewWatcher(zap.NewNop(), []string{".html"}, func(path string) {
		changed <- path
	})
	require.NoError(t, err)
	w.Debounce = 10 * time.Millisecond

	require.NoError(t, w.Add(tempDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	assert.ErrorIs(t, w.Start(ctx), ErrAlreadyWatching)

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "ignored.txt"), []byte("x"), 0o644))
	target := filepath.Join(tempDir, "page.html")
	require.NoError(t, os.WriteFile(target, []byte("<p>x</p>"), 0o644))

	select {
	case path := <-changed:
		assert.Equal(t, target, path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	cancel()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
	assert.NoError(t, w.Close())
}

func TestWatcher_Close(t *testing.T) {
	t.Parallel()

	entered := make(chan string, 2)
	release := make(chan struct{})
	w, err := NewWatcher(zap.NewNop(), []string{".html"}, func(path string) {
		entered <- path
		<-release
	})
	require.NoError(t, err)
	w.Debounce = time.Millisecond

	w.handleFileEvent(fsnotify.Event{Name: "a.html", Op: fsnotify.Write})
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	closed := make(chan error, 1)
	go func() { closed <- w.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while the handler was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	// events after Close are dropped
	w.handleFileEvent(fsnotify.Event{Name: "b.html", Op: fsnotify.Write})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, entered)
}
