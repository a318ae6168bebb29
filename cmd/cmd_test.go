package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/markscan/scan"
)

func init() {
	color.NoColor = true
	scan.ProgressOutput = io.Discard
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunTokens(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.html", "<b>hi</b>")

	var out bytes.Buffer
	err := runTokens(context.Background(), zap.NewNop(), scan.NewEngine(scan.DefaultConfig()), []string{path}, false, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "tokens: "+path)
	assert.Contains(t, out.String(), `Text("hi")`)
	assert.Contains(t, out.String(), "</b>")
}

func TestRunTokens_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.html", "<b>hi</b>")

	var out bytes.Buffer
	err := runTokens(context.Background(), zap.NewNop(), scan.NewEngine(scan.DefaultConfig()), []string{dir}, true, &out)
	require.NoError(t, err)

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Contains(t, decoded, path)
	assert.Len(t, decoded[path], 4)
	assert.Equal(t, "b", decoded[path][0]["Value"])
}

func TestRunSelect(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.html", `<a id="identifier" onclick="func('arg')" />`)
	writeFile(t, dir, "b.html", `<p>(nothing)</p>`)

	engine := scan.NewEngine(scan.DefaultConfig())
	require.NoError(t, engine.SetSelector(`a[onclick*="('arg"]`))

	var out bytes.Buffer
	n, err := runSelect(context.Background(), zap.NewNop(), engine, []string{dir}, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "match: a#identifier")
	assert.Contains(t, out.String(), filepath.Join(dir, "a.html")+"@0")
}

func TestRunSelect_MissingPath(t *testing.T) {
	engine := scan.NewEngine(scan.DefaultConfig())
	_, err := runSelect(context.Background(), nil, engine, []string{filepath.Join(t.TempDir(), "missing")}, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInitConfigurationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")

	got, err := initConfigurationFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	config, err := scan.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, scan.DefaultConfig(), config)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunWatch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, zap.NewNop(), scan.NewEngine(scan.DefaultConfig()), []string{dir}, out)
	}()

	// keep writing until the watcher has picked the file up
	path := filepath.Join(dir, "live.html")
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), `Text("live")`) {
		require.True(t, time.Now().Before(deadline), "timed out waiting for watch output")
		require.NoError(t, os.WriteFile(path, []byte("<i>live</i>"), 0o644))
		time.Sleep(200 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not return after cancel")
	}
}

func TestRootCommandWiring(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"init", "tokens", "select", "watch"})

	l, err := newLogger(true)
	require.NoError(t, err)
	assert.NotNil(t, l)
}
