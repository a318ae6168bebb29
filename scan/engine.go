package scan

import (
	"fmt"
	"os"

	"github.com/gnoswap-labs/markscan/markup"
	"github.com/gnoswap-labs/markscan/selector"
)

// ScanEngine is implemented by anything that can scan a file or an in-memory source.
type ScanEngine interface {
	Run(filePath string) (Result, error)
	RunSource(source []byte) (Result, error)
	Extensions() []string
}

// Result holds the outcome of scanning one file.
type Result struct {
	File    string
	Tokens  []markup.Token
	Matches []*markup.Element // nil unless a selector is set
}

// Engine tokenizes markup files according to a Config and, optionally,
// selects elements from them.
type Engine struct {
	config   Config
	selector *selector.Selector
}

var _ ScanEngine = (*Engine)(nil)

// New loads the configuration at configurationPath and returns an Engine.
func New(configurationPath string) (*Engine, error) {
	config, err := LoadConfig(configurationPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configurationPath, err)
	}
	return NewEngine(config), nil
}

func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// SetSelector parses query and makes Run report the matching elements.
func (e *Engine) SetSelector(query string) error {
	sel, err := selector.Parse(query)
	if err != nil {
		return err
	}
	e.selector = &sel
	return nil
}

func (e *Engine) Extensions() []string {
	return e.config.Extensions
}

func (e *Engine) Run(filePath string) (Result, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return Result{}, fmt.Errorf("error reading %s: %w", filePath, err)
	}
	result, err := e.RunSource(source)
	if err != nil {
		return Result{}, err
	}
	result.File = filePath
	return result, nil
}

func (e *Engine) RunSource(source []byte) (Result, error) {
	lexer := markup.NewLexer(string(source), markup.WithRawTextElements(e.config.RawText...))
	result := Result{Tokens: lexer.Tokenize()}
	if e.selector != nil {
		result.Matches = selector.Select(markup.Build(result.Tokens), *e.selector)
	}
	return result, nil
}
