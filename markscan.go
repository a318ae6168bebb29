// Package markscan tokenizes markup and queries it with CSS-style selectors.
//
// The scanning primitive lives in package tokenqueue; markup and selector
// are the collaborators built on it, and scan runs them over files.
package markscan

import (
	"github.com/gnoswap-labs/markscan/markup"
	"github.com/gnoswap-labs/markscan/selector"
)

// Select parses html and returns the elements matching query.
func Select(html, query string) ([]*markup.Element, error) {
	sel, err := selector.Parse(query)
	if err != nil {
		return nil, err
	}
	return selector.Select(markup.Parse(html), sel), nil
}
