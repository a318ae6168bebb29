package markup

import "strings"

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Element is a start tag together with the text it encloses.
type Element struct {
	Name     string
	Attrs    []Attribute
	Text     string // all descendant text, including raw text
	Parent   *Element
	Position int
}

// Attr returns the value of the attribute key (case-insensitive).
func (e *Element) Attr(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// ID returns the id attribute, or "".
func (e *Element) ID() string {
	id, _ := e.Attr("id")
	return id
}

// Classes returns the whitespace-separated entries of the class attribute.
func (e *Element) Classes() []string {
	class, _ := e.Attr("class")
	return strings.Fields(class)
}

// Build turns a token stream into a flat list of elements in document order.
// Void and self-closing elements never enclose text. An end tag closes the
// nearest open element with the same name; end tags with no open match are
// dropped, and anything still open at EOF is closed implicitly.
func Build(tokens []Token) []*Element {
	type open struct {
		el   *Element
		text strings.Builder
	}

	var (
		elems []*Element
		stack []*open
	)

	// closeFrom closes stack[i:] and publishes their text.
	closeFrom := func(i int) {
		for _, o := range stack[i:] {
			o.el.Text = o.text.String()
		}
		stack = stack[:i]
	}

	for _, tok := range tokens {
		switch tok.Type {
		case TokenStartTag:
			el := &Element{
				Name:     tok.Value,
				Attrs:    tok.Attrs,
				Position: tok.Position,
			}
			if n := len(stack); n > 0 {
				el.Parent = stack[n-1].el
			}
			elems = append(elems, el)
			if !tok.SelfClosing && !voidElements[tok.Value] {
				stack = append(stack, &open{el: el})
			}

		case TokenEndTag:
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].el.Name == tok.Value {
					closeFrom(i)
					break
				}
			}

		case TokenText, TokenRawText:
			for _, o := range stack {
				o.text.WriteString(tok.Value)
			}
		}
	}
	closeFrom(0)

	return elems
}

// Parse tokenizes input and builds its elements.
func Parse(input string, opts ...Option) []*Element {
	return Build(NewLexer(input, opts...).Tokenize())
}
