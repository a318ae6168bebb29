package markup

import (
	"fmt"
	"strings"
)

// TokenType defines the kinds of tokens produced by the Lexer.
type TokenType int

const (
	TokenText     TokenType = iota // character data
	TokenStartTag                  // <name attr=value>
	TokenEndTag                    // </name>
	TokenComment                   // <!-- ... -->
	TokenRawText                   // content of script, style, textarea, ...
	TokenEOF                       // end of input
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "Text"
	case TokenStartTag:
		return "StartTag"
	case TokenEndTag:
		return "EndTag"
	case TokenComment:
		return "Comment"
	case TokenRawText:
		return "RawText"
	case TokenEOF:
		return "EOF"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Attribute is a single key/value pair from a start tag. Keys are lower-cased.
type Attribute struct {
	Key   string
	Value string
}

// Token represents a single lexical token.
type Token struct {
	Type        TokenType   // type of this token
	Value       string      // tag name for tags, content otherwise
	Attrs       []Attribute // start tag attributes, in source order
	SelfClosing bool        // start tag ended with "/>"
	Position    int         // byte offset in the original input
}

func (t Token) String() string {
	switch t.Type {
	case TokenStartTag:
		var sb strings.Builder
		sb.WriteString("<" + t.Value)
		for _, a := range t.Attrs {
			fmt.Fprintf(&sb, " %s=%q", a.Key, a.Value)
		}
		if t.SelfClosing {
			sb.WriteString(" /")
		}
		sb.WriteString(">")
		return sb.String()
	case TokenEndTag:
		return "</" + t.Value + ">"
	case TokenEOF:
		return "EOF"
	default:
		return fmt.Sprintf("%s(%q)", t.Type, t.Value)
	}
}
