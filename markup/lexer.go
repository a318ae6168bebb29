package markup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gnoswap-labs/markscan/tokenqueue"
)

// DefaultRawTextElements lists the elements whose content is not tokenized.
var DefaultRawTextElements = []string{"script", "style", "textarea", "title"}

// Option configures a Lexer.
type Option func(*Lexer)

// WithRawTextElements replaces the set of raw text elements.
func WithRawTextElements(names ...string) Option {
	return func(l *Lexer) {
		l.rawText = make(map[string]bool, len(names))
		for _, name := range names {
			l.rawText[strings.ToLower(name)] = true
		}
	}
}

// Lexer splits markup into text, tag and comment tokens. It is not an
// HTML5 tokenizer: entities are left alone and malformed markup degrades
// to text.
type Lexer struct {
	input   string // the entire input to tokenize
	queue   *tokenqueue.TokenQueue
	rawText map[string]bool
	tokens  []Token
}

// NewLexer returns a new Lexer over input.
func NewLexer(input string, opts ...Option) *Lexer {
	l := &Lexer{
		input:  input,
		queue:  tokenqueue.New(input),
		tokens: make([]Token, 0),
	}
	WithRawTextElements(DefaultRawTextElements...)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tokenize consumes the whole input and returns its tokens, terminated by TokenEOF.
func (l *Lexer) Tokenize() []Token {
	q := l.queue
	for !q.IsEmpty() {
		pos := l.offset()
		switch {
		case q.MatchesCS("<!--"):
			l.lexComment(pos)
		case q.MatchesAny("<!", "<?"):
			l.lexBogusComment(pos)
		case q.MatchesCS("</"):
			l.lexEndTag(pos)
		case q.MatchesStartTag():
			l.lexStartTag(pos)
		default:
			l.lexText(pos)
		}
	}

	l.addToken(Token{Type: TokenEOF, Position: l.offset()})
	return l.tokens
}

// offset is the byte position of the queue head in the original input.
// Push-backs only ever re-add consumed text, so this stays exact.
func (l *Lexer) offset() int {
	return len(l.input) - len(l.queue.String())
}

// atMarkup reports whether the queue head may start a tag or comment.
func (l *Lexer) atMarkup() bool {
	return l.queue.MatchesStartTag() || l.queue.MatchesAny("</", "<!", "<?")
}

// lexText collects character data up to the next tag. The first rune is
// always taken so a '<' that started nothing becomes text.
func (l *Lexer) lexText(pos int) {
	q := l.queue
	var sb strings.Builder
	if r, err := q.Consume(); err == nil {
		sb.WriteRune(r)
	}
	for !q.IsEmpty() {
		sb.WriteString(q.ConsumeTo("<"))
		if q.IsEmpty() || l.atMarkup() {
			break
		}
		r, _ := q.Consume()
		sb.WriteRune(r)
	}
	l.addToken(Token{Type: TokenText, Value: sb.String(), Position: pos})
}

func (l *Lexer) lexComment(pos int) {
	l.queue.MatchChomp("<!--")
	data := l.queue.ChompTo("-->")
	l.addToken(Token{Type: TokenComment, Value: data, Position: pos})
}

// lexBogusComment handles doctypes and processing instructions.
func (l *Lexer) lexBogusComment(pos int) {
	l.queue.Advance() // '<'
	l.queue.Advance() // '!' or '?'
	data := l.queue.ChompTo(">")
	l.addToken(Token{Type: TokenComment, Value: data, Position: pos})
}

func (l *Lexer) lexEndTag(pos int) {
	q := l.queue
	q.MatchChomp("</")
	name := q.ConsumeTagName()
	if name == "" {
		// not an end tag after all
		q.AddFirst("</")
		l.lexText(pos)
		return
	}
	q.ChompTo(">")
	l.addToken(Token{Type: TokenEndTag, Value: strings.ToLower(name), Position: pos})
}

func (l *Lexer) lexStartTag(pos int) {
	q := l.queue
	q.Advance() // '<'

	tok := Token{
		Type:     TokenStartTag,
		Value:    strings.ToLower(q.ConsumeTagName()),
		Position: pos,
	}

attrs:
	for !q.IsEmpty() {
		q.ConsumeWhitespace()
		switch {
		case q.MatchChomp("/>"):
			tok.SelfClosing = true
			break attrs
		case q.MatchChomp(">"):
			break attrs
		}

		key := q.ConsumeAttributeKey()
		if key == "" {
			// skip anything that cannot start an attribute
			q.Advance()
			continue
		}

		attr := Attribute{Key: strings.ToLower(key)}
		q.ConsumeWhitespace()
		if q.MatchChomp("=") {
			q.ConsumeWhitespace()
			attr.Value = l.lexAttributeValue()
		}
		tok.Attrs = append(tok.Attrs, attr)
	}

	l.addToken(tok)

	if l.rawText[tok.Value] && !tok.SelfClosing {
		l.lexRawText(tok.Value)
	}
}

func (l *Lexer) lexAttributeValue() string {
	q := l.queue
	if q.MatchesAnyRune('"', '\'') {
		quote, _ := q.Consume()
		return q.ChompTo(string(quote))
	}
	return q.ConsumeToAny(" ", "\t", "\n", "\r", "\f", ">", "/>")
}

// lexRawText takes everything up to the closing tag of name verbatim.
// Lookalikes such as "</titlex>" stay part of the raw text.
func (l *Lexer) lexRawText(name string) {
	q := l.queue
	pos := l.offset()
	closing := "</" + name

	var sb strings.Builder
	for {
		sb.WriteString(q.ConsumeToIgnoreCase(closing))
		if q.IsEmpty() || l.atEndTag(closing) {
			break
		}
		head := q.String()[:len(closing)]
		q.MatchChomp(head)
		sb.WriteString(head)
	}

	if sb.Len() > 0 {
		l.addToken(Token{Type: TokenRawText, Value: sb.String(), Position: pos})
	}
	if q.IsEmpty() {
		return
	}

	end := l.offset()
	q.ChompToIgnoreCase(closing)
	q.ChompTo(">")
	l.addToken(Token{Type: TokenEndTag, Value: name, Position: end})
}

// atEndTag reports whether the queue head is closing followed by '>', '/',
// whitespace or the end of input. The head must already match closing.
func (l *Lexer) atEndTag(closing string) bool {
	rest := l.queue.String()[len(closing):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return r == '>' || r == '/' || unicode.IsSpace(r)
}

// addToken appends tok, merging consecutive text tokens.
func (l *Lexer) addToken(tok Token) {
	if n := len(l.tokens); n > 0 && tok.Type == TokenText && l.tokens[n-1].Type == TokenText {
		l.tokens[n-1].Value += tok.Value
		return
	}
	l.tokens = append(l.tokens, tok)
}
