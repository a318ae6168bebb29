package selector

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gnoswap-labs/markscan/markup"
	"github.com/gnoswap-labs/markscan/tokenqueue"
)

var (
	ErrEmptySelector   = errors.New("selector: empty selector")
	ErrUnexpectedToken = errors.New("selector: unexpected token")
	ErrUnknownPseudo   = errors.New("selector: unknown pseudo selector")
	ErrEmptyArgument   = errors.New("selector: pseudo selector argument must not be empty")
	ErrInvalidRegexp   = errors.New("selector: invalid regular expression")
)

// AttrOp is the comparison used by an attribute selector.
type AttrOp int

const (
	OpExists    AttrOp = iota // [key]
	OpEquals                  // [key=value]
	OpNotEquals               // [key!=value]
	OpPrefix                  // [key^=value]
	OpSuffix                  // [key$=value]
	OpContains                // [key*=value]
	OpWord                    // [key~=value]
)

// operators in the order they must be tried; "=" is a suffix of the others.
var operators = []struct {
	text string
	op   AttrOp
}{
	{"!=", OpNotEquals},
	{"^=", OpPrefix},
	{"$=", OpSuffix},
	{"*=", OpContains},
	{"~=", OpWord},
	{"=", OpEquals},
}

// Attr is a single [key op value] condition.
type Attr struct {
	Key   string
	Op    AttrOp
	Value string
}

// Pseudo is a pseudo selector with an argument, e.g. :contains(text).
type Pseudo struct {
	Name string
	Arg  string
	re   *regexp.Regexp
}

// Selector is a compound selector: every condition must hold for an element.
type Selector struct {
	Tag     string // "" and "*" match any element
	ID      string
	Classes []string
	Attrs   []Attr
	Pseudos []Pseudo
}

// Parse parses a compound selector such as `a.ext[href^=http]:contains(docs)`.
// Combinators and selector groups are not supported.
func Parse(query string) (Selector, error) {
	q := tokenqueue.New(strings.TrimSpace(query))
	if q.IsEmpty() {
		return Selector{}, ErrEmptySelector
	}

	var sel Selector
	sel.Tag = strings.ToLower(strings.ReplaceAll(q.ConsumeElementSelector(), "|", ":"))
	if sel.Tag == "" && q.MatchChomp("*") {
		sel.Tag = "*"
	}

	for !q.IsEmpty() {
		switch {
		case q.MatchChomp("#"):
			id := q.ConsumeCSSIdentifier()
			if id == "" {
				return Selector{}, unexpected(q)
			}
			sel.ID = id

		case q.MatchChomp("."):
			class := q.ConsumeCSSIdentifier()
			if class == "" {
				return Selector{}, unexpected(q)
			}
			sel.Classes = append(sel.Classes, class)

		case q.MatchesCS("["):
			attr, err := parseAttr(q.ChompBalanced('[', ']'))
			if err != nil {
				return Selector{}, err
			}
			sel.Attrs = append(sel.Attrs, attr)

		case q.MatchChomp(":"):
			pseudo, err := parsePseudo(q)
			if err != nil {
				return Selector{}, err
			}
			sel.Pseudos = append(sel.Pseudos, pseudo)

		default:
			return Selector{}, unexpected(q)
		}
	}

	return sel, nil
}

func unexpected(q *tokenqueue.TokenQueue) error {
	return fmt.Errorf("%w at %q", ErrUnexpectedToken, q.String())
}

// parseAttr parses the inside of an attribute selector, e.g. `href^="http"`.
func parseAttr(content string) (Attr, error) {
	q := tokenqueue.New(content)

	texts := make([]string, len(operators))
	for i, o := range operators {
		texts[i] = o.text
	}

	attr := Attr{Key: strings.ToLower(strings.TrimSpace(q.ConsumeToAny(texts...)))}
	if attr.Key == "" {
		return Attr{}, fmt.Errorf("%w: attribute selector [%s]", ErrUnexpectedToken, content)
	}
	if q.IsEmpty() {
		return attr, nil
	}

	for _, o := range operators {
		if q.MatchChomp(o.text) {
			attr.Op = o.op
			break
		}
	}
	attr.Value = stripQuotes(strings.TrimSpace(q.Remainder()))
	return attr, nil
}

func parsePseudo(q *tokenqueue.TokenQueue) (Pseudo, error) {
	name := strings.ToLower(q.ConsumeCSSIdentifier())
	if name != "contains" && name != "matches" {
		return Pseudo{}, fmt.Errorf("%w: %q", ErrUnknownPseudo, name)
	}
	if !q.MatchesCS("(") {
		return Pseudo{}, fmt.Errorf("%w: %s requires an argument", ErrUnexpectedToken, name)
	}

	arg := stripQuotes(strings.TrimSpace(tokenqueue.Unescape(q.ChompBalanced('(', ')'))))
	if arg == "" {
		return Pseudo{}, fmt.Errorf("%w: :%s", ErrEmptyArgument, name)
	}

	p := Pseudo{Name: name, Arg: arg}
	if name == "matches" {
		re, err := regexp.Compile(arg)
		if err != nil {
			return Pseudo{}, fmt.Errorf("%w: %w", ErrInvalidRegexp, err)
		}
		p.re = re
	}
	return p, nil
}

// PseudoArgument splits a pseudo selector such as `:contains(one \) two)`
// into its name and unescaped argument.
func PseudoArgument(query string) (name, arg string) {
	q := tokenqueue.New(query)
	name = strings.TrimPrefix(q.ConsumeTo("("), ":")
	arg = tokenqueue.Unescape(q.ChompBalanced('(', ')'))
	return name, arg
}

func stripQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// Matches reports whether el satisfies every condition of s.
func (s Selector) Matches(el *markup.Element) bool {
	if !s.matchesTag(el.Name) {
		return false
	}
	if s.ID != "" && el.ID() != s.ID {
		return false
	}
	for _, class := range s.Classes {
		if !hasClass(el, class) {
			return false
		}
	}
	for _, a := range s.Attrs {
		if !a.matches(el) {
			return false
		}
	}
	for _, p := range s.Pseudos {
		if !p.matches(el) {
			return false
		}
	}
	return true
}

func (s Selector) matchesTag(name string) bool {
	switch {
	case s.Tag == "" || s.Tag == "*":
		return true
	case strings.HasPrefix(s.Tag, "*:"):
		local := s.Tag[2:]
		return name == local || strings.HasSuffix(name, ":"+local)
	default:
		return name == s.Tag
	}
}

func hasClass(el *markup.Element, class string) bool {
	for _, c := range el.Classes() {
		if strings.EqualFold(c, class) {
			return true
		}
	}
	return false
}

func (a Attr) matches(el *markup.Element) bool {
	got, ok := el.Attr(a.Key)
	if a.Op == OpNotEquals {
		return !ok || !strings.EqualFold(got, a.Value)
	}
	if !ok {
		return false
	}

	got, want := strings.ToLower(got), strings.ToLower(a.Value)
	switch a.Op {
	case OpExists:
		return true
	case OpEquals:
		return got == want
	case OpPrefix:
		return strings.HasPrefix(got, want)
	case OpSuffix:
		return strings.HasSuffix(got, want)
	case OpContains:
		return strings.Contains(got, want)
	case OpWord:
		for _, w := range strings.Fields(got) {
			if w == want {
				return true
			}
		}
	}
	return false
}

func (p Pseudo) matches(el *markup.Element) bool {
	switch p.Name {
	case "contains":
		return strings.Contains(strings.ToLower(el.Text), strings.ToLower(p.Arg))
	case "matches":
		return p.re != nil && p.re.MatchString(el.Text)
	}
	return false
}

// Select returns the elements matching sel, in document order.
func Select(elems []*markup.Element, sel Selector) []*markup.Element {
	var out []*markup.Element
	for _, el := range elems {
		if sel.Matches(el) {
			out = append(out, el)
		}
	}
	return out
}
