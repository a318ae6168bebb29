package tokenqueue

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const escape = '\\'

var (
	// ErrEmptyQueue is returned when a rune is force-consumed from an exhausted queue.
	ErrEmptyQueue = errors.New("tokenqueue: queue is empty")
	// ErrUnexpectedSequence is returned by ConsumeSeq when the queue does not start with the sequence.
	ErrUnexpectedSequence = errors.New("tokenqueue: unexpected sequence")
)

// TokenQueue is a cursor over a string. Reads advance pos; the backing
// string is only rebuilt by AddFirst.
//
// A TokenQueue is not safe for concurrent use.
type TokenQueue struct {
	queue string // backing input
	pos   int    // byte offset of the first unconsumed rune
}

// New creates a TokenQueue over input. The input is used as-is.
func New(input string) *TokenQueue {
	return &TokenQueue{queue: input}
}

func (q *TokenQueue) rest() string {
	return q.queue[q.pos:]
}

// IsEmpty reports whether all input has been consumed.
func (q *TokenQueue) IsEmpty() bool {
	return q.pos >= len(q.queue)
}

// Peek returns the next rune without consuming it, or 0 if the queue is empty.
func (q *TokenQueue) Peek() rune {
	if q.IsEmpty() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(q.rest())
	return r
}

// Consume removes and returns the next rune. It returns ErrEmptyQueue when
// nothing is left; use Peek for a sentinel-returning read.
func (q *TokenQueue) Consume() (rune, error) {
	if q.IsEmpty() {
		return 0, ErrEmptyQueue
	}
	r, size := utf8.DecodeRuneInString(q.rest())
	q.pos += size
	return r, nil
}

// Advance drops the next rune, if any.
func (q *TokenQueue) Advance() {
	if !q.IsEmpty() {
		_, size := utf8.DecodeRuneInString(q.rest())
		q.pos += size
	}
}

// AddFirst pushes s back onto the front of the queue.
func (q *TokenQueue) AddFirst(s string) {
	q.queue = s + q.rest()
	q.pos = 0
}

// Matches reports whether the queue starts with seq, ignoring case.
func (q *TokenQueue) Matches(seq string) bool {
	return hasPrefixFold(q.rest(), seq)
}

// MatchesCS reports whether the queue starts with seq, case-sensitively.
func (q *TokenQueue) MatchesCS(seq string) bool {
	return strings.HasPrefix(q.rest(), seq)
}

// MatchesAny reports whether the queue starts with any of seqs (case-sensitive).
func (q *TokenQueue) MatchesAny(seqs ...string) bool {
	for _, seq := range seqs {
		if q.MatchesCS(seq) {
			return true
		}
	}
	return false
}

// MatchesAnyRune reports whether the next rune is one of runes.
func (q *TokenQueue) MatchesAnyRune(runes ...rune) bool {
	if q.IsEmpty() {
		return false
	}
	next := q.Peek()
	for _, r := range runes {
		if r == next {
			return true
		}
	}
	return false
}

// MatchesStartTag reports whether the queue starts with '<' followed by an ASCII letter.
func (q *TokenQueue) MatchesStartTag() bool {
	rest := q.rest()
	return len(rest) >= 2 && rest[0] == '<' && isASCIILetter(rest[1])
}

// MatchChomp consumes seq if the queue starts with it (ignoring case).
func (q *TokenQueue) MatchChomp(seq string) bool {
	if !q.Matches(seq) {
		return false
	}
	q.pos += len(seq)
	return true
}

// MatchesWhitespace reports whether the next rune is whitespace.
func (q *TokenQueue) MatchesWhitespace() bool {
	return !q.IsEmpty() && unicode.IsSpace(q.Peek())
}

// MatchesWord reports whether the next rune is a letter or digit.
func (q *TokenQueue) MatchesWord() bool {
	return !q.IsEmpty() && isWordRune(q.Peek())
}

// ConsumeSeq consumes seq (ignoring case). The queue is left untouched on mismatch.
func (q *TokenQueue) ConsumeSeq(seq string) error {
	if !q.MatchChomp(seq) {
		return fmt.Errorf("%w: %q at offset %d", ErrUnexpectedSequence, seq, q.pos)
	}
	return nil
}

// ConsumeWhitespace consumes a run of whitespace and reports whether any was found.
func (q *TokenQueue) ConsumeWhitespace() bool {
	seen := false
	for q.MatchesWhitespace() {
		q.Advance()
		seen = true
	}
	return seen
}

// consumeWhile consumes runes while accept returns true. accept also receives
// the number of runes already taken, so a class can restrict its first rune.
func (q *TokenQueue) consumeWhile(accept func(r rune, n int) bool) string {
	start := q.pos
	for n := 0; !q.IsEmpty(); n++ {
		r, size := utf8.DecodeRuneInString(q.rest())
		if !accept(r, n) {
			break
		}
		q.pos += size
	}
	return q.queue[start:q.pos]
}

// ConsumeWord consumes a run of letters and digits.
func (q *TokenQueue) ConsumeWord() string {
	return q.consumeWhile(func(r rune, _ int) bool { return isWordRune(r) })
}

// ConsumeTagName consumes a tag name such as "p", "tag-name" or "ab:cd".
func (q *TokenQueue) ConsumeTagName() string {
	return q.consumeWhile(isNameRune)
}

// ConsumeAttributeKey consumes an attribute key such as "href" or "xml:lang".
// It shares its character class with ConsumeTagName.
func (q *TokenQueue) ConsumeAttributeKey() string {
	return q.consumeWhile(isNameRune)
}

// ConsumeCSSIdentifier consumes a run of letters, digits, '-' and '_'.
func (q *TokenQueue) ConsumeCSSIdentifier() string {
	return q.consumeWhile(func(r rune, _ int) bool {
		return isWordRune(r) || r == '-' || r == '_'
	})
}

// ConsumeElementSelector consumes a type selector, including "*|" and "|" namespace forms.
func (q *TokenQueue) ConsumeElementSelector() string {
	start := q.pos
	for !q.IsEmpty() {
		switch {
		case q.MatchesCS("*|"):
			q.pos += 2
		case q.MatchesWord() || q.MatchesAnyRune('|', '_', '-'):
			q.Advance()
		default:
			return q.queue[start:q.pos]
		}
	}
	return q.queue[start:q.pos]
}

// ConsumeTo consumes up to, not including, the first occurrence of seq.
// Without an occurrence the whole remainder is consumed.
func (q *TokenQueue) ConsumeTo(seq string) string {
	i := strings.Index(q.rest(), seq)
	if i < 0 {
		return q.Remainder()
	}
	out := q.queue[q.pos : q.pos+i]
	q.pos += i
	return out
}

// ConsumeToIgnoreCase is ConsumeTo with a case-insensitive search.
func (q *TokenQueue) ConsumeToIgnoreCase(seq string) string {
	i := indexFold(q.rest(), seq)
	if i < 0 {
		return q.Remainder()
	}
	out := q.queue[q.pos : q.pos+i]
	q.pos += i
	return out
}

// ConsumeToAny consumes until the queue starts with any of seqs, or is empty.
func (q *TokenQueue) ConsumeToAny(seqs ...string) string {
	start := q.pos
	for !q.IsEmpty() && !q.MatchesAny(seqs...) {
		q.Advance()
	}
	return q.queue[start:q.pos]
}

// ChompTo consumes up to seq and then drops seq itself.
func (q *TokenQueue) ChompTo(seq string) string {
	data := q.ConsumeTo(seq)
	q.MatchChomp(seq)
	return data
}

// ChompToIgnoreCase consumes up to seq (ignoring case) and then drops the delimiter.
func (q *TokenQueue) ChompToIgnoreCase(seq string) string {
	data := q.ConsumeToIgnoreCase(seq)
	q.MatchChomp(seq)
	return data
}

// ChompBalanced consumes through the first open rune and its matching close
// rune and returns the text between them. Escaped runes are kept verbatim
// and never count towards depth, nor do delimiters inside quoted runs. If
// input runs out first, the text after open is returned.
func (q *TokenQueue) ChompBalanced(open, close rune) string {
	var (
		start   = -1
		depth   = 0
		quote   rune
		escaped bool
	)

	for !q.IsEmpty() {
		r, size := utf8.DecodeRuneInString(q.rest())
		at := q.pos
		q.pos += size

		switch {
		case escaped:
			escaped = false
		case r == escape:
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case (r == '\'' || r == '"') && r != open:
			quote = r
		case r == open:
			depth++
			if start < 0 {
				start = q.pos
			}
		case r == close && depth > 0:
			depth--
			if depth == 0 {
				return q.queue[start:at]
			}
		}
	}

	if start < 0 {
		return ""
	}
	return q.queue[start:]
}

// Remainder consumes and returns everything left in the queue.
func (q *TokenQueue) Remainder() string {
	out := q.rest()
	q.pos = len(q.queue)
	return out
}

// String returns the unconsumed input without consuming it.
func (q *TokenQueue) String() string {
	return q.rest()
}

// Unescape removes each backslash that precedes another rune. A trailing
// backslash is kept.
func Unescape(in string) string {
	if strings.IndexByte(in, escape) < 0 {
		return in
	}

	var out strings.Builder
	out.Grow(len(in))

	escaped := false
	for _, r := range in {
		if r == escape && !escaped {
			escaped = true
			continue
		}
		out.WriteRune(r)
		escaped = false
	}
	if escaped {
		out.WriteRune(escape)
	}
	return out.String()
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isNameRune is the tag-name and attribute-key class: the first rune is a
// letter, digit or '_'; later runes may also be '-' or ':'.
func isNameRune(r rune, n int) bool {
	switch {
	case isWordRune(r), r == '_':
		return true
	case r == '-', r == ':':
		return n > 0
	}
	return false
}

// hasPrefixFold is a case-insensitive strings.HasPrefix.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// indexFold returns the byte offset of the first case-insensitive occurrence
// of seq in s, or -1.
func indexFold(s, seq string) int {
	if seq == "" {
		return 0
	}
	for i := 0; i+len(seq) <= len(s); {
		if hasPrefixFold(s[i:], seq) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}
