/*
Package tokenqueue provides TokenQueue, a mutable cursor over a string used as
the low-level scanning primitive beneath the markup tokenizer and the selector
parser.

# Reading

Peek and the Matches family never consume. Consume removes one rune and fails
with ErrEmptyQueue once the input is exhausted, while Peek returns 0. AddFirst
pushes text back onto the front of the queue.

# Bounded consumption

	q := tokenqueue.New("<textarea>one < two </TEXTarea> rest")
	data := q.ChompToIgnoreCase("</textarea>") // "<textarea>one < two "
	rest := q.Remainder()                     // " rest"

The Consume* routines leave a delimiter in place; the Chomp* routines drop it.
A missing delimiter is not an error: the rest of the input is returned.

# Balanced groups

ChompBalanced extracts the contents of a delimited group while tracking
nesting depth. A backslash escapes the following rune, and quoted runs are
opaque, so neither affects the depth count. Escapes are kept in the output and
resolved afterwards with Unescape:

	q := tokenqueue.New(`:contains(one (two) \) three) four`)
	q.ConsumeTo("(")                   // ":contains"
	arg := q.ChompBalanced('(', ')')   // `one (two) \) three`
	tokenqueue.Unescape(arg)           // "one (two) ) three"

Unterminated groups yield whatever followed the opening delimiter.
*/
package tokenqueue
