package formatter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gnoswap-labs/markscan/markup"
	"github.com/gnoswap-labs/markscan/scan"
)

// maxTextWidth bounds the element text shown for a match.
const maxTextWidth = 60

var (
	headerStyle  = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	tagStyle     = color.New(color.FgGreen, color.Bold)
	textStyle    = color.New(color.FgWhite)
	commentStyle = color.New(color.FgHiBlack)
	eofStyle     = color.New(color.FgRed)
)

// FormatTokens renders the token stream of each result, one token per line
// prefixed by its byte offset.
func FormatTokens(results []scan.Result) string {
	var builder strings.Builder
	for _, result := range results {
		builder.WriteString(header("tokens", result.File))

		width := offsetWidth(result.Tokens)
		for _, tok := range result.Tokens {
			builder.WriteString(lineStyle.Sprintf("%*d | ", width, tok.Position))
			builder.WriteString(tokenStyle(tok.Type).Sprint(tok.String()))
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// FormatMatches renders the elements selected in each result.
func FormatMatches(results []scan.Result) string {
	var builder strings.Builder
	for _, result := range results {
		for _, el := range result.Matches {
			builder.WriteString(header("match", describe(el)))
			builder.WriteString(lineStyle.Sprint(" --> "))
			builder.WriteString(fileStyle.Sprintf("%s@%d\n", result.File, el.Position))
			if text := summarize(el.Text); text != "" {
				builder.WriteString(lineStyle.Sprint("  = "))
				builder.WriteString(textStyle.Sprintf("%s\n", text))
			}
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

func header(kind, subject string) string {
	return headerStyle.Sprintf("%s: ", kind) + fileStyle.Sprint(subject) + "\n"
}

func tokenStyle(t markup.TokenType) *color.Color {
	switch t {
	case markup.TokenStartTag, markup.TokenEndTag:
		return tagStyle
	case markup.TokenComment:
		return commentStyle
	case markup.TokenEOF:
		return eofStyle
	default:
		return textStyle
	}
}

// describe renders an element as a short selector, e.g. "a#home.nav.top".
func describe(el *markup.Element) string {
	var sb strings.Builder
	sb.WriteString(el.Name)
	if id := el.ID(); id != "" {
		sb.WriteString("#" + id)
	}
	for _, class := range el.Classes() {
		sb.WriteString("." + class)
	}
	return sb.String()
}

// summarize collapses whitespace and truncates long text.
func summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxTextWidth {
		return string(r[:maxTextWidth-3]) + "..."
	}
	return text
}

func offsetWidth(tokens []markup.Token) int {
	if len(tokens) == 0 {
		return 1
	}
	return len(fmt.Sprintf("%d", tokens[len(tokens)-1].Position))
}
