package sqllex

import (
	"strings"

	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// Piece is one raw statement cut out of a source file, before
// tokenization.
type Piece struct {
	Text string
	Span token.Span
}

// Split cuts a file's text into statements on semicolons, honoring
// string literals, quoted identifiers, and comments so a
// ';' inside any of them never terminates a statement. Empty pieces
// (runs of whitespace or comments between semicolons) are dropped.
func Split(text string) []Piece {
	var pieces []Piece
	start := 0
	i := 0
	n := len(text)

	for i < n {
		switch text[i] {
		case '\'', '"', '`':
			i = skipQuoted(text, i, text[i])
		case '[':
			i = skipBracket(text, i)
		case '-':
			if i+1 < n && text[i+1] == '-' {
				i = skipToLineEnd(text, i)
			} else {
				i++
			}
		case '#':
			i = skipToLineEnd(text, i)
		case '/':
			if i+1 < n && text[i+1] == '*' {
				i = skipBlock(text, i)
			} else {
				i++
			}
		case ';':
			if piece := makePiece(text, start, i); piece != nil {
				pieces = append(pieces, *piece)
			}
			i++
			start = i
		default:
			i++
		}
	}

	if piece := makePiece(text, start, n); piece != nil {
		pieces = append(pieces, *piece)
	}
	return pieces
}

func makePiece(text string, start, end int) *Piece {
	raw := text[start:end]
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return &Piece{
		Text: raw,
		Span: token.Span{Start: start, End: end},
	}
}

// skipQuoted advances past a quoted region opened at i, handling
// doubled-quote escapes and backslash escapes in single quotes.
func skipQuoted(text string, i int, quote byte) int {
	n := len(text)
	i++ // opening quote
	for i < n {
		switch {
		case text[i] == '\\' && quote == '\'' && i+1 < n:
			i += 2
		case text[i] == quote:
			if i+1 < n && text[i+1] == quote {
				i += 2 // doubled-quote escape
				continue
			}
			return i + 1
		default:
			i++
		}
	}
	return n // unterminated
}

func skipBracket(text string, i int) int {
	n := len(text)
	i++ // '['
	for i < n && text[i] != ']' {
		i++
	}
	if i < n {
		i++ // ']'
	}
	return i
}

func skipToLineEnd(text string, i int) int {
	n := len(text)
	for i < n && text[i] != '\n' {
		i++
	}
	return i
}

func skipBlock(text string, i int) int {
	n := len(text)
	i += 2 // "/*"
	for i+1 < n {
		if text[i] == '*' && text[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return n // unterminated
}
