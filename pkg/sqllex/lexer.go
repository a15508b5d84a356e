package sqllex

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/sqlharvest/pkg/token"
)

// Lexer tokenizes raw SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	var tok token.Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = token.TOKEN_EOF
		tok.Literal = ""
	case '+':
		tok = l.newToken(token.TOKEN_PLUS, "+")
	case '-':
		tok = l.newToken(token.TOKEN_MINUS, "-")
	case '*':
		tok = l.newToken(token.TOKEN_STAR, "*")
	case '/':
		tok = l.newToken(token.TOKEN_SLASH, "/")
	case '%':
		tok = l.newToken(token.TOKEN_PERCENT, "%")
	case '=':
		// MySQL dumps occasionally carry '=='
		if l.peekChar() == '=' {
			l.readChar()
		}
		tok = token.Token{Type: token.TOKEN_EQ, Literal: "=", Pos: pos}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.TOKEN_LE, Literal: "<=", Pos: pos}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.TOKEN_NE, Literal: "<>", Pos: pos}
		} else {
			tok = l.newToken(token.TOKEN_LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.TOKEN_GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(token.TOKEN_GT, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.TOKEN_NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.newToken(token.TOKEN_ILLEGAL, string(l.ch))
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.TOKEN_DPIPE, Literal: "||", Pos: pos}
		} else {
			tok = l.newToken(token.TOKEN_ILLEGAL, string(l.ch))
		}
	case '.':
		tok = l.newToken(token.TOKEN_DOT, ".")
	case ',':
		tok = l.newToken(token.TOKEN_COMMA, ",")
	case ';':
		tok = l.newToken(token.TOKEN_SEMI, ";")
	case '(':
		tok = l.newToken(token.TOKEN_LPAREN, "(")
	case ')':
		tok = l.newToken(token.TOKEN_RPAREN, ")")
	case '\'':
		tok.Type = token.TOKEN_STRING
		tok.Literal = l.readString('\'')
		tok.Pos = pos
		return tok
	case '"':
		// ANSI quoted identifier
		tok.Type = token.TOKEN_IDENT
		tok.Literal = l.readString('"')
		tok.Pos = pos
		return tok
	case '`':
		// MySQL quoted identifier
		tok.Type = token.TOKEN_IDENT
		tok.Literal = l.readString('`')
		tok.Pos = pos
		return tok
	case '[':
		// SQL Server quoted identifier: [col name]
		tok.Type = token.TOKEN_IDENT
		tok.Literal = l.readBracketIdentifier()
		tok.Pos = pos
		return tok
	case ']':
		tok = l.newToken(token.TOKEN_RBRACKET, "]")
	default:
		// A leading '#' never reaches here: it opens a line comment.
		if isLetter(l.ch) || l.ch == '_' || l.ch == '@' {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(strings.ToLower(tok.Literal))
			tok.Pos = pos
			return tok
		} else if isDigit(l.ch) {
			tok.Type = token.TOKEN_NUMBER
			tok.Literal = l.readNumber()
			tok.Pos = pos
			return tok
		}
		tok = l.newToken(token.TOKEN_ILLEGAL, string(l.ch))
	}

	l.readChar()
	return tok
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType token.Type, literal string) token.Token {
	return token.Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		// Line comments: -- ... and # ... (MySQL)
		if (l.ch == '-' && l.peekChar() == '-') || l.ch == '#' {
			l.skipLineComment()
			continue
		}

		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

// skipLineComment skips a line comment.
func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// skipBlockComment skips a block comment.
func (l *Lexer) skipBlockComment() {
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for {
		if l.ch == 0 {
			return // Unterminated block comment
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // skip '*'
			l.readChar() // skip '/'
			return
		}
		l.readChar()
	}
}

// readString reads a quoted literal or identifier delimited by quote.
// Handles doubled quotes as escape: 'it''s' -> it's
func (l *Lexer) readString(quote byte) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.ch == 0 {
			// Unterminated literal
			break
		}
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar() // skip first quote
				l.readChar() // skip second quote
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else if l.ch == '\\' && quote == '\'' && l.peekChar() != 0 {
			// Backslash escapes appear in MySQL string literals
			l.readChar()
			result.WriteByte(l.ch)
			l.readChar()
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readBracketIdentifier reads a [bracketed] identifier.
func (l *Lexer) readBracketIdentifier() string {
	l.readChar() // skip '['

	var result strings.Builder
	for l.ch != ']' && l.ch != 0 {
		result.WriteByte(l.ch)
		l.readChar()
	}
	if l.ch == ']' {
		l.readChar() // skip ']'
	}
	return result.String()
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '@' || l.ch == '#' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true if ch is a letter.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
