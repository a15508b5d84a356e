package sqllex

import "fmt"

// LexError reports input that could not be tokenized at all. It marks
// the statement unparsed; the surrounding file continues.
type LexError struct {
	Message string
	Length  int
}

func (e *LexError) Error() string {
	if e.Length > 0 {
		return fmt.Sprintf("lex error: %s (%d bytes)", e.Message, e.Length)
	}
	return fmt.Sprintf("lex error: %s", e.Message)
}
