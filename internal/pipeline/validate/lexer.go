package validate

import (
	"fmt"
	"strings"
)

// A minimal SQL lexer. The validator never pattern-matches raw statement
// text: every check runs over this token stream so keywords hidden in
// comments or odd casing cannot slip past it.

type tokenType int

const (
	tokWord tokenType = iota
	tokNumber
	tokString
	tokComment
	tokPlaceholder
	tokSymbol
)

type token struct {
	typ   tokenType
	value string // words upper-cased; strings without quotes; comments without markers
	raw   string
	start int
	end   int
}

// lex splits sql into tokens. Unterminated strings and block comments are
// lexing errors; a statement that cannot be tokenized cannot be validated.
func lex(sql string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(sql)

	for i < n {
		c := sql[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '-' && i+1 < n && sql[i+1] == '-':
			start := i
			for i < n && sql[i] != '\n' {
				i++
			}
			tokens = append(tokens, token{
				typ:   tokComment,
				value: strings.TrimSpace(sql[start+2 : i]),
				raw:   sql[start:i],
				start: start,
				end:   i,
			})

		case c == '/' && i+1 < n && sql[i+1] == '*':
			start := i
			i += 2
			for i+1 < n && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			if i+1 >= n {
				return nil, fmt.Errorf("unterminated block comment at offset %d", start)
			}
			i += 2
			tokens = append(tokens, token{
				typ:   tokComment,
				value: strings.TrimSpace(sql[start+2 : i-2]),
				raw:   sql[start:i],
				start: start,
				end:   i,
			})

		case c == '\'':
			start := i
			i++
			var b strings.Builder
			closed := false
			for i < n {
				if sql[i] == '\'' {
					if i+1 < n && sql[i+1] == '\'' { // escaped quote
						b.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				b.WriteByte(sql[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string literal at offset %d", start)
			}
			tokens = append(tokens, token{
				typ:   tokString,
				value: b.String(),
				raw:   sql[start:i],
				start: start,
				end:   i,
			})

		case c == '"':
			start := i
			i++
			for i < n && sql[i] != '"' {
				i++
			}
			if i >= n {
				return nil, fmt.Errorf("unterminated quoted identifier at offset %d", start)
			}
			i++
			tokens = append(tokens, token{
				typ:   tokWord,
				value: strings.ToUpper(sql[start+1 : i-1]),
				raw:   sql[start:i],
				start: start,
				end:   i,
			})

		case c == '$' && i+1 < n && isDigit(sql[i+1]):
			start := i
			i++
			for i < n && isDigit(sql[i]) {
				i++
			}
			tokens = append(tokens, token{
				typ:   tokPlaceholder,
				value: sql[start:i],
				raw:   sql[start:i],
				start: start,
				end:   i,
			})

		case isDigit(c):
			start := i
			for i < n && (isDigit(sql[i]) || sql[i] == '.') {
				i++
			}
			tokens = append(tokens, token{
				typ:   tokNumber,
				value: sql[start:i],
				raw:   sql[start:i],
				start: start,
				end:   i,
			})

		case isWordStart(c):
			start := i
			for i < n && isWordByte(sql[i]) {
				i++
			}
			tokens = append(tokens, token{
				typ:   tokWord,
				value: strings.ToUpper(sql[start:i]),
				raw:   sql[start:i],
				start: start,
				end:   i,
			})

		default:
			tokens = append(tokens, token{
				typ:   tokSymbol,
				value: string(c),
				raw:   string(c),
				start: i,
				end:   i + 1,
			})
			i++
		}
	}

	return tokens, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isWordStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isWordByte(b byte) bool {
	return isWordStart(b) || isDigit(b)
}
