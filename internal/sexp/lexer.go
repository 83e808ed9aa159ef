package sexp

import (
	"fmt"
	"strconv"
	"strings"
)

type Type int

const (
	LParen Type = iota
	RParen
	Ident
	String
	Number
)

func (t Type) String() string {
	switch t {
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Ident:
		return "identifier"
	case String:
		return "string"
	case Number:
		return "number"
	}
	return "unknown"
}

// Token is one lexical element of a wast source. Value holds the raw text:
// for String tokens it is the content between the quotes with escapes left
// undecoded (use Unescape). Off and End are byte offsets into the source so
// callers can slice out sub-expression spans.
type Token struct {
	Value string
	Type  Type
	Line  int
	Col   int
	Off   int
	End   int
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isHex(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c) || c >= 0x80 ||
		strings.IndexByte("_.$-:=!#%&'*+/<>?@\\^`|~", c) >= 0
}

// Tokenize lexes a wast source into tokens. It fails on unterminated
// strings and block comments; everything else is deferred to the parser.
func Tokenize(input string) ([]Token, error) {
	var tokens []Token
	line, lineStart := 1, 0

	for i := 0; i < len(input); i++ {
		c := input[i]

		if c == '\n' {
			line++
			lineStart = i + 1
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' {
			continue
		}

		col := i - lineStart + 1

		// Line comment
		if c == ';' && i+1 < len(input) && input[i+1] == ';' {
			for i < len(input) && input[i] != '\n' {
				i++
			}
			line++
			lineStart = i + 1
			continue
		}

		// Block comment or left paren
		if c == '(' {
			if i+1 < len(input) && input[i+1] == ';' {
				depth := 1
				j := i + 2
				for j < len(input) && depth > 0 {
					switch {
					case input[j] == '(' && j+1 < len(input) && input[j+1] == ';':
						depth++
						j++
					case input[j] == ';' && j+1 < len(input) && input[j+1] == ')':
						depth--
						j++
					case input[j] == '\n':
						line++
						lineStart = j + 1
					}
					j++
				}
				if depth > 0 {
					return nil, fmt.Errorf("line %d: unterminated block comment", line)
				}
				i = j - 1
				continue
			}
			tokens = append(tokens, Token{"(", LParen, line, col, i, i + 1})
			continue
		}

		if c == ')' {
			tokens = append(tokens, Token{")", RParen, line, col, i, i + 1})
			continue
		}

		// String literal; escapes stay raw. The token keeps the line of
		// its opening quote even if the content spans lines.
		if c == '"' {
			openLine := line
			start := i + 1
			j := start
			for j < len(input) && input[j] != '"' {
				if input[j] == '\\' && j+1 < len(input) {
					j++
				} else if input[j] == '\n' {
					line++
					lineStart = j + 1
				}
				j++
			}
			if j >= len(input) {
				return nil, fmt.Errorf("line %d: unterminated string", openLine)
			}
			tokens = append(tokens, Token{input[start:j], String, openLine, col, i, j + 1})
			i = j
			continue
		}

		// Number, or signed inf/nan which lex as identifiers
		if c == '-' || c == '+' || isDigit(c) {
			start := i
			if (c == '-' || c == '+') && i+1 < len(input) && !isDigit(input[i+1]) {
				j := i + 1
				for j < len(input) && isIdentChar(input[j]) {
					j++
				}
				tokens = append(tokens, Token{input[start:j], Ident, line, col, start, j})
				i = j - 1
				continue
			}
			j := i
			if c == '-' || c == '+' {
				j++
			}
			for j < len(input) {
				b := input[j]
				expSign := (b == '-' || b == '+') && j > start &&
					(input[j-1] == 'e' || input[j-1] == 'E' || input[j-1] == 'p' || input[j-1] == 'P')
				if isHex(b) || b == '.' || b == 'x' || b == 'X' || b == '_' ||
					b == 'p' || b == 'P' || expSign {
					j++
				} else {
					break
				}
			}
			// nan:0x... payload form
			if j < len(input) && input[j] == ':' {
				j++
				for j < len(input) && isIdentChar(input[j]) {
					j++
				}
			}
			tokens = append(tokens, Token{input[start:j], Number, line, col, start, j})
			i = j - 1
			continue
		}

		// Identifier: $names, keywords, offset=/align= forms
		if isIdentChar(c) {
			start := i
			j := i
			for j < len(input) && isIdentChar(input[j]) {
				j++
			}
			tokens = append(tokens, Token{input[start:j], Ident, line, col, start, j})
			i = j - 1
			continue
		}

		return nil, fmt.Errorf("line %d: unexpected character %q", line, c)
	}

	return tokens, nil
}

// Unescape decodes the escape sequences of a raw wast string token into
// bytes. "\xx" two-digit hex escapes produce single raw bytes, which is how
// scripts spell arbitrary binary module content.
func Unescape(raw string) ([]byte, error) {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(raw) {
			return nil, fmt.Errorf("trailing backslash in string")
		}
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '"':
			out = append(out, '"')
		case '\'':
			out = append(out, '\'')
		case '\\':
			out = append(out, '\\')
		case 'u':
			if i+1 >= len(raw) || raw[i+1] != '{' {
				return nil, fmt.Errorf("malformed \\u escape")
			}
			end := strings.IndexByte(raw[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated \\u escape")
			}
			n, err := strconv.ParseUint(raw[i+2:i+2+end], 16, 32)
			if err != nil {
				return nil, fmt.Errorf("malformed \\u escape: %w", err)
			}
			out = append(out, []byte(string(rune(n)))...)
			i += 2 + end
		default:
			if i+1 < len(raw) && isHex(raw[i]) && isHex(raw[i+1]) {
				n, _ := strconv.ParseUint(raw[i:i+2], 16, 8)
				out = append(out, byte(n))
				i++
			} else {
				return nil, fmt.Errorf("unknown escape \\%c", raw[i])
			}
		}
	}
	return out, nil
}
