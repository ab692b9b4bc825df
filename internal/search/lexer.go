package search

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenOp
	tokenString
	tokenNumber
	tokenAnd
)

type token struct {
	kind tokenKind
	text string
	// entity and key are set for identifiers.
	entity string
	key    string
}

func isOpChar(r rune) bool {
	return r == '<' || r == '>' || r == '=' || r == '!'
}

func lex(input string) ([]token, error) {
	src := []rune(input)
	var tokens []token
	i := 0
	for i < len(src) {
		r := src[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'' || r == '"':
			s, next, ok := readQuoted(src, i)
			if !ok {
				return nil, errorf("Invalid filter '%s'. Unterminated string starting at %q", input, string(src[i:]))
			}
			tokens = append(tokens, token{kind: tokenString, text: s})
			i = next
		case isOpChar(r):
			j := i
			for j < len(src) && isOpChar(src[j]) {
				j++
			}
			op := string(src[i:j])
			switch op {
			case "=", "!=", "<", "<=", ">", ">=":
			case "==":
				op = "="
			default:
				return nil, errorf("Invalid comparator '%s'", op)
			}
			tokens = append(tokens, token{kind: tokenOp, text: op})
			i = j
		case isNumberStart(src, i):
			j := i + 1
			for j < len(src) && (unicode.IsDigit(src[j]) || strings.ContainsRune(".eE+-", src[j])) {
				if (src[j] == '+' || src[j] == '-') && src[j-1] != 'e' && src[j-1] != 'E' {
					break
				}
				j++
			}
			tokens = append(tokens, token{kind: tokenNumber, text: string(src[i:j])})
			i = j
		default:
			tok, next, err := readWord(src, i, input)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next
		}
	}
	return tokens, nil
}

func isNumberStart(src []rune, i int) bool {
	r := src[i]
	if unicode.IsDigit(r) {
		return true
	}
	if (r == '-' || r == '+' || r == '.') && i+1 < len(src) {
		return unicode.IsDigit(src[i+1]) || (r != '.' && src[i+1] == '.')
	}
	return false
}

// readQuoted reads a quoted segment starting at src[i] and returns its
// contents without the quotes.
func readQuoted(src []rune, i int) (string, int, bool) {
	quote := src[i]
	for j := i + 1; j < len(src); j++ {
		if src[j] == quote {
			return string(src[i+1 : j]), j + 1, true
		}
	}
	return "", 0, false
}

// readWord reads either the AND keyword or an identifier of the form
// <entity>.<key>, where both parts may be quoted.
func readWord(src []rune, i int, input string) (token, int, error) {
	start := i
	var entity string
	if src[i] == '`' {
		s, next, ok := readQuoted(src, i)
		if !ok {
			return token{}, 0, errorf("Invalid filter '%s'. Unterminated identifier", input)
		}
		entity = s
		i = next
	} else {
		j := i
		for j < len(src) && src[j] != '.' && !unicode.IsSpace(src[j]) && !isOpChar(src[j]) {
			j++
		}
		entity = string(src[i:j])
		i = j
	}

	if i >= len(src) || src[i] != '.' {
		if strings.EqualFold(entity, "and") {
			return token{kind: tokenAnd, text: entity}, i, nil
		}
		return token{}, 0, errorf("Invalid clause(s) in filter string: '%s'", string(src[start:i]))
	}
	i++ // '.'

	var key string
	if i < len(src) && (src[i] == '`' || src[i] == '"' || src[i] == '\'') {
		s, next, ok := readQuoted(src, i)
		if !ok {
			return token{}, 0, errorf("Invalid filter '%s'. Unterminated identifier", input)
		}
		key = s
		i = next
	} else {
		j := i
		for j < len(src) && !unicode.IsSpace(src[j]) && !isOpChar(src[j]) {
			j++
		}
		key = string(src[i:j])
		i = j
	}
	return token{
		kind:   tokenIdent,
		text:   string(src[start:i]),
		entity: strings.ToLower(entity),
		key:    key,
	}, i, nil
}
