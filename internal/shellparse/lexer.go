package shellparse

import "strings"

type TokenKind int

const (
	Word TokenKind = iota
	ChainOperator
	RedirectOperator
)

// Token is one lexical unit of a command line. Text has quotes and escapes
// removed; Start and End are byte offsets into the source string.
type Token struct {
	Text   string
	Kind   TokenKind
	Quoted bool
	Start  int
	End    int
}

type lexState int

const (
	stateUnquoted lexState = iota
	stateSingleQuoted
	stateDoubleQuoted
)

type lexer struct {
	source  string
	tokens  []Token
	state   lexState
	current strings.Builder
	inWord  bool
	quoted  bool
	start   int
	end     int
}

// Tokenize splits a command line into words, chain operators and redirect
// operators. It never fails: an unterminated quote keeps the rest of the input
// in the open word.
func Tokenize(command string) []Token {
	tokenLexer := &lexer{source: command}
	for index := 0; index < len(command); index++ {
		character := command[index]
		switch tokenLexer.state {
		case stateSingleQuoted:
			if character == '\'' {
				tokenLexer.state = stateUnquoted
			} else {
				tokenLexer.current.WriteByte(character)
			}
			tokenLexer.end = index + 1
		case stateDoubleQuoted:
			if character == '"' {
				tokenLexer.state = stateUnquoted
			} else if character == '\\' && index+1 < len(command) && strings.IndexByte("\"\\$`", command[index+1]) >= 0 {
				index++
				tokenLexer.current.WriteByte(command[index])
			} else {
				tokenLexer.current.WriteByte(character)
			}
			tokenLexer.end = index + 1
		default:
			index = tokenLexer.stepUnquoted(index)
		}
	}
	tokenLexer.flush()
	return tokenLexer.tokens
}

func (tokenLexer *lexer) stepUnquoted(index int) int {
	source := tokenLexer.source
	character := source[index]
	switch character {
	case '\'':
		tokenLexer.begin(index)
		tokenLexer.quoted = true
		tokenLexer.state = stateSingleQuoted
		tokenLexer.end = index + 1
	case '"':
		tokenLexer.begin(index)
		tokenLexer.quoted = true
		tokenLexer.state = stateDoubleQuoted
		tokenLexer.end = index + 1
	case '\\':
		if index+1 < len(source) && source[index+1] == '\n' {
			return index + 1
		}
		tokenLexer.begin(index)
		tokenLexer.quoted = true
		if index+1 < len(source) {
			index++
			tokenLexer.current.WriteByte(source[index])
		}
		tokenLexer.end = index + 1
	case ' ', '\t', '\r':
		tokenLexer.flush()
	case '\n', ';':
		tokenLexer.flush()
		end := index + 1
		for end < len(source) && source[end] == ';' {
			end++
		}
		tokenLexer.emit(ChainOperator, ";", index, end)
		return end - 1
	case '|':
		tokenLexer.flush()
		if index+1 < len(source) && source[index+1] == '|' {
			tokenLexer.emit(ChainOperator, "||", index, index+2)
			return index + 1
		}
		if index+1 < len(source) && source[index+1] == '&' {
			tokenLexer.emit(ChainOperator, "|", index, index+2)
			return index + 1
		}
		tokenLexer.emit(ChainOperator, "|", index, index+1)
	case '&':
		if index+1 < len(source) && source[index+1] == '>' {
			tokenLexer.flush()
			return tokenLexer.redirect(index, index+1)
		}
		tokenLexer.flush()
		if index+1 < len(source) && source[index+1] == '&' {
			tokenLexer.emit(ChainOperator, "&&", index, index+2)
			return index + 1
		}
		tokenLexer.emit(ChainOperator, "&", index, index+1)
	case '>', '<':
		start := index
		if tokenLexer.inWord && !tokenLexer.quoted && isDescriptor(tokenLexer.current.String()) {
			start = tokenLexer.start
			tokenLexer.reset()
		} else {
			tokenLexer.flush()
		}
		return tokenLexer.redirect(start, index)
	default:
		tokenLexer.begin(index)
		tokenLexer.current.WriteByte(character)
		tokenLexer.end = index + 1
	}
	return index
}

// redirect emits a redirect operator starting at start whose first angle
// bracket is at index, and returns the index of its last byte.
func (tokenLexer *lexer) redirect(start int, index int) int {
	source := tokenLexer.source
	first := source[index]
	end := index + 1
	for end < len(source) && source[end] == first && end-index < 3 {
		end++
	}
	if end < len(source) && source[end] == '&' {
		end++
	}
	if first == '>' && end < len(source) && source[end] == '|' {
		end++
	}
	tokenLexer.emit(RedirectOperator, source[start:end], start, end)
	return end - 1
}

func (tokenLexer *lexer) begin(index int) {
	if tokenLexer.inWord {
		return
	}
	tokenLexer.inWord = true
	tokenLexer.start = index
}

func (tokenLexer *lexer) flush() {
	if !tokenLexer.inWord {
		return
	}
	tokenLexer.tokens = append(tokenLexer.tokens, Token{
		Text:   tokenLexer.current.String(),
		Kind:   Word,
		Quoted: tokenLexer.quoted,
		Start:  tokenLexer.start,
		End:    tokenLexer.end,
	})
	tokenLexer.reset()
}

func (tokenLexer *lexer) reset() {
	tokenLexer.current.Reset()
	tokenLexer.inWord = false
	tokenLexer.quoted = false
}

func (tokenLexer *lexer) emit(kind TokenKind, text string, start int, end int) {
	tokenLexer.tokens = append(tokenLexer.tokens, Token{Text: text, Kind: kind, Start: start, End: end})
}

func isDescriptor(text string) bool {
	if text == "" {
		return false
	}
	for _, character := range text {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}
