package lexer

import (
	"fmt"
	"strings"
	"unicode"
)

type TokenType string

const (
	// Keywords
	TokenFn       TokenType = "FN"
	TokenLet      TokenType = "LET"
	TokenIf       TokenType = "IF"
	TokenElse     TokenType = "ELSE"
	TokenWhile    TokenType = "WHILE"
	TokenBreak    TokenType = "BREAK"
	TokenContinue TokenType = "CONTINUE"

	// Literals & Types
	TokenTrue    TokenType = "TRUE"
	TokenFalse   TokenType = "FALSE"
	TokenIdent   TokenType = "IDENT"
	TokenString  TokenType = "STRING"
	TokenNumber  TokenType = "NUMBER"
	TokenInt     TokenType = "INT"
	TokenBool    TokenType = "BOOL"
	TokenStringT TokenType = "STRING_T"
	TokenVoid    TokenType = "VOID"

	// Symbols
	TokenLParen      TokenType = "("
	TokenRParen      TokenType = ")"
	TokenLBrace      TokenType = "{"
	TokenRBrace      TokenType = "}"
	TokenPlus        TokenType = "+"
	TokenMinus       TokenType = "-"
	TokenStar        TokenType = "*"
	TokenSlash       TokenType = "/"
	TokenPercent     TokenType = "%"
	TokenEqual       TokenType = "="
	TokenColonEqual  TokenType = ":="
	TokenArrow       TokenType = "->"
	TokenColon       TokenType = ":"
	TokenDoubleEqual TokenType = "=="
	TokenNotEqual    TokenType = "!="
	TokenLT          TokenType = "<"
	TokenGT          TokenType = ">"
	TokenLE          TokenType = "<="
	TokenGE          TokenType = ">="
	TokenAnd         TokenType = "&&"
	TokenOr          TokenType = "||"
	TokenNot         TokenType = "!"
	TokenComma       TokenType = ","
	TokenSemicolon   TokenType = ";"
	TokenEOF         TokenType = "EOF"
)

var keywords = map[string]TokenType{
	"fn":       TokenFn,
	"let":      TokenLet,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"true":     TokenTrue,
	"false":    TokenFalse,
	"int":      TokenInt,
	"bool":     TokenBool,
	"string":   TokenStringT,
	"void":     TokenVoid,
}

type Token struct {
	Type   TokenType
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("[%s] '%s'", t.Type, t.Lexeme)
}

// ScanError is a lexical error at a source position.
type ScanError struct {
	Message string
	Line    int
	Column  int
}

type Scanner struct {
	source    string
	tokens    []Token
	errors    []ScanError
	start     int
	current   int
	line      int
	lineStart int
	startLine int
	startCol  int
}

func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
	}
}

// Errors returns the lexical errors found by ScanTokens.
func (s *Scanner) Errors() []ScanError {
	return s.errors
}

func (s *Scanner) ScanTokens() []Token {
	// Handle shebang at the beginning of the file
	if s.current == 0 && strings.HasPrefix(s.source, "#!") {
		s.skipShebang()
	}

	for !s.isAtEnd() {
		s.sanitize()
		s.start = s.current
		s.startLine = s.line
		s.startCol = s.current - s.lineStart + 1
		if s.isAtEnd() {
			break
		}
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: TokenEOF, Lexeme: "", Line: s.line, Column: s.current - s.lineStart + 1})
	return s.tokens
}

func (s *Scanner) scanToken() {
	c := s.advance()
	switch c {
	case '(':
		s.addToken(TokenLParen)
	case ')':
		s.addToken(TokenRParen)
	case '{':
		s.addToken(TokenLBrace)
	case '}':
		s.addToken(TokenRBrace)
	case '+':
		s.addToken(TokenPlus)
	case '-':
		if s.match('>') {
			s.addToken(TokenArrow)
		} else {
			s.addToken(TokenMinus)
		}
	case '*':
		s.addToken(TokenStar)
	case '/':
		if s.match('/') {
			// Skip to end of line (ignore comments)
			for s.peek() != '\n' && !s.isAtEnd() {
				s.advance()
			}
		} else {
			s.addToken(TokenSlash)
		}
	case '%':
		s.addToken(TokenPercent)
	case '=':
		if s.match('=') {
			s.addToken(TokenDoubleEqual)
		} else {
			s.addToken(TokenEqual)
		}
	case '!':
		if s.match('=') {
			s.addToken(TokenNotEqual)
		} else {
			s.addToken(TokenNot)
		}
	case '<':
		if s.match('=') {
			s.addToken(TokenLE)
		} else {
			s.addToken(TokenLT)
		}
	case '>':
		if s.match('=') {
			s.addToken(TokenGE)
		} else {
			s.addToken(TokenGT)
		}
	case ':':
		if s.match('=') {
			s.addToken(TokenColonEqual)
		} else {
			s.addToken(TokenColon)
		}
	case '"':
		s.string()
	case ',':
		s.addToken(TokenComma)
	case ';':
		s.addToken(TokenSemicolon)
	case '&':
		if s.match('&') {
			s.addToken(TokenAnd)
		} else {
			s.errorf("unexpected '&', did you mean '&&'?")
		}
	case '|':
		if s.match('|') {
			s.addToken(TokenOr)
		} else {
			s.errorf("unexpected '|', did you mean '||'?")
		}
	default:
		if isDigit(c) {
			s.number()
		} else if isAlpha(c) {
			s.identifier()
		} else {
			s.errorf("unexpected character %q", c)
		}
	}
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) identifier() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	if typ, ok := keywords[s.source[s.start:s.current]]; ok {
		s.addToken(typ)
		return
	}
	s.addToken(TokenIdent)
}

func (s *Scanner) number() {
	for isDigit(s.peek()) {
		s.advance()
	}
	s.addToken(TokenNumber)
}

func (s *Scanner) string() {
	var sb strings.Builder
	for s.peek() != '"' && !s.isAtEnd() {
		c := s.advance()
		switch c {
		case '\n':
			s.newline()
			sb.WriteByte(c)
		case '\\':
			if s.isAtEnd() {
				break
			}
			switch e := s.advance(); e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"', '\\':
				sb.WriteByte(e)
			default:
				s.errorf("unknown escape sequence '\\%c'", e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	if s.isAtEnd() {
		s.errorf("unterminated string")
		return
	}
	s.advance()
	s.tokens = append(s.tokens, Token{Type: TokenString, Lexeme: sb.String(), Line: s.startLine, Column: s.startCol})
}

func (s *Scanner) addToken(t TokenType) {
	text := s.source[s.start:s.current]
	s.tokens = append(s.tokens, Token{Type: t, Lexeme: text, Line: s.startLine, Column: s.startCol})
}

func (s *Scanner) errorf(format string, args ...interface{}) {
	s.errors = append(s.errors, ScanError{
		Message: fmt.Sprintf(format, args...),
		Line:    s.startLine,
		Column:  s.startCol,
	})
}

func (s *Scanner) advance() byte {
	s.current++
	return s.source[s.current-1]
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return '\000'
	}
	return s.source[s.current]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) newline() {
	s.line++
	s.lineStart = s.current
}

func (s *Scanner) sanitize() {
	for !s.isAtEnd() && unicode.IsSpace(rune(s.peek())) {
		s.advance()
		if s.source[s.current-1] == '\n' {
			s.newline()
		}
	}
}

func isAlpha(c byte) bool {
	return unicode.IsLetter(rune(c)) || c == '_'
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || unicode.IsDigit(rune(c))
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// skipShebang skips over shebang line at the beginning of the file
func (s *Scanner) skipShebang() {
	for !s.isAtEnd() && s.peek() != '\n' {
		s.advance()
	}
	if !s.isAtEnd() {
		s.advance()
		s.newline()
	}
}
