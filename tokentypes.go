package postal

import (
	"encoding/json"
	"fmt"
)

// TokenType classifies a token produced by the libpostal tokenizer.
type TokenType uint16

const (
	TokenEnd              TokenType = 0
	TokenWord             TokenType = 1
	TokenAbbreviation     TokenType = 2
	TokenIdeographicChar  TokenType = 3
	TokenHangulSyllable   TokenType = 4
	TokenAcronym          TokenType = 5
	TokenPhrase           TokenType = 10
	TokenEmail            TokenType = 20
	TokenURL              TokenType = 21
	TokenUSPhone          TokenType = 22
	TokenIntlPhone        TokenType = 23
	TokenNumeric          TokenType = 50
	TokenOrdinal          TokenType = 51
	TokenRomanNumeral     TokenType = 52
	TokenIdeographicNum   TokenType = 53
	TokenPeriod           TokenType = 100
	TokenExclamation      TokenType = 101
	TokenQuestionMark     TokenType = 102
	TokenComma            TokenType = 103
	TokenColon            TokenType = 104
	TokenSemicolon        TokenType = 105
	TokenPlus             TokenType = 106
	TokenAmpersand        TokenType = 107
	TokenAtSign           TokenType = 108
	TokenPound            TokenType = 109
	TokenEllipsis         TokenType = 110
	TokenDash             TokenType = 111
	TokenBreakingDash     TokenType = 112
	TokenHyphen           TokenType = 113
	TokenPunctOpen        TokenType = 114
	TokenPunctClose       TokenType = 115
	TokenDoubleQuote      TokenType = 119
	TokenSingleQuote      TokenType = 120
	TokenOpenQuote        TokenType = 121
	TokenCloseQuote       TokenType = 122
	TokenSlash            TokenType = 124
	TokenBackslash        TokenType = 125
	TokenGreaterThan      TokenType = 126
	TokenLessThan         TokenType = 127
	TokenWhitespace       TokenType = 300
	TokenNewline          TokenType = 301
	TokenInvalidChar      TokenType = 500
	TokenOther            TokenType = 900
)

var tokenTypeNames = map[TokenType]string{
	TokenEnd:             "END",
	TokenWord:            "WORD",
	TokenAbbreviation:    "ABBREVIATION",
	TokenIdeographicChar: "IDEOGRAPHIC_CHAR",
	TokenHangulSyllable:  "HANGUL_SYLLABLE",
	TokenAcronym:         "ACRONYM",
	TokenPhrase:          "PHRASE",
	TokenEmail:           "EMAIL",
	TokenURL:             "URL",
	TokenUSPhone:         "US_PHONE",
	TokenIntlPhone:       "INTL_PHONE",
	TokenNumeric:         "NUMERIC",
	TokenOrdinal:         "ORDINAL",
	TokenRomanNumeral:    "ROMAN_NUMERAL",
	TokenIdeographicNum:  "IDEOGRAPHIC_NUMBER",
	TokenPeriod:          "PERIOD",
	TokenExclamation:     "EXCLAMATION",
	TokenQuestionMark:    "QUESTION_MARK",
	TokenComma:           "COMMA",
	TokenColon:           "COLON",
	TokenSemicolon:       "SEMICOLON",
	TokenPlus:            "PLUS",
	TokenAmpersand:       "AMPERSAND",
	TokenAtSign:          "AT_SIGN",
	TokenPound:           "POUND",
	TokenEllipsis:        "ELLIPSIS",
	TokenDash:            "DASH",
	TokenBreakingDash:    "BREAKING_DASH",
	TokenHyphen:          "HYPHEN",
	TokenPunctOpen:       "PUNCT_OPEN",
	TokenPunctClose:      "PUNCT_CLOSE",
	TokenDoubleQuote:     "DOUBLE_QUOTE",
	TokenSingleQuote:     "SINGLE_QUOTE",
	TokenOpenQuote:       "OPEN_QUOTE",
	TokenCloseQuote:      "CLOSE_QUOTE",
	TokenSlash:           "SLASH",
	TokenBackslash:       "BACKSLASH",
	TokenGreaterThan:     "GREATER_THAN",
	TokenLessThan:        "LESS_THAN",
	TokenWhitespace:      "WHITESPACE",
	TokenNewline:         "NEWLINE",
	TokenInvalidChar:     "INVALID_CHAR",
	TokenOther:           "OTHER",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN_TYPE(%d)", uint16(t))
}

// Known reports whether t is a code the tokenizer can produce.
func (t TokenType) Known() bool {
	_, ok := tokenTypeNames[t]
	return ok
}

// IsWord reports whether t is a word-like token.
func (t TokenType) IsWord() bool {
	switch t {
	case TokenWord, TokenAbbreviation, TokenIdeographicChar, TokenHangulSyllable, TokenAcronym:
		return true
	}
	return false
}

// IsNumeric reports whether t is a number-like token.
func (t TokenType) IsNumeric() bool {
	switch t {
	case TokenNumeric, TokenOrdinal, TokenRomanNumeral, TokenIdeographicNum:
		return true
	}
	return false
}

// IsPunctuation reports whether t is one of the punctuation codes.
func (t TokenType) IsPunctuation() bool {
	return t >= TokenPeriod && t <= TokenLessThan && t.Known()
}

// IsNonAlphanumeric reports whether t carries no letters or digits.
func (t TokenType) IsNonAlphanumeric() bool {
	return t.IsPunctuation() || t == TokenOther || t == TokenWhitespace || t == TokenNewline
}

// MarshalJSON encodes the type by name so API output stays readable.
func (t TokenType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the name or the numeric code.
func (t *TokenType) UnmarshalJSON(data []byte) error {
	var code uint16
	if err := json.Unmarshal(data, &code); err == nil {
		*t = TokenType(code)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseTokenType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTokenType resolves an upper-case name such as "NUMERIC".
func ParseTokenType(name string) (TokenType, error) {
	for t, n := range tokenTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown token type %q", name)
}
