package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logica-lang/logica/language/token"
)

func kinds(tokens []token.Token) []token.Type {
	out := make([]token.Type, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Type)
	}
	return out
}

func TestTokenizeStatements(t *testing.T) {
	source := "speaker Alice\nas Alice { let x = 5 }\n"
	tokens, err := New(source).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []token.Type{
		token.SPEAKER, token.IDENTIFIER, token.NEWLINE,
		token.AS, token.IDENTIFIER, token.LBRACE,
		token.LET, token.IDENTIFIER, token.ASSIGN, token.INTEGER,
		token.RBRACE, token.NEWLINE, token.EOF,
	}, kinds(tokens))
	assert.Equal(t, "Alice", tokens[1].Value)
	assert.Equal(t, "5", tokens[9].Value)
}

func TestKeywordsAreClosed(t *testing.T) {
	for word, want := range token.Keywords {
		tokens, err := New(word).Tokenize()
		require.NoError(t, err)
		require.Len(t, tokens, 2, word)
		assert.Equal(t, want, tokens[0].Type, word)
	}

	// A near-keyword stays an identifier.
	tokens, _ := New("speakers").Tokenize()
	assert.Equal(t, token.IDENTIFIER, tokens[0].Type)
}

func TestStrings(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"double quoted", `"hello"`, "hello"},
		{"single quoted", `'hello'`, "hello"},
		{"newline escape", `"a\nb"`, "a\nb"},
		{"tab escape", `"a\tb"`, "a\tb"},
		{"backslash escape", `"a\\b"`, `a\b`},
		{"quote escape", `"say \"hi\""`, `say "hi"`},
		{"other quote unescaped", `"it's"`, "it's"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := New(tt.source).Tokenize()
			require.NoError(t, err)
			require.Equal(t, token.STRING, tokens[0].Type)
			assert.Equal(t, tt.want, tokens[0].Value)
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	tests := []string{
		`"no closing`,
		"\"split\nacross lines\"",
	}
	for _, source := range tests {
		_, err := New(source).Tokenize()
		require.Error(t, err)
		lexErr, ok := err.(*Error)
		require.True(t, ok)
		assert.Equal(t, 1, lexErr.Line)
		assert.Contains(t, lexErr.Error(), "unterminated string")
	}
}

func TestNumbers(t *testing.T) {
	t.Run("integer", func(t *testing.T) {
		tokens, _ := New("42").Tokenize()
		assert.Equal(t, token.INTEGER, tokens[0].Type)
		assert.Equal(t, "42", tokens[0].Value)
	})

	t.Run("float", func(t *testing.T) {
		tokens, _ := New("3.14").Tokenize()
		assert.Equal(t, token.FLOAT, tokens[0].Type)
		assert.Equal(t, "3.14", tokens[0].Value)
	})

	t.Run("dot without digit is member access", func(t *testing.T) {
		tokens, _ := New("x.y").Tokenize()
		assert.Equal(t, []token.Type{
			token.IDENTIFIER, token.DOT, token.IDENTIFIER, token.EOF,
		}, kinds(tokens))
	})

	t.Run("trailing dot stays separate", func(t *testing.T) {
		tokens, _ := New("3.x").Tokenize()
		assert.Equal(t, []token.Type{
			token.INTEGER, token.DOT, token.IDENTIFIER, token.EOF,
		}, kinds(tokens))
	})
}

func TestOperators(t *testing.T) {
	source := "+ - * / % = == != < > <= >= . , : -> { } ( ) [ ]"
	tokens, err := New(source).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []token.Type{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.ASSIGN, token.EQ, token.NEQ, token.LT, token.GT, token.LTE,
		token.GTE, token.DOT, token.COMMA, token.COLON, token.ARROW,
		token.LBRACE, token.RBRACE, token.LPAREN, token.RPAREN,
		token.LBRACKET, token.RBRACKET, token.EOF,
	}, kinds(tokens))
}

func TestComments(t *testing.T) {
	source := "let x = 1 # the whole rest is skipped = { }\nlet y = 2"
	tokens, err := New(source).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []token.Type{
		token.LET, token.IDENTIFIER, token.ASSIGN, token.INTEGER, token.NEWLINE,
		token.LET, token.IDENTIFIER, token.ASSIGN, token.INTEGER, token.EOF,
	}, kinds(tokens))
}

func TestUnexpectedCharacter(t *testing.T) {
	_, err := New("let x = @").Tokenize()
	require.Error(t, err)
	lexErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, 9, lexErr.Col)
}

func TestPositions(t *testing.T) {
	source := "speaker A\n  let x = 1"
	tokens, err := New(source).Tokenize()
	require.NoError(t, err)

	// let is on line 2, col 3.
	var let token.Token
	for _, tok := range tokens {
		if tok.Type == token.LET {
			let = tok
		}
	}
	assert.Equal(t, 2, let.Line)
	assert.Equal(t, 3, let.Col)
}

func TestNewlineIsSignificant(t *testing.T) {
	tokens, err := New("a\n\nb").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []token.Type{
		token.IDENTIFIER, token.NEWLINE, token.NEWLINE, token.IDENTIFIER, token.EOF,
	}, kinds(tokens))
}
