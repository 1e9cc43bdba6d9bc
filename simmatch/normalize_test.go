package simmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" HELLO,\tWORLD! ", "hello world"},
		{"Black  Sabbath", "black sabbath"},
		{"", ""},
		{"!!!", ""},
		{"ＡＢＣ１２３", ""},
		{"ａｂ cd", "cd"},
		{"café au lait", "caf au lait"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultNormalize(tt.in), "input %q", tt.in)
	}
}

func TestNFKCNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ＡＢＣ１２３", "abc123"},
		{"Ｂｌａｃｋ　Ｓａｂｂａｔｈ", "black sabbath"},
		{" HELLO,\tWORLD! ", "hello world"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NFKCNormalize(tt.in), "input %q", tt.in)
	}
}

func TestDefaultNgrams(t *testing.T) {
	assert.Equal(t, []string{"hi", "i ", " 4", "42"}, DefaultNgrams("hi 42"))
	assert.Equal(t, []string{"aa"}, DefaultNgrams("aaa"))
	assert.Equal(t, []string{"1 ", " 2", "1", "2"}, DefaultNgrams("1 2"))
	assert.Equal(t, []string{"12", "23", "123"}, DefaultNgrams("123"))
	assert.Empty(t, DefaultNgrams("a"))
	assert.Empty(t, DefaultNgrams(""))
}

func TestDefaultRead(t *testing.T) {
	s, err := DefaultRead("text")
	require.NoError(t, err)
	assert.Equal(t, "text", s)

	s, err = DefaultRead(Record{ID: "1", Text: "rec"})
	require.NoError(t, err)
	assert.Equal(t, "rec", s)

	s, err = DefaultRead(&Record{Text: "ptr"})
	require.NoError(t, err)
	assert.Equal(t, "ptr", s)

	_, err = DefaultRead(42)
	assert.ErrorIs(t, err, ErrUnreadableItem)

	var nilRec *Record
	_, err = DefaultRead(nilRec)
	assert.ErrorIs(t, err, ErrUnreadableItem)
}
