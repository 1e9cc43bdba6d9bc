package emb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer wraps a HuggingFace tokenizer.json.
type Tokenizer struct {
	tk *tokenizer.Tokenizer
}

// LoadTokenizer reads a tokenizer.json file.
func LoadTokenizer(path string) (*Tokenizer, error) {
	if path == "" {
		return nil, errors.New("tokenizer path is empty")
	}
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	return &Tokenizer{tk: tk}, nil
}

// Encode returns token ids and the attention mask, truncated to maxLen
// when maxLen is positive.
func (t *Tokenizer) Encode(text string, maxLen int) ([]int64, []int64, error) {
	enc, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenize: %w", err)
	}
	n := len(enc.Ids)
	if maxLen > 0 && n > maxLen {
		n = maxLen
	}
	ids := make([]int64, n)
	mask := make([]int64, n)
	for i := 0; i < n; i++ {
		ids[i] = int64(enc.Ids[i])
		mask[i] = 1
		if i < len(enc.AttentionMask) {
			mask[i] = int64(enc.AttentionMask[i])
		}
	}
	return ids, mask, nil
}

// Subwords returns the word pieces of text without special tokens. The
// sentencepiece word marker is stripped.
func (t *Tokenizer) Subwords(text string) ([]string, error) {
	enc, err := t.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	out := make([]string, 0, len(enc.Tokens))
	for _, tok := range enc.Tokens {
		tok = strings.TrimPrefix(tok, "▁")
		tok = strings.TrimPrefix(tok, "##")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out, nil
}
