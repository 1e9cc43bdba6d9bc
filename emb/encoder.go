// Package emb runs a sentence embedding model through ONNX Runtime.
package emb

import (
	"errors"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Config describes the model files used by Encoder.
type Config struct {
	OrtDLL        string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	HiddenSize    int
}

var (
	envMu   sync.Mutex
	envRefs int
)

// Encoder produces mean pooled, L2 normalized sentence embeddings.
type Encoder struct {
	mu        sync.Mutex
	tok       *Tokenizer
	session   *ort.DynamicAdvancedSession
	maxSeqLen int
	hidden    int
}

// Init loads the ONNX Runtime library, the model and its tokenizer.
func (e *Encoder) Init(cfg Config) error {
	if cfg.ModelPath == "" {
		return errors.New("model path is empty")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 512
	}
	if cfg.HiddenSize <= 0 {
		cfg.HiddenSize = 1024
	}
	tok, err := LoadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return err
	}
	if err := acquireEnv(cfg.OrtDLL); err != nil {
		return err
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		nil)
	if err != nil {
		releaseEnv()
		return fmt.Errorf("create ort session: %w", err)
	}
	e.tok = tok
	e.session = session
	e.maxSeqLen = cfg.MaxSeqLen
	e.hidden = cfg.HiddenSize
	return nil
}

func acquireEnv(lib string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnv() {
	envMu.Lock()
	defer envMu.Unlock()
	envRefs--
	if envRefs == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// Encode embeds a single text.
func (e *Encoder) Encode(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("encoder is not initialized")
	}
	ids, mask, err := e.tok.Encode(text, e.maxSeqLen)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return make([]float32, e.hidden), nil
	}
	shape := ort.NewShape(1, int64(len(ids)))
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(ids)), int64(e.hidden)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy()
	if err := e.session.Run([]ort.Value{idsT, maskT}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("ort run: %w", err)
	}
	return meanPool(out.GetData(), mask, e.hidden), nil
}

// meanPool averages the hidden states of unmasked tokens and normalizes the
// result to unit length.
func meanPool(hidden []float32, mask []int64, size int) []float32 {
	vec := make([]float32, size)
	var n float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[t*size : (t+1)*size]
		for i, v := range row {
			vec[i] += v
		}
		n++
	}
	if n == 0 {
		return vec
	}
	var norm float64
	for i := range vec {
		vec[i] /= n
		norm += float64(vec[i]) * float64(vec[i])
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// Close releases the session and, for the last encoder, the environment.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return
	}
	_ = e.session.Destroy()
	e.session = nil
	releaseEnv()
}
