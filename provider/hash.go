package provider

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/jonwraymond/apidiscovery/semantic"
)

// HashName is the registry ID of the offline feature-hashing provider.
const HashName = "hash"

// DefaultHashDim matches the width of common small sentence encoders.
const DefaultHashDim = 384

// HashEmbedder is a deterministic bag-of-words embedder. Each token is
// hashed into one of Dim buckets; vectors are L2-normalized. It needs no
// network or model files, so semantic search works out of the box, with
// quality closer to keyword overlap than to a trained encoder.
type HashEmbedder struct {
	dim int
}

var _ semantic.Embedder = (*HashEmbedder)(nil)

// NewHash returns a HashEmbedder. A non-positive dim uses DefaultHashDim.
func NewHash(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDim
	}
	return &HashEmbedder{dim: dim}
}

func hashFactory(cfg Config) semantic.ModelLoader {
	return semantic.StaticModel(NewHash(cfg.Dim))
}

// Dim returns the vector width.
func (h *HashEmbedder) Dim() int { return h.dim }

// EmbedBatch embeds each text independently.
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float32 {
	v := make([]float32, h.dim)
	for _, tok := range Tokenize(text) {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		v[f.Sum32()%uint32(h.dim)]++
	}

	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sq))
	for i := range v {
		v[i] *= inv
	}
	return v
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "to": {}, "in": {},
	"for": {}, "on": {}, "by": {}, "with": {}, "or": {}, "is": {}, "it": {},
	"this": {}, "that": {}, "be": {}, "as": {}, "at": {}, "from": {},
	"i": {}, "how": {}, "do": {}, "can": {}, "my": {}, "me": {},
}

// Tokenize splits text into lowercase word stems. camelCase and
// snake_case identifiers are split into words; stopwords are dropped.
func Tokenize(text string) []string {
	var (
		tokens []string
		cur    []rune
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		tok := stem(strings.ToLower(string(cur)))
		cur = cur[:0]
		if _, stop := stopwords[tok]; stop || tok == "" {
			return
		}
		tokens = append(tokens, tok)
	}

	var prev rune
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				flush()
			}
			cur = append(cur, r)
		default:
			flush()
		}
		prev = r
	}
	flush()
	return tokens
}

// stem applies light English suffix stripping so plural and singular forms
// share a bucket.
func stem(tok string) string {
	switch {
	case len(tok) > 4 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y"
	case len(tok) > 3 && strings.HasSuffix(tok, "es") && (strings.HasSuffix(tok, "sses") || strings.HasSuffix(tok, "xes") || strings.HasSuffix(tok, "ches") || strings.HasSuffix(tok, "shes")):
		return tok[:len(tok)-2]
	case len(tok) > 3 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss") && !strings.HasSuffix(tok, "us"):
		return tok[:len(tok)-1]
	}
	return tok
}
