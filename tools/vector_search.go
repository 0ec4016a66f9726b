package tools

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	maxChunkWords   = 2000
	defaultTopK     = 5
	embedBatchLimit = 64
)

// Embedder turns texts into vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. The client
// is created on first use so a missing API key only fails the tool call.
type OpenAIEmbedder struct {
	model   string
	baseURL string
	opts    []option.RequestOption

	once    sync.Once
	client  *openai.Client
	initErr error
}

// NewOpenAIEmbedder uses the configured embedding model and base URL. The key
// comes from OPENAI_API_KEY or OPENROUTER_API_KEY.
func NewOpenAIEmbedder(cfg *config.Config) *OpenAIEmbedder {
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.DefaultEmbeddingModel
	}
	return &OpenAIEmbedder{model: model, baseURL: cfg.BaseURL}
}

func newOpenAIEmbedder(model, baseURL string, opts ...option.RequestOption) *OpenAIEmbedder {
	return &OpenAIEmbedder{model: model, baseURL: baseURL, opts: opts}
}

func (e *OpenAIEmbedder) init() {
	opts := e.opts
	if opts == nil {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENROUTER_API_KEY")
		}
		if apiKey == "" {
			e.initErr = errors.Errorf(errors.KindExecution, "OPENAI_API_KEY environment variable not set")
			return
		}
		opts = []option.RequestOption{option.WithAPIKey(apiKey)}
	}
	baseURL := e.baseURL
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := openai.NewClient(opts...)
	e.client = &c
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	e.once.Do(e.init)
	if e.initErr != nil {
		return nil, e.initErr
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchLimit {
		batch := texts[start:min(start+embedBatchLimit, len(texts))]
		resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Model: openai.EmbeddingModel(e.model),
			Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		})
		if err != nil {
			return nil, errors.Tag(errors.KindExecution, errors.Wrapf(err, "embedding request failed"))
		}
		if len(resp.Data) != len(batch) {
			return nil, errors.Errorf(errors.KindExecution, "embedding response has %d vectors for %d inputs", len(resp.Data), len(batch))
		}
		vecs := make([][]float64, len(batch))
		for _, d := range resp.Data {
			if d.Index < 0 || int(d.Index) >= len(batch) {
				return nil, errors.Errorf(errors.KindExecution, "embedding response index %d out of range", d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// VectorSearchTool ranks word chunks of text files by cosine similarity to a
// query.
type VectorSearchTool struct {
	base
	ws       *Workspace
	embedder Embedder
}

func NewVectorSearchTool(ws *Workspace, embedder Embedder) *VectorSearchTool {
	return &VectorSearchTool{
		base: base{def: Definition{
			Name:        "vector_search",
			Description: "Perform semantic vector search across multiple text files. The files are split into word chunks, the query and chunks are embedded, and the top K most similar chunks are returned. Only text files can be searched; PDF files are rejected. Chunk size is capped at 2000 words.",
			Parameters: []Parameter{
				{Name: "files", Type: "array", Items: "string", Description: "List of file paths to search."},
				{Name: "query", Type: "string", Description: "The content to search for. It is embedded and compared against every chunk."},
				{Name: "chunk_size", Type: "integer", Description: "Number of words per chunk, capped at 2000 (default: 2000)."},
				{Name: "top_k", Type: "integer", Description: "Number of results to return (default: 5)."},
			},
			Required: []string{"files", "query"},
		}},
		ws:       ws,
		embedder: embedder,
	}
}

type chunk struct {
	file  string
	start int
	text  string
	score float64
}

func (t *VectorSearchTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Files     []string `json:"files"`
		Query     string   `json:"query"`
		ChunkSize flexInt  `json:"chunk_size"`
		TopK      flexInt  `json:"top_k"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if len(in.Files) == 0 {
		return "", errors.Errorf(errors.KindExecution, "Missing required parameter: files (must be a non-empty array of file paths)")
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", errors.Errorf(errors.KindExecution, "Missing required parameter: query")
	}
	size := maxChunkWords
	if in.ChunkSize.Set && in.ChunkSize.Value > 0 && in.ChunkSize.Value < maxChunkWords {
		size = in.ChunkSize.Value
	}
	topK := defaultTopK
	if in.TopK.Set && in.TopK.Value > 0 {
		topK = in.TopK.Value
	}

	var chunks []chunk
	for _, file := range in.Files {
		content, err := t.readText(file)
		if err != nil {
			logger.Warn("vector_search skipped file", "file", file, "error", err)
			continue
		}
		for _, c := range chunkWords(content, size) {
			c.file = file
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		return "", errors.Errorf(errors.KindExecution, "No valid chunks found in any of the provided files.")
	}

	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, in.Query)
	for _, c := range chunks {
		texts = append(texts, c.text)
	}
	vecs, err := t.embedder.Embed(ctx, texts)
	if err != nil {
		return "", err
	}
	if len(vecs) != len(texts) {
		return "", errors.Errorf(errors.KindExecution, "embedder returned %d vectors for %d inputs", len(vecs), len(texts))
	}
	query := vecs[0]
	for i := range chunks {
		chunks[i].score = cosineSimilarity(query, vecs[i+1])
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].score > chunks[j].score })
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d results for query: %q\n", topK, in.Query)
	b.WriteString(strings.Repeat("=", 80))
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n\n[Result %d] Similarity: %.4f\n", i+1, c.score)
		fmt.Fprintf(&b, "File: %s (chunk starting at word %d)\n", c.file, c.start)
		fmt.Fprintf(&b, "Content:\n%s\n", c.text)
		b.WriteString(strings.Repeat("-", 80))
	}
	return b.String(), nil
}

func (t *VectorSearchTool) readText(file string) (string, error) {
	abs, err := t.ws.CheckRead(file)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(abs), ".pdf") {
		return "", errors.Errorf(errors.KindExecution, "PDF files cannot be searched directly")
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", errors.Wrapf(err, "File not found: %s", file)
	}
	return string(data), nil
}

// chunkWords splits text on whitespace into runs of at most size words.
func chunkWords(text string, size int) []chunk {
	words := strings.Fields(text)
	var out []chunk
	for start := 0; start < len(words); start += size {
		end := min(start+size, len(words))
		out = append(out, chunk{start: start, text: strings.Join(words[start:end], " ")})
	}
	return out
}

// cosineSimilarity is 0 for vectors of different length or zero norm.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
