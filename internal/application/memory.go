package application

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"github.com/rs/zerolog"
)

const (
	DefaultChunkSize = 500
	chunkSeparator   = "\n\n"
	placeholderText  = "No API response has been retrieved for this conversation yet."
)

type chunk struct {
	text   string
	vector []float32
}

// RetrievalMemory holds one session's conversation turns and the searchable
// chunks of the latest API response. The chunk store is never empty.
type RetrievalMemory struct {
	mu        sync.RWMutex
	embedder  ports.Embedder
	logger    zerolog.Logger
	chunkSize int
	turns     []domain.Turn
	chunks    []chunk
}

func NewRetrievalMemory(embedder ports.Embedder, logger zerolog.Logger) *RetrievalMemory {
	return &RetrievalMemory{
		embedder:  embedder,
		logger:    logger,
		chunkSize: DefaultChunkSize,
		chunks:    []chunk{{text: placeholderText}},
	}
}

func (m *RetrievalMemory) AppendTurn(turn domain.Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, turn)
}

func (m *RetrievalMemory) Turns() []domain.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

func (m *RetrievalMemory) Chunks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.chunks))
	for _, c := range m.chunks {
		out = append(out, c.text)
	}
	return out
}

// Rebuild replaces every chunk with the segments of text. Conversation turns are kept.
func (m *RetrievalMemory) Rebuild(ctx context.Context, text string) {
	segments := SplitText(text, m.chunkSize)
	if len(segments) == 0 {
		segments = []string{placeholderText}
	}

	chunks := make([]chunk, len(segments))
	for i, segment := range segments {
		chunks[i] = chunk{text: segment}
	}

	if m.embedder != nil {
		vectors, err := m.embedder.Embed(ctx, segments)
		switch {
		case err != nil:
			m.logger.Warn().Err(err).Msg("embedding API response failed; keyword retrieval only")
		case len(vectors) != len(segments):
			m.logger.Warn().Int("vectors", len(vectors)).Int("segments", len(segments)).Msg("embedding count mismatch; keyword retrieval only")
		default:
			for i := range chunks {
				chunks[i].vector = vectors[i]
			}
		}
	}

	m.mu.Lock()
	m.chunks = chunks
	m.mu.Unlock()
}

// Search returns up to k chunk texts ranked by similarity to query.
func (m *RetrievalMemory) Search(ctx context.Context, query string, k int) []string {
	if k <= 0 {
		k = 1
	}

	m.mu.RLock()
	chunks := make([]chunk, len(m.chunks))
	copy(chunks, m.chunks)
	m.mu.RUnlock()

	scores := m.vectorScores(ctx, query, chunks)
	if scores == nil {
		scores = keywordScores(query, chunks)
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	out := make([]string, 0, k)
	for _, idx := range order[:k] {
		out = append(out, chunks[idx].text)
	}
	return out
}

func (m *RetrievalMemory) vectorScores(ctx context.Context, query string, chunks []chunk) []float64 {
	if m.embedder == nil || !hasVectors(chunks) {
		return nil
	}

	vectors, err := m.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) != 1 {
		m.logger.Warn().Err(err).Msg("embedding query failed; falling back to keyword retrieval")
		return nil
	}

	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		if c.vector == nil {
			scores[i] = -1
			continue
		}
		scores[i] = cosine(vectors[0], c.vector)
	}
	return scores
}

func hasVectors(chunks []chunk) bool {
	for _, c := range chunks {
		if c.vector != nil {
			return true
		}
	}
	return false
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func keywordScores(query string, chunks []chunk) []float64 {
	terms := tokenize(query)
	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		words := make(map[string]struct{})
		for _, word := range tokenize(c.text) {
			words[word] = struct{}{}
		}
		for _, term := range terms {
			if _, ok := words[term]; ok {
				scores[i]++
			}
		}
	}
	return scores
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SplitText splits on blank lines and merges the pieces into segments of at most
// size runes. Pieces longer than size are cut hard. No overlap.
func SplitText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var segments []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if segment := strings.TrimSpace(current.String()); segment != "" {
			segments = append(segments, segment)
		}
		current.Reset()
		currentLen = 0
	}

	for _, piece := range strings.Split(text, chunkSeparator) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		for _, part := range hardSplit(piece, size) {
			partLen := utf8.RuneCountInString(part)
			if currentLen > 0 && currentLen+len(chunkSeparator)+partLen > size {
				flush()
			}
			if currentLen > 0 {
				current.WriteString(chunkSeparator)
				currentLen += len(chunkSeparator)
			}
			current.WriteString(part)
			currentLen += partLen
		}
	}
	flush()

	return segments
}

func hardSplit(piece string, size int) []string {
	runes := []rune(piece)
	if len(runes) <= size {
		return []string{piece}
	}

	parts := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
