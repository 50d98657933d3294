package rag

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// ChunkingStrategy selects how a document is split into chunks.
type ChunkingStrategy string

const (
	ChunkingFixed     ChunkingStrategy = "fixed"     // fixed character/token width
	ChunkingRecursive ChunkingStrategy = "recursive" // paragraph/sentence-boundary aware
	ChunkingSemantic  ChunkingStrategy = "semantic"  // splits where sentence similarity drops
	ChunkingDocument  ChunkingStrategy = "document"  // structure-aware (code/tables preserved)
)

// ChunkingConfig configures a DocumentChunker.
type ChunkingConfig struct {
	Strategy     ChunkingStrategy `json:"strategy"`
	ChunkSize    int              `json:"chunk_size"`     // target size in tokens
	ChunkOverlap int              `json:"chunk_overlap"`  // overlap in tokens
	MinChunkSize int              `json:"min_chunk_size"` // trailing chunks smaller than this are dropped

	// semantic chunking parameter
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// document-aware chunking parameters
	PreserveTables     bool `json:"preserve_tables"`
	PreserveCodeBlocks bool `json:"preserve_code_blocks"`
	PreserveHeaders    bool `json:"preserve_headers"`
}

// DefaultChunkingConfig returns production-oriented defaults.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		Strategy:            ChunkingRecursive,
		ChunkSize:           512, // 400-800 tokens is the commonly cited sweet spot
		ChunkOverlap:        102, // 20% overlap
		MinChunkSize:        50,
		SimilarityThreshold: 0.8,
		PreserveTables:      true,
		PreserveCodeBlocks:  true,
		PreserveHeaders:     true,
	}
}

// Chunk is a single piece of a chunked document.
type Chunk struct {
	Content    string                 `json:"content"`
	StartPos   int                    `json:"start_pos"`
	EndPos     int                    `json:"end_pos"`
	Metadata   map[string]interface{} `json:"metadata"`
	TokenCount int                    `json:"token_count"`
}

// DocumentChunker splits documents into chunks per ChunkingConfig.
type DocumentChunker struct {
	config    ChunkingConfig
	tokenizer Tokenizer
	logger    *zap.Logger
}

// Tokenizer counts and encodes tokens for chunk-size accounting.
type Tokenizer interface {
	CountTokens(text string) int
	Encode(text string) []int
}

// NewDocumentChunker creates a chunker bound to config and tokenizer.
func NewDocumentChunker(config ChunkingConfig, tokenizer Tokenizer, logger *zap.Logger) *DocumentChunker {
	return &DocumentChunker{
		config:    config,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// ChunkDocument splits doc using the configured strategy.
func (c *DocumentChunker) ChunkDocument(doc Document) []Chunk {
	switch c.config.Strategy {
	case ChunkingFixed:
		return c.fixedSizeChunking(doc)
	case ChunkingRecursive:
		return c.recursiveChunking(doc)
	case ChunkingSemantic:
		return c.semanticChunking(doc)
	case ChunkingDocument:
		return c.documentAwareChunking(doc)
	default:
		return c.recursiveChunking(doc)
	}
}

// recursiveChunking splits at paragraph, then sentence, then word
// boundaries, which keeps chunks semantically coherent. This is the
// recommended strategy for production ingestion.
func (c *DocumentChunker) recursiveChunking(doc Document) []Chunk {
	content := doc.Content

	// separator priority: paragraph > sentence > word
	separators := []string{"\n\n", "\n", ". ", "。", "! ", "！", "? ", "？", " "}

	chunks := c.recursiveSplit(content, separators, 0, 0)

	if c.config.ChunkOverlap > 0 {
		chunks = c.addOverlap(chunks, content)
	}

	c.logger.Info("recursive chunking completed",
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", c.config.ChunkSize),
		zap.Int("overlap", c.config.ChunkOverlap))

	return chunks
}

// recursiveSplit accumulates parts split by separators[0] until the token
// budget is exceeded, then recurses into separators[1:] for any part that
// alone still exceeds the budget.
func (c *DocumentChunker) recursiveSplit(text string, separators []string, startPos int, depth int) []Chunk {
	if len(separators) == 0 {
		// bottom of the recursion: split by raw characters, sentence-boundary aware
		return c.splitByCharactersWithBoundary(text, startPos)
	}

	separator := separators[0]
	parts := strings.Split(text, separator)

	chunks := []Chunk{}
	currentChunk := ""
	currentStart := startPos

	for i, part := range parts {
		// restore the separator except after the final part
		if i < len(parts)-1 {
			part += separator
		}

		testChunk := currentChunk + part
		tokenCount := c.tokenizer.CountTokens(testChunk)

		if tokenCount <= c.config.ChunkSize {
			currentChunk = testChunk
		} else {
			// current chunk is full
			if currentChunk != "" {
				// avoid splitting mid-sentence
				finalChunk := c.adjustToSentenceBoundary(currentChunk)
				chunks = append(chunks, Chunk{
					Content:    strings.TrimSpace(finalChunk),
					StartPos:   currentStart,
					EndPos:     currentStart + len(finalChunk),
					TokenCount: c.tokenizer.CountTokens(finalChunk),
				})
				currentStart += len(finalChunk)

				// carry the remainder into the next chunk
				remainder := currentChunk[len(finalChunk):]
				currentChunk = remainder + part
			}

			// a single part that still exceeds the budget recurses one
			// separator level down
			if c.tokenizer.CountTokens(part) > c.config.ChunkSize {
				subChunks := c.recursiveSplit(part, separators[1:], currentStart, depth+1)
				chunks = append(chunks, subChunks...)
				currentStart += len(part)
				currentChunk = ""
			} else if currentChunk == "" {
				currentChunk = part
			}
		}
	}

	if currentChunk != "" && c.tokenizer.CountTokens(currentChunk) >= c.config.MinChunkSize {
		chunks = append(chunks, Chunk{
			Content:    strings.TrimSpace(currentChunk),
			StartPos:   currentStart,
			EndPos:     currentStart + len(currentChunk),
			TokenCount: c.tokenizer.CountTokens(currentChunk),
		})
	}

	return chunks
}

// splitByCharacters is the character-count fallback when no separator
// applies.
func (c *DocumentChunker) splitByCharacters(text string, startPos int) []Chunk {
	chunks := []Chunk{}
	runes := []rune(text)

	// rough estimate: ~4 characters per token
	charsPerChunk := c.config.ChunkSize * 4

	for i := 0; i < len(runes); i += charsPerChunk {
		end := i + charsPerChunk
		if end > len(runes) {
			end = len(runes)
		}

		chunkText := string(runes[i:end])
		chunks = append(chunks, Chunk{
			Content:    chunkText,
			StartPos:   startPos + i,
			EndPos:     startPos + end,
			TokenCount: c.tokenizer.CountTokens(chunkText),
		})
	}

	return chunks
}

// splitByCharactersWithBoundary is splitByCharacters plus a pass that
// nudges each chunk boundary onto the nearest sentence end.
func (c *DocumentChunker) splitByCharactersWithBoundary(text string, startPos int) []Chunk {
	chunks := []Chunk{}
	runes := []rune(text)

	charsPerChunk := c.config.ChunkSize * 4

	for i := 0; i < len(runes); {
		end := i + charsPerChunk
		if end > len(runes) {
			end = len(runes)
		}

		chunkText := string(runes[i:end])
		adjustedText := c.adjustToSentenceBoundary(chunkText)
		n := len([]rune(adjustedText))
		if n == 0 {
			adjustedText = chunkText
			n = end - i
		}

		chunks = append(chunks, Chunk{
			Content:    adjustedText,
			StartPos:   startPos + i,
			EndPos:     startPos + i + n,
			TokenCount: c.tokenizer.CountTokens(adjustedText),
		})
		// the next chunk starts where this one ended, so trimmed text is kept
		i += n
	}

	return chunks
}

// adjustToSentenceBoundary trims text back to the nearest sentence end (or
// failing that, the nearest space) found in its back half, so a chunk
// never ends mid-sentence.
func (c *DocumentChunker) adjustToSentenceBoundary(text string) string {
	if len(text) == 0 {
		return text
	}

	sentenceEnders := []rune{'.', '。', '!', '！', '?', '？', '\n'}

	runes := []rune(text)
	for i := len(runes) - 1; i >= len(runes)/2; i-- { // only search the back half
		for _, ender := range sentenceEnders {
			if runes[i] == ender {
				// include the punctuation itself
				return string(runes[:i+1])
			}
		}
	}

	for i := len(runes) - 1; i >= len(runes)/2; i-- {
		if runes[i] == ' ' || runes[i] == '\t' {
			return string(runes[:i])
		}
	}

	// no boundary found at all, return unchanged
	return text
}

// addOverlap prepends a trailing slice of each chunk's predecessor so
// consecutive chunks share context.
func (c *DocumentChunker) addOverlap(chunks []Chunk, fullText string) []Chunk {
	if len(chunks) <= 1 {
		return chunks
	}

	overlapped := make([]Chunk, len(chunks))
	overlapChars := c.config.ChunkOverlap * 4 // estimated character count

	for i := range chunks {
		chunk := chunks[i]

		if i > 0 {
			prevChunk := chunks[i-1]
			overlapStart := prevChunk.EndPos - overlapChars
			if overlapStart < prevChunk.StartPos {
				overlapStart = prevChunk.StartPos
			}

			if overlapStart < chunk.StartPos {
				overlapText := fullText[overlapStart:chunk.StartPos]
				chunk.Content = overlapText + chunk.Content
				chunk.StartPos = overlapStart
			}
		}

		overlapped[i] = chunk
	}

	return overlapped
}

// semanticChunking splits sentences into chunks wherever adjacent-sentence
// similarity drops below the configured threshold.
func (c *DocumentChunker) semanticChunking(doc Document) []Chunk {
	sentences := c.splitIntoSentences(doc.Content)

	if len(sentences) == 0 {
		return []Chunk{}
	}

	// similarity uses word overlap as a cheap proxy for sentence
	// embeddings; a production deployment would use a real embedding model
	similarities := c.calculateSentenceSimilarities(sentences)

	chunks := []Chunk{}
	currentChunk := sentences[0]
	currentStart := 0

	for i := 1; i < len(sentences); i++ {
		similarity := similarities[i-1]

		testChunk := currentChunk + " " + sentences[i]
		tokenCount := c.tokenizer.CountTokens(testChunk)

		if similarity < c.config.SimilarityThreshold || tokenCount > c.config.ChunkSize {
			chunks = append(chunks, Chunk{
				Content:    strings.TrimSpace(currentChunk),
				StartPos:   currentStart,
				EndPos:     currentStart + len(currentChunk),
				TokenCount: c.tokenizer.CountTokens(currentChunk),
			})
			currentStart += len(currentChunk) + 1
			currentChunk = sentences[i]
		} else {
			currentChunk = testChunk
		}
	}

	if currentChunk != "" {
		chunks = append(chunks, Chunk{
			Content:    strings.TrimSpace(currentChunk),
			StartPos:   currentStart,
			EndPos:     currentStart + len(currentChunk),
			TokenCount: c.tokenizer.CountTokens(currentChunk),
		})
	}

	return chunks
}

// documentAwareChunking identifies code blocks and tables and keeps them
// intact, recursively chunking everything else.
func (c *DocumentChunker) documentAwareChunking(doc Document) []Chunk {
	content := doc.Content
	chunks := []Chunk{}

	blocks := c.identifyStructuralBlocks(content)

	for _, block := range blocks {
		if block.Type == "code" && c.config.PreserveCodeBlocks {
			chunks = append(chunks, Chunk{
				Content:    block.Content,
				StartPos:   block.StartPos,
				EndPos:     block.EndPos,
				TokenCount: c.tokenizer.CountTokens(block.Content),
				Metadata: map[string]interface{}{
					"type": "code",
				},
			})
		} else if block.Type == "table" && c.config.PreserveTables {
			chunks = append(chunks, Chunk{
				Content:    block.Content,
				StartPos:   block.StartPos,
				EndPos:     block.EndPos,
				TokenCount: c.tokenizer.CountTokens(block.Content),
				Metadata: map[string]interface{}{
					"type": "table",
				},
			})
		} else {
			subDoc := Document{Content: block.Content}
			subChunks := c.recursiveChunking(subDoc)

			for i := range subChunks {
				subChunks[i].StartPos += block.StartPos
				subChunks[i].EndPos += block.StartPos
			}

			chunks = append(chunks, subChunks...)
		}
	}

	return chunks
}

// fixedSizeChunking splits at a fixed character width with a fixed
// overlap; it ignores sentence/paragraph boundaries entirely and should
// only be used when speed matters more than chunk coherence.
func (c *DocumentChunker) fixedSizeChunking(doc Document) []Chunk {
	content := doc.Content
	chunks := []Chunk{}

	charsPerChunk := c.config.ChunkSize * 4
	overlapChars := c.config.ChunkOverlap * 4

	for i := 0; i < len(content); i += (charsPerChunk - overlapChars) {
		end := i + charsPerChunk
		if end > len(content) {
			end = len(content)
		}

		chunkText := content[i:end]
		chunks = append(chunks, Chunk{
			Content:    chunkText,
			StartPos:   i,
			EndPos:     end,
			TokenCount: c.tokenizer.CountTokens(chunkText),
		})

		if end >= len(content) {
			break
		}
	}

	return chunks
}

// ====== helpers ======

// splitIntoSentences splits text on sentence-ending punctuation.
func (c *DocumentChunker) splitIntoSentences(text string) []string {
	sentences := []string{}

	delimiters := []rune{'.', '。', '!', '！', '?', '？', '\n'}

	currentSentence := ""
	for _, char := range text {
		currentSentence += string(char)

		isDelimiter := false
		for _, delim := range delimiters {
			if char == delim {
				isDelimiter = true
				break
			}
		}

		if isDelimiter {
			trimmed := strings.TrimSpace(currentSentence)
			if trimmed != "" {
				sentences = append(sentences, trimmed)
			}
			currentSentence = ""
		}
	}

	if strings.TrimSpace(currentSentence) != "" {
		sentences = append(sentences, strings.TrimSpace(currentSentence))
	}

	return sentences
}

// calculateSentenceSimilarities returns, for each adjacent sentence pair,
// a word-overlap similarity score (a cheap proxy; a real embedding model
// would replace this in production).
func (c *DocumentChunker) calculateSentenceSimilarities(sentences []string) []float64 {
	if len(sentences) <= 1 {
		return []float64{}
	}

	similarities := make([]float64, len(sentences)-1)

	for i := 0; i < len(sentences)-1; i++ {
		similarities[i] = c.wordOverlapSimilarity(sentences[i], sentences[i+1])
	}

	return similarities
}

// wordOverlapSimilarity returns the Jaccard similarity of two sentences'
// word sets.
func (c *DocumentChunker) wordOverlapSimilarity(s1, s2 string) float64 {
	words1 := strings.Fields(strings.ToLower(s1))
	words2 := strings.Fields(strings.ToLower(s2))

	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}

	set1 := make(map[string]bool)
	for _, w := range words1 {
		set1[w] = true
	}

	overlap := 0
	for _, w := range words2 {
		if set1[w] {
			overlap++
		}
	}

	union := len(words1) + len(words2) - overlap
	if union == 0 {
		return 0.0
	}

	return float64(overlap) / float64(union)
}

// StructuralBlock is a contiguous region of a document identified as code,
// a table, or plain text.
type StructuralBlock struct {
	Type     string // code, table, text, header
	Content  string
	StartPos int
	EndPos   int
}

// identifyStructuralBlocks scans content line by line, grouping fenced
// code blocks and markdown-style tables into their own blocks and
// everything else into plain text blocks.
func (c *DocumentChunker) identifyStructuralBlocks(content string) []StructuralBlock {
	blocks := []StructuralBlock{}

	lines := strings.Split(content, "\n")

	currentBlock := StructuralBlock{Type: "text"}
	currentPos := 0
	inCodeBlock := false
	inTable := false

	for _, line := range lines {
		lineLen := len(line) + 1 // +1 for the newline

		if strings.HasPrefix(line, "```") {
			if inCodeBlock {
				// closing fence
				currentBlock.Content += line + "\n"
				currentBlock.EndPos = currentPos + lineLen
				blocks = append(blocks, currentBlock)

				currentBlock = StructuralBlock{
					Type:     "text",
					StartPos: currentPos + lineLen,
				}
				inCodeBlock = false
			} else {
				// opening fence
				if currentBlock.Content != "" {
					currentBlock.EndPos = currentPos
					blocks = append(blocks, currentBlock)
				}

				currentBlock = StructuralBlock{
					Type:     "code",
					Content:  line + "\n",
					StartPos: currentPos,
				}
				inCodeBlock = true
			}
		} else if strings.Contains(line, "|") && strings.Count(line, "|") >= 2 {
			// likely a table row
			if !inTable {
				if currentBlock.Content != "" {
					currentBlock.EndPos = currentPos
					blocks = append(blocks, currentBlock)
				}

				currentBlock = StructuralBlock{
					Type:     "table",
					Content:  line + "\n",
					StartPos: currentPos,
				}
				inTable = true
			} else {
				currentBlock.Content += line + "\n"
			}
		} else {
			if inTable {
				// table ends
				currentBlock.EndPos = currentPos
				blocks = append(blocks, currentBlock)

				currentBlock = StructuralBlock{
					Type:     "text",
					Content:  line + "\n",
					StartPos: currentPos,
				}
				inTable = false
			} else {
				currentBlock.Content += line + "\n"
			}
		}

		currentPos += lineLen
	}

	if currentBlock.Content != "" {
		currentBlock.EndPos = currentPos
		blocks = append(blocks, currentBlock)
	}

	return blocks
}

// SimpleTokenizer is a cheap character-count-based Tokenizer for tests.
type SimpleTokenizer struct{}

func (t *SimpleTokenizer) CountTokens(text string) int {
	// rough estimate: 1 token ≈ 4 characters
	return len(text) / 4
}

func (t *SimpleTokenizer) Encode(text string) []int {
	tokens := make([]int, len(text)/4)
	for i := range tokens {
		tokens[i] = i
	}
	return tokens
}

// isWhitespace reports whether r is a whitespace rune.
func isWhitespace(r rune) bool {
	return unicode.IsSpace(r)
}
