package services

import (
	"regexp"
	"strings"

	"brainlattice/internal/models"
)

// TextChunk is one emitted chunk with its header-path metadata
type TextChunk struct {
	Text     string
	Metadata models.ChunkMetadata
}

// RecursiveMarkdownSplitter splits markdown into ordered chunks while
// preserving the header hierarchy. Sections small enough pass through
// whole; oversized sections split by paragraph, and oversized paragraphs
// cascade to sentence boundaries. Greedy packing and the emit order are
// part of the contract.
type RecursiveMarkdownSplitter struct {
	ChunkSize int
	// ChunkOverlap is accepted for interface compatibility but windowed
	// overlap is not applied; ordering must stay intact.
	ChunkOverlap int
}

// NewRecursiveMarkdownSplitter creates a splitter with the given sizes
func NewRecursiveMarkdownSplitter(chunkSize, chunkOverlap int) *RecursiveMarkdownSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 200
	}
	return &RecursiveMarkdownSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

var (
	headerRe    = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	paragraphRe = regexp.MustCompile(`\n\n+`)
	sentenceRe  = regexp.MustCompile(`([.!?])\s+`)
)

// section is a header-delimited region of the document
type section struct {
	text    string
	headers []string
}

// SplitText splits markdown into chunks preserving hierarchy
func (s *RecursiveMarkdownSplitter) SplitText(text string) []TextChunk {
	sections := s.splitByHeaders(text)

	var final []TextChunk
	for _, sec := range sections {
		if len(sec.text) <= s.ChunkSize {
			final = append(final, TextChunk{
				Text:     sec.text,
				Metadata: models.ChunkMetadata{Headers: sec.headers},
			})
		} else {
			final = append(final, s.recursiveSplit(sec.text, sec.headers)...)
		}
	}
	return final
}

// splitByHeaders parses content into sections based on markdown headers,
// maintaining a stack of header titles from root to leaf.
func (s *RecursiveMarkdownSplitter) splitByHeaders(text string) []section {
	lines := strings.Split(text, "\n")

	var (
		sections       []section
		currentHeaders []string
		currentBuffer  []string
	)

	flush := func() {
		if len(currentBuffer) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(currentBuffer, "\n"))
		if content != "" {
			headers := make([]string, len(currentHeaders))
			copy(headers, currentHeaders)
			sections = append(sections, section{text: content, headers: headers})
		}
		currentBuffer = nil
	}

	for _, line := range lines {
		match := headerRe.FindStringSubmatch(line)
		if match != nil {
			flush()

			level := len(match[1])
			title := strings.TrimSpace(match[2])

			// truncate deeper levels to maintain hierarchy
			if len(currentHeaders) >= level {
				currentHeaders = currentHeaders[:level-1]
			}
			currentHeaders = append(currentHeaders, title)
			currentBuffer = append(currentBuffer, line)
		} else {
			currentBuffer = append(currentBuffer, line)
		}
	}
	flush()

	return sections
}

// recursiveSplit splits a large section by paragraph, cascading to
// sentence boundaries for paragraphs that alone exceed the chunk size.
func (s *RecursiveMarkdownSplitter) recursiveSplit(text string, headers []string) []TextChunk {
	meta := models.ChunkMetadata{Headers: headers}
	var chunks []TextChunk

	paragraphs := paragraphRe.Split(text, -1)

	var (
		currentChunk []string
		currentLen   int
	)
	flush := func() {
		if len(currentChunk) > 0 {
			chunks = append(chunks, TextChunk{
				Text:     strings.Join(currentChunk, "\n\n"),
				Metadata: meta,
			})
			currentChunk = nil
			currentLen = 0
		}
	}

	for _, para := range paragraphs {
		paraLen := len(para)

		if paraLen > s.ChunkSize {
			flush()
			chunks = append(chunks, s.splitBySentences(para, meta)...)
			continue
		}

		// the +2 accounts for the blank-line separator between paragraphs
		if currentLen+paraLen+2 > s.ChunkSize && len(currentChunk) > 0 {
			chunks = append(chunks, TextChunk{
				Text:     strings.Join(currentChunk, "\n\n"),
				Metadata: meta,
			})
			currentChunk = []string{para}
			currentLen = paraLen
		} else {
			currentChunk = append(currentChunk, para)
			currentLen += paraLen + 2
		}
	}
	flush()

	return chunks
}

// splitBySentences greedily packs sentences of an oversized paragraph
func (s *RecursiveMarkdownSplitter) splitBySentences(para string, meta models.ChunkMetadata) []TextChunk {
	sentences := splitSentences(para)

	var (
		chunks  []TextChunk
		buffer  []string
		bufLen  int
	)
	for _, sent := range sentences {
		if bufLen+len(sent) > s.ChunkSize {
			if len(buffer) > 0 {
				chunks = append(chunks, TextChunk{
					Text:     strings.Join(buffer, " "),
					Metadata: meta,
				})
			}
			buffer = []string{sent}
			bufLen = len(sent)
		} else {
			buffer = append(buffer, sent)
			bufLen += len(sent)
		}
	}
	if len(buffer) > 0 {
		chunks = append(chunks, TextChunk{
			Text:     strings.Join(buffer, " "),
			Metadata: meta,
		})
	}
	return chunks
}

// splitSentences splits on terminal punctuation followed by whitespace,
// keeping the punctuation with the preceding sentence.
func splitSentences(text string) []string {
	marked := sentenceRe.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
