package pdfproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"medical-rag/internal/models"
)

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 200  // characters
)

// Processor extracts page text from PDF files and splits it into
// overlapping fixed-size chunks tagged with source and page metadata.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = defaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Extract reads each page of the PDF and returns its chunked text.
// Pages with no extractable text contribute no chunks. An unreadable or
// corrupt PDF is logged and yields an empty result, never an error.
func (p *Processor) Extract(path string) []models.Chunk {
	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("error opening PDF")
		return nil
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("error reading PDF")
		return nil
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("error parsing PDF")
		return nil
	}

	source := filepath.Base(path)
	var chunks []models.Chunk
	numPages := reader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Int("page", pageNum).Msg("skipping unreadable page")
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		for i, text := range p.splitText(pageText) {
			chunks = append(chunks, models.Chunk{
				Text:    text,
				Source:  source,
				Page:    pageNum,
				ChunkID: fmt.Sprintf("%s_page_%d_chunk_%d", source, pageNum, i+1),
			})
		}
	}
	return chunks
}

// ExtractAll applies Extract to every .pdf file in dir, non-recursive.
// An unreadable directory yields an empty result.
func (p *Processor) ExtractAll(dir string) []models.Chunk {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("error reading PDF directory")
		return nil
	}

	var all []models.Chunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		chunks := p.Extract(path)
		log.Info().Str("file", entry.Name()).Int("chunks", len(chunks)).Msg("processed PDF")
		all = append(all, chunks...)
	}
	return all
}

// splitText slices text into windows of chunkSize characters advancing by
// chunkSize-chunkOverlap, so consecutive chunks share chunkOverlap characters
// and concatenating the non-overlap prefixes reconstructs the input.
func (p *Processor) splitText(text string) []string {
	if len(text) <= p.chunkSize {
		return []string{text}
	}

	step := p.chunkSize - p.chunkOverlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + p.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}
