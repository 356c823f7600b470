// Package ingestion_engine runs claimed documents through the processing
// pipeline: download, extract, classify, chunk, embed, persist, finalize.
package ingestion_engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/markdave123-py/Indexa/internal/core"
	"github.com/markdave123-py/Indexa/internal/core/chunking"
	"github.com/markdave123-py/Indexa/internal/core/classifier"
	"github.com/markdave123-py/Indexa/internal/core/extraction_engine"
	"github.com/markdave123-py/Indexa/internal/metrics"
	"github.com/markdave123-py/Indexa/internal/models"
)

// Pipeline stages, strictly sequential. Any stage that records an error
// short-circuits directly to finalize, which is the single exit point and
// runs exactly once per document.
type stage string

const (
	stageLoadDocument         stage = "load_document"
	stageDownloadFile         stage = "download_file"
	stageExtractContent       stage = "extract_content"
	stageClassifyContent      stage = "classify_content"
	stageCreateChunks         stage = "create_chunks"
	stageCreateSignalAndEmbed stage = "create_signal_and_embed"
	stageFinalize             stage = "finalize"
	stageDone                 stage = "done"
)

// maxSteps bounds state transitions per run; exceeding it means a cycle bug.
const maxSteps = 25

// embedBatchSize bounds how many chunk texts go to the embedder per call.
const embedBatchSize = 16

// pipelineState is the tagged state threaded through the stage functions.
// Each stage reads what earlier stages produced and records its own output;
// the first stage error freezes everything downstream except finalize.
type pipelineState struct {
	documentID     string
	document       *models.Document
	fileData       []byte
	extraction     *models.ExtractionResult
	classification *models.ClassificationResult
	chunks         []models.ChunkWithContext
	signalID       string
	startedAt      time.Time
	err            error
}

// Config tunes the orchestrator.
type Config struct {
	Bucket         string
	StorageTimeout time.Duration
}

func (c *Config) defaults() {
	if c.StorageTimeout <= 0 {
		c.StorageTimeout = 30 * time.Second
	}
}

// Orchestrator sequences one document through the pipeline to a terminal
// status. It owns no concurrency; the queue layer decides how many documents
// run at once.
type Orchestrator struct {
	db         core.DbClient
	storage    core.ObjectClient
	registry   *extraction_engine.Registry
	classifier *classifier.Classifier
	chunker    *chunking.Chunker
	embedder   core.EmbeddingProvider
	metrics    *metrics.Metrics
	cfg        Config
	logger     zerolog.Logger
}

func NewOrchestrator(
	db core.DbClient,
	storage core.ObjectClient,
	registry *extraction_engine.Registry,
	cls *classifier.Classifier,
	chunker *chunking.Chunker,
	embedder core.EmbeddingProvider,
	m *metrics.Metrics,
	cfg Config,
	logger zerolog.Logger,
) *Orchestrator {
	cfg.defaults()
	return &Orchestrator{
		db:         db,
		storage:    storage,
		registry:   registry,
		classifier: cls,
		chunker:    chunker,
		embedder:   embedder,
		metrics:    m,
		cfg:        cfg,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
	}
}

// ProcessDocument runs one already-claimed document to completion. The
// returned error reports what went wrong for logging; the document's
// terminal status has already been written unless persistence itself failed.
func (o *Orchestrator) ProcessDocument(ctx context.Context, documentID string) error {
	st := &pipelineState{documentID: documentID, startedAt: time.Now()}

	current := stageLoadDocument
	steps := 0
	for current != stageDone {
		steps++
		if steps > maxSteps {
			return fmt.Errorf("pipeline exceeded %d steps at stage %s for document %s", maxSteps, current, documentID)
		}
		current = o.step(ctx, current, st)
	}

	if st.err != nil {
		return st.err
	}
	return nil
}

// step is the finite-state interpreter: run the stage function, then pick
// the next stage. Errors divert every edge to finalize.
func (o *Orchestrator) step(ctx context.Context, s stage, st *pipelineState) stage {
	switch s {
	case stageLoadDocument:
		o.loadDocument(ctx, st)
	case stageDownloadFile:
		o.downloadFile(ctx, st)
	case stageExtractContent:
		o.extractContent(ctx, st)
	case stageClassifyContent:
		o.classifyContent(ctx, st)
	case stageCreateChunks:
		o.createChunks(st)
	case stageCreateSignalAndEmbed:
		o.createSignalAndEmbed(ctx, st)
	case stageFinalize:
		o.finalize(ctx, st)
		return stageDone
	default:
		st.err = fmt.Errorf("unknown pipeline stage %q", s)
		return stageFinalize
	}

	if st.err != nil {
		return stageFinalize
	}
	return successor(s)
}

func successor(s stage) stage {
	switch s {
	case stageLoadDocument:
		return stageDownloadFile
	case stageDownloadFile:
		return stageExtractContent
	case stageExtractContent:
		return stageClassifyContent
	case stageClassifyContent:
		return stageCreateChunks
	case stageCreateChunks:
		return stageCreateSignalAndEmbed
	case stageCreateSignalAndEmbed:
		return stageFinalize
	default:
		return stageFinalize
	}
}

func (o *Orchestrator) loadDocument(ctx context.Context, st *pipelineState) {
	doc, err := o.db.GetDocumentByID(ctx, st.documentID)
	if err != nil {
		st.err = fmt.Errorf("load document: %w", err)
		return
	}
	if doc == nil {
		st.err = fmt.Errorf("document not found: %s", st.documentID)
		return
	}
	st.document = doc

	if err := o.registry.ValidateFile(doc.FileName, doc.ContentType, doc.SizeBytes); err != nil {
		st.err = err
	}
}

func (o *Orchestrator) downloadFile(ctx context.Context, st *pipelineState) {
	bucket, key := parseS3URL(st.document.StorageURL)
	if bucket == "" {
		bucket = o.cfg.Bucket
	}
	if key == "" {
		st.err = fmt.Errorf("no object key in storage url %q", st.document.StorageURL)
		return
	}

	dlCtx, cancel := context.WithTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	data, err := o.storage.GetFile(dlCtx, bucket, key)
	if err != nil {
		st.err = fmt.Errorf("download %s: %w", key, err)
		return
	}
	st.fileData = data
}

func (o *Orchestrator) extractContent(ctx context.Context, st *pipelineState) {
	doc := st.document

	extractor, err := o.registry.Find(doc.FileName, doc.ContentType)
	if err != nil {
		st.err = err
		return
	}

	res, err := extractor.Extract(ctx, st.fileData, doc.FileName, extraction_engine.Options{
		TypeHint: doc.ContentType,
	})
	if err != nil {
		st.err = err
		return
	}
	st.extraction = res

	for _, w := range res.Warnings {
		o.logger.Warn().Str("document", doc.ID).Msg(w)
	}
}

// classifyContent never fails the pipeline: the classifier degrades to its
// deterministic fallback, and downstream stages do not require a successful
// classification.
func (o *Orchestrator) classifyContent(ctx context.Context, st *pipelineState) {
	st.classification = o.classifier.Classify(ctx, st.extraction.RawText, st.document.FileName, st.document.ContentType)
}

func (o *Orchestrator) createChunks(st *pipelineState) {
	cls := st.classification
	docCtx := chunking.DocumentContext{
		Title:         st.document.FileName,
		DocumentClass: cls.DocumentClass,
		Authority:     st.document.Authority,
		Summary:       cls.ContentSummary,
		QualityScore:  cls.QualityScore,
		HasQuality:    true,
		TotalPages:    st.extraction.PageCount,
	}

	st.chunks = o.chunker.Chunk(st.extraction, docCtx)
	if len(st.chunks) == 0 {
		st.err = fmt.Errorf("no chunks produced for document %s", st.documentID)
	}
}

// createSignalAndEmbed embeds every chunk's context-prefixed copy and writes
// the signal row plus all chunk rows in one transaction. Either the whole
// chunk set lands or none of it does.
func (o *Orchestrator) createSignalAndEmbed(ctx context.Context, st *pipelineState) {
	texts := make([]string, len(st.chunks))
	for i := range st.chunks {
		texts[i] = st.chunks[i].ContentWithContext
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := o.embedder.EmbedTexts(ctx, texts[start:end])
		if err != nil {
			st.err = fmt.Errorf("embed chunks: %w", err)
			return
		}
		if len(vecs) != end-start {
			st.err = fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), end-start)
			return
		}
		vectors = append(vectors, vecs...)
	}

	signalID := uuid.NewString()
	signal := &models.Signal{
		ID:             signalID,
		DocumentID:     st.documentID,
		DocumentClass:  st.classification.DocumentClass,
		ContentSummary: st.classification.ContentSummary,
		ChunkCount:     len(st.chunks),
	}

	rows := make([]models.DocumentChunk, len(st.chunks))
	for i := range st.chunks {
		c := &st.chunks[i]
		rows[i] = models.DocumentChunk{
			ID:              uuid.NewString(),
			DocumentID:      st.documentID,
			SignalID:        signalID,
			ChunkIndex:      c.ChunkIndex,
			OriginalContent: c.OriginalContent,
			EmbeddedContent: c.ContentWithContext,
			Embedding:       vectors[i],
			SectionType:     c.SectionType,
			SectionTitle:    c.SectionTitle,
			PageNumber:      c.PageNumber,
			TokenEstimate:   c.TokenEstimate,
		}
	}

	if err := o.db.InsertSignalWithChunks(ctx, signal, rows); err != nil {
		st.err = &core.PersistenceError{Op: "insert chunks", Err: err}
		return
	}
	st.signalID = signalID
	o.metrics.ChunksPersisted.Add(float64(len(rows)))
}

// finalize is the single exit point: it persists the terminal status exactly
// once. On success it writes the extraction/classification summary fields; on
// any upstream error it writes the message with status failed.
func (o *Orchestrator) finalize(ctx context.Context, st *pipelineState) {
	duration := time.Since(st.startedAt)
	o.metrics.PipelineDuration.Observe(duration.Seconds())

	if st.err != nil {
		o.metrics.DocumentsProcessed.WithLabelValues("failed").Inc()
		o.logger.Error().Err(st.err).Str("document", st.documentID).
			Dur("duration", duration).Msg("pipeline failed")

		if ferr := o.db.FailDocument(ctx, st.documentID, st.err.Error(), duration.Milliseconds()); ferr != nil {
			// The document stays in processing; an external reaper reclaims it.
			st.err = &core.PersistenceError{Op: "mark failed", Err: ferr}
		}
		return
	}

	doc := st.document
	cls := st.classification
	doc.ProcessingStatus = models.StatusCompleted
	doc.PageCount = st.extraction.PageCount
	doc.WordCount = st.extraction.WordCount
	doc.TotalChunks = len(st.chunks)
	doc.ContentSummary = cls.ContentSummary
	doc.KeywordTags = cls.KeywordTags
	doc.KeyTopics = cls.KeyTopics
	doc.ExtractionMethod = st.extraction.ExtractionMethod
	doc.DocumentClass = cls.DocumentClass
	doc.QualityScore = cls.QualityScore
	doc.RelevanceScore = cls.RelevanceScore
	doc.InformationDensity = cls.InformationDensity
	doc.SignalID = st.signalID
	doc.ProcessingDurationMs = duration.Milliseconds()

	if err := o.db.CompleteDocument(ctx, doc); err != nil {
		st.err = &core.PersistenceError{Op: "complete document", Err: err}
		return
	}

	o.metrics.DocumentsProcessed.WithLabelValues("completed").Inc()
	o.logger.Info().Str("document", st.documentID).Int("chunks", len(st.chunks)).
		Str("class", cls.DocumentClass).Dur("duration", duration).Msg("document processed")
}

// parseS3URL extracts the bucket and key from a virtual-hosted-style S3 URL.
// Example: https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf
func parseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	if parts := strings.Split(host, "."); len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
