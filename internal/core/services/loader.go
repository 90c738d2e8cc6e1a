package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/trialdex/internal/core/domain"
	"github.com/custodia-labs/trialdex/internal/core/ports/driven"
	"github.com/custodia-labs/trialdex/internal/core/ports/driving"
	"github.com/custodia-labs/trialdex/internal/logger"
)

// Ensure LoadOrchestrator implements the interface.
var _ driving.TrialLoader = (*LoadOrchestrator)(nil)

// LoadOrchestrator coordinates batch loads into the search table.
type LoadOrchestrator struct {
	source     driven.RecordSource
	normaliser driven.Normaliser
	pipeline   driven.PostProcessorPipeline
	embedder   *Embedder
	index      driven.IndexWriter
	table      string
	workers    int
	log        *logger.Logger

	// Status tracking
	mu     sync.RWMutex
	status driving.LoadStatus
}

// NewLoadOrchestrator creates a new load orchestrator writing to table.
// workers bounds parallel fetching and chunking.
func NewLoadOrchestrator(
	source driven.RecordSource,
	normaliser driven.Normaliser,
	pipeline driven.PostProcessorPipeline,
	embeddingService driven.EmbeddingService,
	index driven.IndexWriter,
	settings domain.AppSettings,
) *LoadOrchestrator {
	workers := settings.Normalise.Workers
	if workers <= 0 {
		workers = 1
	}

	o := &LoadOrchestrator{
		source:     source,
		normaliser: normaliser,
		pipeline:   pipeline,
		index:      index,
		table:      settings.Index.Table,
		workers:    workers,
		log:        logger.Named("loader"),
		status:     driving.LoadStatus{Stage: domain.LoadStageIdle},
	}
	o.embedder = NewEmbedder(embeddingService, settings.Embed, settings.Embedding.ResolvedDimensions(),
		WithProgress(func(done int) {
			o.updateStatus(func(s *driving.LoadStatus) { s.ChunksEmbedded = done })
		}))
	return o
}

// Load runs one batch through fetch, normalisation, chunking, embedding and
// the index write.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (o *LoadOrchestrator) Load(ctx context.Context, ids []string, mode domain.LoadMode) (*domain.LoadReport, error) {
	started := time.Now()

	// 1. Validate the request
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: load mode must be %q or %q", domain.ErrInvalidInput, domain.LoadModeReload, domain.LoadModeAppend)
	}
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no record ids given", domain.ErrInvalidInput)
	}

	// 2. Claim the loader
	if err := o.begin(len(ids)); err != nil {
		return nil, err
	}
	defer o.finish()

	logger.Section("Load")
	o.log.Info("loading %d records into %s (%s)", len(ids), o.table, mode)

	// 3. Fetch and prepare every record
	prepared, err := o.prepareAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	// 4. Assemble documents; metadata visibility is decided over the whole batch
	o.setStage(domain.LoadStageAssembly)
	docs, err := o.normaliser.Assemble(prepared)
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	// 5. Chunk
	o.setStage(domain.LoadStageChunking)
	chunks, err := o.chunkAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	// 6. Embed
	items := embedItems(docs, chunks)
	o.updateStatus(func(s *driving.LoadStatus) {
		s.Stage = domain.LoadStageEmbedding
		s.ChunksTotal = len(items)
	})
	outcome, err := o.embedder.Embed(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	// 7. Write
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.setStage(domain.LoadStageWriting)
	rows := indexRows(docs, chunks)
	if err := o.index.Write(ctx, o.table, rows, mode); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	length, err := o.index.Count(ctx, o.table)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	report := &domain.LoadReport{
		Mode:        mode,
		Documents:   len(docs),
		Chunks:      len(items),
		RowsWritten: len(rows),
		Rejected:    outcome.Rejected,
		IndexLength: length,
		Duration:    time.Since(started),
	}
	o.log.Info("wrote %d rows for %d documents in %s", report.RowsWritten, report.Documents, report.Duration.Round(time.Millisecond))
	return report, nil
}

// Preview fetches and normalises a single record and chunks it.
// Nothing is embedded or written.
func (o *LoadOrchestrator) Preview(ctx context.Context, id string) (*driving.Preview, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}

	prepared, err := o.prepare(ctx, id)
	if err != nil {
		return nil, err
	}
	docs, err := o.normaliser.Assemble([]driven.PreparedRecord{*prepared})
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	chunks, err := o.pipeline.Process(ctx, &docs[0])
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", docs[0].ID, err)
	}
	return &driving.Preview{Document: docs[0], Chunks: chunks}, nil
}

// IndexLength returns the number of rows in the search table.
func (o *LoadOrchestrator) IndexLength(ctx context.Context) (int, error) {
	return o.index.Count(ctx, o.table)
}

// DeleteIndex removes every row from the search table.
// It refuses to run while a load is in progress.
func (o *LoadOrchestrator) DeleteIndex(ctx context.Context) error {
	if o.Status().Running {
		return domain.ErrLoadInProgress
	}
	if err := o.index.Truncate(ctx, o.table); err != nil {
		return err
	}
	o.log.Info("truncated %s", o.table)
	return nil
}

// Status returns a copy of the current load status.
func (o *LoadOrchestrator) Status() driving.LoadStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

func (o *LoadOrchestrator) prepareAll(ctx context.Context, ids []string) ([]driven.PreparedRecord, error) {
	o.setStage(domain.LoadStageFetching)

	prepared := make([]driven.PreparedRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, id := range ids {
		g.Go(func() error {
			p, err := o.prepare(gctx, id)
			if err != nil {
				return err
			}
			prepared[i] = *p
			o.updateStatus(func(s *driving.LoadStatus) { s.RecordsFetched++ })
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prepared, nil
}

func (o *LoadOrchestrator) prepare(ctx context.Context, id string) (*driven.PreparedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := o.source.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	p, err := o.normaliser.Prepare(id, raw)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", id, err)
	}
	o.log.Debug("prepared %s (%d fields, %d bytes of content)", id, p.Extracted.Len(), len(p.Content))
	return p, nil
}

func (o *LoadOrchestrator) chunkAll(ctx context.Context, docs []domain.Document) ([][]domain.Chunk, error) {
	chunks := make([][]domain.Chunk, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i := range docs {
		g.Go(func() error {
			c, err := o.pipeline.Process(gctx, &docs[i])
			if err != nil {
				return fmt.Errorf("chunk %s: %w", docs[i].ID, err)
			}
			chunks[i] = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// embedItems pairs every chunk with its embedding input: the chunk content
// under the document's embed-visible metadata block.
func embedItems(docs []domain.Document, chunks [][]domain.Chunk) []EmbedItem {
	var items []EmbedItem
	for i := range docs {
		for j := range chunks[i] {
			items = append(items, EmbedItem{
				Chunk: &chunks[i][j],
				Input: docs[i].RenderChunk(chunks[i][j], domain.MetadataModeEmbed),
			})
		}
	}
	return items
}

// indexRows converts embedded chunks to rows. Rejected chunks have no
// embedding and are skipped.
func indexRows(docs []domain.Document, chunks [][]domain.Chunk) []domain.IndexRow {
	var rows []domain.IndexRow
	for i := range docs {
		metadata := docs[i].Metadata.Map()
		for _, c := range chunks[i] {
			if c.Embedding == nil {
				continue
			}
			rows = append(rows, domain.IndexRow{
				ID:         c.ID,
				DocumentID: c.DocumentID,
				Position:   c.Position,
				Text:       c.Content,
				Metadata:   metadata,
				Embedding:  c.Embedding,
			})
		}
	}
	return rows
}

// normaliseIDs trims ids and drops blanks and repeats, keeping order.
func normaliseIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (o *LoadOrchestrator) begin(total int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.Running {
		return domain.ErrLoadInProgress
	}
	o.status = driving.LoadStatus{
		Running:      true,
		Stage:        domain.LoadStageFetching,
		RecordsTotal: total,
	}
	return nil
}

func (o *LoadOrchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.Running = false
	o.status.Stage = domain.LoadStageIdle
}

func (o *LoadOrchestrator) setStage(stage domain.LoadStage) {
	o.updateStatus(func(s *driving.LoadStatus) { s.Stage = stage })
}

func (o *LoadOrchestrator) updateStatus(fn func(s *driving.LoadStatus)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.status)
}
