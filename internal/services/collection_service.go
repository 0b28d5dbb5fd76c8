// Package services orchestrates the ingestion pipeline: it is the only
// writer of the collection and of persisted state. Workers produce results
// over channels; this layer consumes them, mutates the store, and saves.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"promptstack/internal/core/extract"
	"promptstack/internal/core/ingest"
	"promptstack/internal/core/remote"
	"promptstack/internal/core/scan"
	"promptstack/internal/core/settings"
	"promptstack/internal/core/store"
	"promptstack/internal/models"
)

// ErrBusy is returned when a batch is submitted while another is running.
var ErrBusy = errors.New("a batch is already being processed")

// CollectionService wires the scanner, engine, remote client and stores
// behind the command surface. One ingestion batch runs at a time.
type CollectionService struct {
	collection *store.Collection
	settings   *settings.Store
	engine     *ingest.Engine
	scanner    *scan.Scanner
	log        *zap.Logger

	mu         sync.Mutex
	processing bool
	cancel     context.CancelFunc
	progress   models.Progress
}

func NewCollectionService(col *store.Collection, st *settings.Store, eng *ingest.Engine, sc *scan.Scanner, log *zap.Logger) *CollectionService {
	svc := &CollectionService{collection: col, settings: st, engine: eng, scanner: sc, log: log}
	restored := col.Restore(st.Items())
	if restored > 0 {
		log.Info("restored persisted collection", zap.Int("items", restored))
	}
	return svc
}

// Progress returns the current batch progress snapshot.
func (s *CollectionService) Progress() models.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Items returns the ordered collection.
func (s *CollectionService) Items() []models.DataItem {
	return s.collection.Items()
}

// AddManual appends a manual-text item. When the text matches an existing
// saved prompt, that prompt's updated timestamp (and note, when given) is
// refreshed rather than a second record created.
func (s *CollectionService) AddManual(text, note string) (*models.DataItem, error) {
	if text == "" {
		return nil, errors.New("manual text is empty")
	}
	item := models.NewManualItem(text)
	s.collection.Append(item)
	if s.settings.TouchPrompt(text, note) {
		s.log.Debug("touched existing saved prompt", zap.String("id", item.ID))
	}
	s.persist()
	s.log.Info("item added", zap.String("label", item.DisplayLabel()))
	return item, nil
}

// SubmitFiles runs the ingestion engine over the given paths in the
// background, appending one file item per path as results complete.
func (s *CollectionService) SubmitFiles(paths []string) error {
	if len(paths) == 0 {
		return errors.New("no paths submitted")
	}
	ctx, err := s.beginBatch(len(paths), fmt.Sprintf("processing %d files", len(paths)))
	if err != nil {
		return err
	}

	go func() {
		defer s.endBatch("file processing complete")
		for res := range s.engine.Process(ctx, paths, s.setProgress) {
			s.collection.Append(models.NewFileItem(toFileEntry(res)))
		}
		s.persist()
	}()
	return nil
}

// SubmitDirectory scans root and ingests every candidate file into a single
// directory item, preserving scan order. Warning markers from the scanner are
// logged, never dispatched to the engine.
func (s *CollectionService) SubmitDirectory(root string) error {
	ctx, err := s.beginBatch(0, "scanning "+root)
	if err != nil {
		return err
	}

	go func() {
		defer s.endBatch("directory processing complete")

		entries := s.scanner.Scan(root)
		paths, markers := scan.SplitMarkers(entries)
		for _, m := range markers {
			s.log.Warn("scan truncated", zap.String("root", root), zap.String("marker", m))
		}
		if len(paths) == 0 {
			s.setProgress(0, 0, "no supported files found under "+root)
			return
		}
		s.setProgress(0, len(paths), fmt.Sprintf("processing %d files", len(paths)))

		// Collect results keyed by path, then emit in scan order so the
		// directory item is deterministic.
		byPath := make(map[string]models.FileEntry, len(paths))
		for res := range s.engine.Process(ctx, paths, s.setProgress) {
			byPath[res.Path] = toFileEntry(res)
		}
		files := make([]models.FileEntry, 0, len(byPath))
		for _, p := range paths {
			if entry, ok := byPath[p]; ok {
				files = append(files, entry)
			}
		}

		item := models.NewDirectoryItem(root, files)
		s.collection.Append(item)
		s.persist()
		s.log.Info("item added", zap.String("label", item.DisplayLabel()))
	}()
	return nil
}

// SubmitRemoteIDs fetches the given documents sequentially (the service
// assumes a single connection) and appends one remote item per id. A failed
// fetch still yields an item carrying a placeholder.
func (s *CollectionService) SubmitRemoteIDs(rawText string) (int, error) {
	ids := remote.NormalizeIDs(rawText)
	if len(ids) == 0 {
		return 0, errors.New("no valid document ids found")
	}

	client := s.remoteClient()
	if !client.Configured() {
		return 0, errors.New("remote API not configured: set api_base_url and api_token")
	}

	ctx, err := s.beginBatch(len(ids), fmt.Sprintf("fetching %d documents", len(ids)))
	if err != nil {
		return 0, err
	}

	go func() {
		defer s.endBatch("remote fetch complete")
		for i, id := range ids {
			if ctx.Err() != nil {
				return
			}
			title, content, ok := client.FetchDocument(ctx, id)
			if !ok {
				title, content = "unavailable", "[read failed: "+id+"] could not fetch content"
			}
			s.collection.Append(models.NewRemoteItem(id, title, content))
			s.setProgress(i+1, len(ids), fmt.Sprintf("fetched %d/%d", i+1, len(ids)))
		}
		s.persist()
	}()
	return len(ids), nil
}

// Cancel requests cooperative cancellation of the running batch. In-flight
// extractions finish; completed results are kept.
func (s *CollectionService) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.processing || s.cancel == nil {
		return false
	}
	s.cancel()
	s.progress.Message = "cancelling"
	return true
}

// Merge renders the full ordered collection into one text artifact.
func (s *CollectionService) Merge() string {
	return s.collection.Merge()
}

// Clear removes every item.
func (s *CollectionService) Clear() {
	s.collection.Clear()
	s.persist()
}

// Remove deletes the given items.
func (s *CollectionService) Remove(ids []string) int {
	n := s.collection.Remove(ids)
	if n > 0 {
		s.persist()
	}
	return n
}

// MoveToIndex repositions one item.
func (s *CollectionService) MoveToIndex(id string, index int) bool {
	ok := s.collection.MoveToIndex(id, index)
	if ok {
		s.persist()
	}
	return ok
}

func (s *CollectionService) MoveToTop(id string) bool {
	ok := s.collection.MoveToTop(id)
	if ok {
		s.persist()
	}
	return ok
}

func (s *CollectionService) MoveToBottom(id string) bool {
	ok := s.collection.MoveToBottom(id)
	if ok {
		s.persist()
	}
	return ok
}

// DuplicateContent renders the selected items' content for copying.
func (s *CollectionService) DuplicateContent(ids []string) string {
	return s.collection.DuplicateContent(ids)
}

// remoteClient builds a client from the current settings; settings can
// change between batches.
func (s *CollectionService) remoteClient() *remote.Client {
	doc := s.settings.Document()
	return remote.NewClient(doc.APIBaseURL, doc.APIToken, time.Duration(doc.Timeout)*time.Second, s.log)
}

// beginBatch marks the service busy and hands out the batch context.
func (s *CollectionService) beginBatch(total int, msg string) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.processing = true
	s.cancel = cancel
	s.progress = models.Progress{Total: total, Message: msg, Running: true}
	return ctx, nil
}

func (s *CollectionService) endBatch(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.processing = false
	s.progress.Running = false
	s.progress.Message = msg
}

func (s *CollectionService) setProgress(done, total int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Done = done
	s.progress.Total = total
	s.progress.Message = msg
}

// persist saves the collection snapshot best-effort; the settings store logs
// failures without surfacing them.
func (s *CollectionService) persist() {
	s.settings.SaveItems(s.collection.Snapshot())
}

// toFileEntry converts an engine result, deriving a display name from the
// content when extraction succeeded and from the file name otherwise.
func toFileEntry(res ingest.Result) models.FileEntry {
	name := ""
	if !extract.IsFailure(res.Content) {
		name = models.GuessDisplayName(res.Content)
	}
	if name == "" {
		name = filepath.Base(res.Path)
	}
	return models.FileEntry{
		SourcePath:  res.Path,
		Content:     res.Content,
		SizeBytes:   res.Size,
		DisplayName: name,
	}
}
