package outline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"outliner/internal/cache"
	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	baseRepo "outliner/internal/domain/repositories"
	repositories "outliner/internal/domain/repositories/outline"
)

// fakeStore is a shared in-memory backing store for the fake repositories,
// so the transaction fake can snapshot and restore both tables at once.
type fakeStore struct {
	docs map[string]*models.Document
	segs map[string]*models.Segment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs: make(map[string]*models.Document),
		segs: make(map[string]*models.Segment),
	}
}

func (s *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for id, doc := range s.docs {
		copied := *doc
		c.docs[id] = &copied
	}
	for id, seg := range s.segs {
		copied := *seg
		copied.Comments = append(models.CommentList(nil), seg.Comments...)
		c.segs[id] = &copied
	}
	return c
}

func (s *fakeStore) restore(from *fakeStore) {
	s.docs = from.docs
	s.segs = from.segs
}

func (s *fakeStore) segmentsOf(documentID string) []models.Segment {
	var segs []models.Segment
	for _, seg := range s.segs {
		if seg.DocumentID == documentID {
			segs = append(segs, *seg)
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].SegmentIndex < segs[j].SegmentIndex })
	return segs
}

// fakeTxManager runs the function directly, restoring the store snapshot on
// failure to mimic a rollback.
type fakeTxManager struct {
	store *fakeStore
}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn baseRepo.TxFn) error {
	snapshot := m.store.clone()
	if err := fn(ctx); err != nil {
		m.store.restore(snapshot)
		return err
	}
	return nil
}

type fakeDocumentRepo struct {
	store *fakeStore
}

func (r *fakeDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if _, ok := r.store.docs[doc.ID]; ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrConflict)
	}
	copied := *doc
	r.store.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := r.store.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocumentRepo) GetMeta(ctx context.Context, id string) (*models.Document, error) {
	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Content = ""
	return doc, nil
}

func (r *fakeDocumentRepo) GetContent(ctx context.Context, id string) (string, error) {
	doc, ok := r.store.docs[id]
	if !ok {
		return "", fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return doc.Content, nil
}

func (r *fakeDocumentRepo) GetByFilename(ctx context.Context, filename string) (*models.Document, error) {
	for _, doc := range r.store.docs {
		if doc.Filename != nil && *doc.Filename == filename {
			copied := *doc
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", filename, domain.ErrNotFound)
}

func (r *fakeDocumentRepo) List(ctx context.Context, opts repositories.ListDocumentsOptions) ([]models.Document, error) {
	var docs []models.Document
	for _, doc := range r.store.docs {
		if opts.UserID != nil && (doc.UserID == nil || *doc.UserID != *opts.UserID) {
			continue
		}
		if opts.Status != nil {
			if doc.Status != *opts.Status {
				continue
			}
		} else if !opts.IncludeDeleted && doc.Status == models.DocumentStatusDeleted {
			continue
		}
		copied := *doc
		copied.Content = ""
		docs = append(docs, copied)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt.After(docs[j].UpdatedAt) })
	return docs, nil
}

func (r *fakeDocumentRepo) UpdateContent(ctx context.Context, id, content string) error {
	doc, ok := r.store.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.Content = content
	return nil
}

func (r *fakeDocumentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	doc, ok := r.store.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.Status = status
	return nil
}

func (r *fakeDocumentRepo) UpdateProgress(ctx context.Context, id string, total, annotated int, percentage float64) error {
	doc, ok := r.store.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	doc.TotalSegments = total
	doc.AnnotatedSegments = annotated
	doc.ProgressPercentage = percentage
	return nil
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.store.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.docs, id)
	for segID, seg := range r.store.segs {
		if seg.DocumentID == id {
			delete(r.store.segs, segID)
		}
	}
	return nil
}

type fakeSegmentRepo struct {
	store *fakeStore
}

func (r *fakeSegmentRepo) Create(ctx context.Context, seg *models.Segment) error {
	if _, ok := r.store.segs[seg.ID]; ok {
		return fmt.Errorf("segment %s: %w", seg.ID, domain.ErrConflict)
	}
	copied := *seg
	r.store.segs[seg.ID] = &copied
	return nil
}

func (r *fakeSegmentRepo) CreateBatch(ctx context.Context, segs []*models.Segment) error {
	for _, seg := range segs {
		if err := r.Create(ctx, seg); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSegmentRepo) GetByID(ctx context.Context, id string) (*models.Segment, error) {
	seg, ok := r.store.segs[id]
	if !ok {
		return nil, fmt.Errorf("segment %s: %w", id, domain.ErrNotFound)
	}
	copied := *seg
	copied.Comments = append(models.CommentList(nil), seg.Comments...)
	return &copied, nil
}

func (r *fakeSegmentRepo) ListByDocument(ctx context.Context, documentID string, opts repositories.ListSegmentsOptions) ([]models.Segment, error) {
	segs := r.store.segmentsOf(documentID)
	if opts.Status != nil {
		filtered := segs[:0]
		for _, seg := range segs {
			if seg.Status == *opts.Status {
				filtered = append(filtered, seg)
			}
		}
		segs = filtered
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(segs) {
			return nil, nil
		}
		segs = segs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(segs) {
		segs = segs[:opts.Limit]
	}
	return segs, nil
}

func (r *fakeSegmentRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Segment, error) {
	var segs []models.Segment
	for _, id := range ids {
		if seg, ok := r.store.segs[id]; ok {
			segs = append(segs, *seg)
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].SegmentIndex < segs[j].SegmentIndex })
	return segs, nil
}

func (r *fakeSegmentRepo) Update(ctx context.Context, seg *models.Segment) error {
	if _, ok := r.store.segs[seg.ID]; !ok {
		return fmt.Errorf("segment %s: %w", seg.ID, domain.ErrNotFound)
	}
	copied := *seg
	copied.Comments = append(models.CommentList(nil), seg.Comments...)
	r.store.segs[seg.ID] = &copied
	return nil
}

func (r *fakeSegmentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.store.segs[id]; !ok {
		return fmt.Errorf("segment %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.segs, id)
	return nil
}

func (r *fakeSegmentRepo) DeleteBatch(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(r.store.segs, id)
	}
	return nil
}

func (r *fakeSegmentRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	for id, seg := range r.store.segs {
		if seg.DocumentID == documentID {
			delete(r.store.segs, id)
		}
	}
	return nil
}

func (r *fakeSegmentRepo) ShiftIndexes(ctx context.Context, documentID string, above, delta int) error {
	for _, seg := range r.store.segs {
		if seg.DocumentID == documentID && seg.SegmentIndex > above {
			seg.SegmentIndex += delta
		}
	}
	return nil
}

func (r *fakeSegmentRepo) MaxIndex(ctx context.Context, documentID string) (int, error) {
	max := -1
	for _, seg := range r.store.segs {
		if seg.DocumentID == documentID && seg.SegmentIndex > max {
			max = seg.SegmentIndex
		}
	}
	return max, nil
}

func (r *fakeSegmentRepo) Count(ctx context.Context, documentID string) (int, int, error) {
	total, annotated := 0, 0
	for _, seg := range r.store.segs {
		if seg.DocumentID == documentID {
			total++
			if seg.IsAnnotated {
				annotated++
			}
		}
	}
	return total, annotated, nil
}

func (r *fakeSegmentRepo) CountByStatus(ctx context.Context, documentID, status string) (int, error) {
	n := 0
	for _, seg := range r.store.segs {
		if seg.DocumentID == documentID && seg.Status == status {
			n++
		}
	}
	return n, nil
}

// testEnv wires the fake store into the real services.
type testEnv struct {
	store   *fakeStore
	docRepo repositories.DocumentRepository
	segRepo repositories.SegmentRepository
	tx      baseRepo.TransactionManager
	cache   *cache.ContentCache
	logger  *slog.Logger
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	return &testEnv{
		store:   store,
		docRepo: &fakeDocumentRepo{store: store},
		segRepo: &fakeSegmentRepo{store: store},
		tx:      &fakeTxManager{store: store},
		cache:   cache.NewContentCache(nil, 0, nil),
		logger:  slog.New(slog.DiscardHandler),
	}
}

func (e *testEnv) addDocument(id, content string) *models.Document {
	doc := &models.Document{
		ID:      id,
		Content: content,
		Status:  models.DocumentStatusActive,
	}
	e.store.docs[id] = doc
	return doc
}

func (e *testEnv) addSegment(seg *models.Segment) *models.Segment {
	e.store.segs[seg.ID] = seg
	return seg
}
