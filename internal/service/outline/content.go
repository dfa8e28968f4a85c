package outline

import (
	"context"
	"log/slog"

	"outliner/internal/cache"
	repositories "outliner/internal/domain/repositories/outline"
)

// contentReader is the read-through path for document content: cache first,
// store of record on a miss, repopulating the cache on the way out. Cache
// failures degrade to database reads.
type contentReader struct {
	docRepo repositories.DocumentRepository
	cache   *cache.ContentCache
	logger  *slog.Logger
}

func (r *contentReader) Get(ctx context.Context, documentID string) (string, error) {
	if content, ok := r.cache.Get(ctx, documentID); ok {
		return content, nil
	}

	content, err := r.docRepo.GetContent(ctx, documentID)
	if err != nil {
		return "", err
	}

	r.cache.Set(ctx, documentID, content)
	return content, nil
}
