package outline

import (
	"context"
	"errors"
	"testing"
	"time"

	"outliner/internal/domain"
	models "outliner/internal/domain/models/outline"
	services "outliner/internal/domain/services/outline"
)

func newCommentServiceForTest(env *testEnv) services.CommentService {
	return NewCommentService(env.segRepo, env.tx, env.logger)
}

func TestAppendComment(t *testing.T) {
	env := newTestEnv()
	svc := newCommentServiceForTest(env)
	ctx := context.Background()

	env.addSegment(&models.Segment{ID: "seg-1", DocumentID: "doc-1"})

	comments, err := svc.AppendComment(ctx, "seg-1", "needs a second look", "tenzin")
	if err != nil {
		t.Fatalf("AppendComment() error = %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(comments))
	}
	if comments[0].Content != "needs a second look" || comments[0].Username != "tenzin" {
		t.Errorf("comment = %+v, want content and username preserved", comments[0])
	}
	if _, err := time.Parse(time.RFC3339, comments[0].Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", comments[0].Timestamp, err)
	}

	comments, err = svc.AppendComment(ctx, "seg-1", "resolved", "pema")
	if err != nil {
		t.Fatalf("AppendComment() second error = %v", err)
	}
	if len(comments) != 2 || comments[1].Content != "resolved" {
		t.Errorf("comments = %+v, want the new entry appended last", comments)
	}
}

func TestAppendCommentValidation(t *testing.T) {
	env := newTestEnv()
	svc := newCommentServiceForTest(env)

	env.addSegment(&models.Segment{ID: "seg-1", DocumentID: "doc-1"})

	if _, err := svc.AppendComment(context.Background(), "seg-1", "", "tenzin"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("AppendComment() error = %v, want ErrValidation", err)
	}
	if _, err := svc.AppendComment(context.Background(), "missing", "text", "tenzin"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AppendComment() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateComment(t *testing.T) {
	env := newTestEnv()
	svc := newCommentServiceForTest(env)
	ctx := context.Background()

	env.addSegment(&models.Segment{
		ID: "seg-1", DocumentID: "doc-1",
		Comments: models.CommentList{
			{Content: "first", Username: "tenzin", Timestamp: "2026-01-01T00:00:00Z"},
			{Content: "second", Username: "pema", Timestamp: "2026-01-02T00:00:00Z"},
		},
	})

	comments, err := svc.UpdateComment(ctx, "seg-1", 1, "second, revised")
	if err != nil {
		t.Fatalf("UpdateComment() error = %v", err)
	}
	if comments[1].Content != "second, revised" {
		t.Errorf("comment content = %q, want %q", comments[1].Content, "second, revised")
	}
	if comments[1].Timestamp == "2026-01-02T00:00:00Z" {
		t.Error("timestamp should be refreshed on update")
	}
	if comments[0].Content != "first" {
		t.Errorf("untouched comment changed: %+v", comments[0])
	}

	for _, index := range []int{-1, 2} {
		if _, err := svc.UpdateComment(ctx, "seg-1", index, "x"); !errors.Is(err, domain.ErrCommentNotFound) {
			t.Errorf("UpdateComment(index=%d) error = %v, want ErrCommentNotFound", index, err)
		}
	}
}

func TestDeleteComment(t *testing.T) {
	env := newTestEnv()
	svc := newCommentServiceForTest(env)
	ctx := context.Background()

	env.addSegment(&models.Segment{
		ID: "seg-1", DocumentID: "doc-1",
		Comments: models.CommentList{
			{Content: "first"},
			{Content: "second"},
			{Content: "third"},
		},
	})

	comments, err := svc.DeleteComment(ctx, "seg-1", 1)
	if err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}
	if len(comments) != 2 || comments[0].Content != "first" || comments[1].Content != "third" {
		t.Errorf("comments after delete = %+v, want [first third]", comments)
	}

	if _, err := svc.DeleteComment(ctx, "seg-1", 5); !errors.Is(err, domain.ErrCommentNotFound) {
		t.Errorf("DeleteComment(index=5) error = %v, want ErrCommentNotFound", err)
	}

	listed, err := svc.ListComments(ctx, "seg-1")
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("ListComments() = %d entries, want 2", len(listed))
	}
}
