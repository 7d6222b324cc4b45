package index

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_AddAndQuery(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, "posts", 7, map[string]string{"body": "the quick brown fox"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ids, total, err := idx.Query(ctx, "posts", "fox", 1, 20)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if len(ids) != 1 || ids[0] != 7 {
		t.Errorf("ids = %v, want [7]", ids)
	}

	// Standard analyzer: lowercase matching, no stemming.
	ids, _, err = idx.Query(ctx, "posts", "FOX", 1, 20)
	if err != nil {
		t.Fatalf("Query uppercase: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("case-insensitive match failed, ids = %v", ids)
	}
}

func TestBleveIndex_QueryNoMatches(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, "posts", 1, map[string]string{"body": "something"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	ids, total, err := idx.Query(ctx, "posts", "absent", 1, 20)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ids) != 0 || total != 0 {
		t.Errorf("ids = %v, total = %d; want none", ids, total)
	}
}

func TestBleveIndex_Pagination(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := idx.Add(ctx, "posts", uint(i), map[string]string{"body": fmt.Sprintf("pagination test %d", i)}); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	page1, total, err := idx.Query(ctx, "posts", "pagination", 1, 2)
	if err != nil {
		t.Fatalf("Query page 1: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page1) != 2 {
		t.Errorf("page 1 size = %d, want 2", len(page1))
	}

	page3, total, err := idx.Query(ctx, "posts", "pagination", 3, 2)
	if err != nil {
		t.Fatalf("Query page 3: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(page3) != 1 {
		t.Errorf("page 3 size = %d, want 1 (the remainder)", len(page3))
	}
}

func TestBleveIndex_AddOverwritesAndRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, "posts", 3, map[string]string{"body": "first version"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, "posts", 3, map[string]string{"body": "second version"}); err != nil {
		t.Fatalf("Add overwrite: %v", err)
	}

	if ids, _, _ := idx.Query(ctx, "posts", "first", 1, 20); len(ids) != 0 {
		t.Errorf("old content still matches: %v", ids)
	}
	if ids, _, _ := idx.Query(ctx, "posts", "second", 1, 20); len(ids) != 1 {
		t.Errorf("new content does not match: %v", ids)
	}

	if err := idx.Remove(ctx, "posts", 3); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ids, _, _ := idx.Query(ctx, "posts", "second", 1, 20); len(ids) != 0 {
		t.Errorf("removed document still matches: %v", ids)
	}
}

func TestBleveIndex_TablesAreIsolated(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, "posts", 1, map[string]string{"body": "shared term"}); err != nil {
		t.Fatalf("Add posts: %v", err)
	}
	if err := idx.Add(ctx, "comments", 9, map[string]string{"text": "shared term"}); err != nil {
		t.Fatalf("Add comments: %v", err)
	}

	ids, total, err := idx.Query(ctx, "posts", "shared", 1, 20)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 1 || len(ids) != 1 || ids[0] != 1 {
		t.Errorf("posts ids = %v, total = %d; want [1] and 1", ids, total)
	}

	count, err := idx.Count("comments")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("comments count = %d, want 1", count)
	}
}

func TestBleveIndex_ReopenExistingKeepsDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bleve")
	ctx := context.Background()

	idx1, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	if err := idx1.Add(ctx, "posts", 4, map[string]string{"body": "durable content"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatalf("NewBleveIndex reopen: %v", err)
	}
	defer func() { _ = idx2.Close() }()

	ids, total, err := idx2.Query(ctx, "posts", "durable", 1, 20)
	if err != nil {
		t.Fatalf("Query after reopen: %v", err)
	}
	if total != 1 || len(ids) != 1 || ids[0] != 4 {
		t.Errorf("ids = %v, total = %d; want [4] and 1 after reopen", ids, total)
	}
}
