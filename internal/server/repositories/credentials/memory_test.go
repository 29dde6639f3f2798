package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/comdesk/sessiond/internal/common"
)

func TestMemory_SaveReplaces(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.Save(ctx, "alice", "tok-1"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := repo.Save(ctx, "alice", "tok-2"); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != "tok-2" {
		t.Fatalf("expected latest token, got %q", got)
	}
}

func TestMemory_GetMissing(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()

	_, err := repo.Get(context.Background(), "nobody")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestMemory_DeleteIdempotent(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	if err := repo.Save(ctx, "alice", "tok"); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
	if _, err := repo.Get(ctx, "alice"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound after delete, got %v", err)
	}
}

func TestMemory_ConcurrentSaves(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Save(ctx, "alice", fmt.Sprintf("tok-%d", i))
		}(i)
	}
	wg.Wait()

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got == "" {
		t.Fatalf("expected one of the written tokens to win")
	}
}
