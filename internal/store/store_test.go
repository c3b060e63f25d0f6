package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/newsbell/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

var day = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func article(id, source string, offset time.Duration) model.Article {
	return model.Article{
		ID:     id,
		Title:  "Title " + id,
		Link:   "https://example.com/" + id,
		Source: source,
		Date:   day.Add(offset),
	}
}

func TestOpen(t *testing.T) {
	st := openTest(t)
	for _, table := range []string{"articles", "checkpoints", "meta"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("%s table not created: %v", table, err)
		}
	}
}

func TestMemoryStoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	a, b := openTest(t), openTest(t)
	if _, err := a.AddUnread(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.Unread(ctx); v != 0 {
		t.Errorf("second in-memory store sees %d unread", v)
	}
}

func TestCommitAndRead(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	full := article("1", "Adala News", 5*time.Hour)
	full.Excerpt = "Un trailer."
	full.Author = "Adala"
	full.Thumbnail = "https://example.com/1.jpg"
	full.Categories = []string{"anime", "news"}
	full.GUID = "g1"
	full.Description = "<p>desc</p>"

	articles := []model.Article{full, article("2", "CBR", time.Hour)}
	cps := model.Checkpoints{"Adala News": full.Date, "CBR": day.Add(time.Hour)}

	if err := st.Commit(ctx, cps, articles); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	got, err := st.Checkpoints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for src, want := range cps {
		if !got[src].Equal(want) {
			t.Errorf("checkpoint %s = %v, want %v", src, got[src], want)
		}
	}

	cached, err := st.Articles(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 2 || cached[0].ID != "1" {
		t.Fatalf("Articles = %+v", cached)
	}
	if !reflect.DeepEqual(cached[0], full) {
		t.Errorf("round trip changed article:\n got %+v\nwant %+v", cached[0], full)
	}

	one, err := st.Article(ctx, "2")
	if err != nil || one.Source != "CBR" {
		t.Errorf("Article(2) = %+v, %v", one, err)
	}
	if _, err := st.Article(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing article err = %v", err)
	}
}

func TestCommitNeverLowersCheckpoint(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	high := day.Add(10 * time.Hour)
	if err := st.Commit(ctx, model.Checkpoints{"S": high}, nil); err != nil {
		t.Fatal(err)
	}
	if err := st.Commit(ctx, model.Checkpoints{"S": day, "T": day}, nil); err != nil {
		t.Fatal(err)
	}

	got, _ := st.Checkpoints(ctx)
	if !got["S"].Equal(high) {
		t.Errorf("checkpoint lowered to %v", got["S"])
	}
	if !got["T"].Equal(day) {
		t.Errorf("new checkpoint = %v", got["T"])
	}

	var iso string
	st.db.QueryRow("SELECT at_iso FROM checkpoints WHERE source = 'S'").Scan(&iso)
	if iso != model.FormatTime(high) {
		t.Errorf("at_iso = %q, want %q", iso, model.FormatTime(high))
	}
}

func TestCommitUpsertsArticles(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	a := article("1", "S", 0)
	if err := st.Commit(ctx, nil, []model.Article{a}); err != nil {
		t.Fatal(err)
	}
	a.Title = "Corrected"
	if err := st.Commit(ctx, nil, []model.Article{a}); err != nil {
		t.Fatal(err)
	}

	n, _ := st.Count(ctx)
	if n != 1 {
		t.Errorf("expected 1 cached article, got %d", n)
	}
	got, _ := st.Article(ctx, "1")
	if got.Title != "Corrected" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestCommitCancelledLeavesStateUntouched(t *testing.T) {
	st := openTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.Commit(ctx, model.Checkpoints{"S": day}, []model.Article{article("1", "S", 0)})
	if err == nil {
		t.Fatal("expected commit on a cancelled context to fail")
	}

	cps, _ := st.Checkpoints(context.Background())
	n, _ := st.Count(context.Background())
	if len(cps) != 0 || n != 0 {
		t.Errorf("partial commit: %d checkpoints, %d articles", len(cps), n)
	}
}

func TestArticlesLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	var batch []model.Article
	for i := 0; i < 5; i++ {
		batch = append(batch, article(fmt.Sprint(i), "S", time.Duration(i)*time.Hour))
	}
	if err := st.Commit(ctx, nil, batch); err != nil {
		t.Fatal(err)
	}

	got, err := st.Articles(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	if !reflect.DeepEqual(ids, []string{"4", "3", "2"}) {
		t.Errorf("Articles(3) = %v", ids)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	batch := []model.Article{article("old", "S", -48*time.Hour), article("new", "S", 0)}
	if err := st.Commit(ctx, model.Checkpoints{"S": day}, batch); err != nil {
		t.Fatal(err)
	}

	n, err := st.Prune(ctx, day.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	if _, err := st.Article(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Error("old article survived prune")
	}
	if cps, _ := st.Checkpoints(ctx); !cps["S"].Equal(day) {
		t.Error("prune touched checkpoints")
	}
}

func TestUnreadCounter(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	if v, err := st.AddUnread(ctx, 5); err != nil || v != 5 {
		t.Fatalf("AddUnread = %d, %v", v, err)
	}
	if v, _ := st.AddUnread(ctx, 3); v != 8 {
		t.Errorf("AddUnread = %d, want 8", v)
	}
	if err := st.ResetUnread(ctx); err != nil {
		t.Fatal(err)
	}
	if v, _ := st.Unread(ctx); v != 0 {
		t.Errorf("Unread after reset = %d", v)
	}
}

func TestUnreadSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "newsbell.db")

	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	st.AddUnread(ctx, 4)
	st.Commit(ctx, model.Checkpoints{"S": day}, nil)
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if v, _ := st.Unread(ctx); v != 4 {
		t.Errorf("Unread after reopen = %d", v)
	}
	if cps, _ := st.Checkpoints(ctx); !cps["S"].Equal(day) {
		t.Errorf("checkpoints after reopen = %v", cps)
	}
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	st := openTest(t)

	var wg sync.WaitGroup
	errCh := make(chan error, 40)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			a := article(fmt.Sprintf("w-%d", n), "S", time.Duration(n)*time.Minute)
			if err := st.Commit(ctx, model.Checkpoints{"S": a.Date}, []model.Article{a}); err != nil {
				errCh <- fmt.Errorf("Commit %d: %v", n, err)
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := st.Articles(ctx, 100); err != nil {
				errCh <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := st.AddUnread(ctx, 1); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}

	if n, _ := st.Count(ctx); n != 10 {
		t.Errorf("expected 10 articles, got %d", n)
	}
	if v, _ := st.Unread(ctx); v != 10 {
		t.Errorf("lost unread updates: %d", v)
	}
	if cps, _ := st.Checkpoints(ctx); !cps["S"].Equal(day.Add(9 * time.Minute)) {
		t.Errorf("checkpoint = %v, want the max", cps["S"])
	}
}
