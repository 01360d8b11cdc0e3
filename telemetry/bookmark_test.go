package telemetry

import (
	"testing"

	"github.com/pthm-cable/sandfall/config"
)

func init() {
	config.MustInit("")
}

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, b := range bookmarks {
		if b.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_Avalanche(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		if got := bd.Check(WindowStats{WindowEndTick: uint64(i * 60), Moved: 100, ActiveChunks: 4}); len(got) != 0 {
			t.Fatalf("unexpected bookmarks in steady state: %v", got)
		}
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 300, Moved: 450, ActiveChunks: 4})
	if !hasBookmark(bookmarks, BookmarkAvalanche) {
		t.Error("expected avalanche bookmark")
	}
}

func TestBookmarkDetector_SettledFiresOnce(t *testing.T) {
	bd := NewBookmarkDetector(5)
	bd.Check(WindowStats{WindowEndTick: 60, Moved: 40, ActiveChunks: 2})

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 120, Particles: 12, ActiveChunks: 2}), BookmarkSettled) {
		t.Error("expected settled bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 180, ActiveChunks: 2}), BookmarkSettled) {
		t.Error("settled should only fire on the transition")
	}
	bd.Check(WindowStats{WindowEndTick: 240, Moved: 3, ActiveChunks: 2})
	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 300, ActiveChunks: 2}), BookmarkSettled) {
		t.Error("expected settled bookmark after movement resumed and stopped")
	}
}

func TestBookmarkDetector_AllAsleep(t *testing.T) {
	bd := NewBookmarkDetector(5)
	bd.Check(WindowStats{WindowEndTick: 60, Moved: 10, ActiveChunks: 3, IdleChunks: 13})

	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 120, IdleChunks: 16}), BookmarkAllAsleep) {
		t.Error("expected all_asleep bookmark")
	}
	if hasBookmark(bd.Check(WindowStats{WindowEndTick: 180, IdleChunks: 16}), BookmarkAllAsleep) {
		t.Error("all_asleep should only fire on the transition")
	}
}

func TestBookmarkDetector_SwapErrors(t *testing.T) {
	bd := NewBookmarkDetector(5)
	if !hasBookmark(bd.Check(WindowStats{WindowEndTick: 60, Moved: 5, ActiveChunks: 1, SwapErrors: 2}), BookmarkSwapErrors) {
		t.Error("expected swap_errors bookmark")
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir, true)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}
	if err := om.WriteConfig(config.Cfg()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if err := om.WriteTick(TickStats{Tick: uint64(i), Moved: i}); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	if err := om.WriteWindow(WindowStats{WindowEndTick: 2, Moved: 3}); err != nil {
		t.Fatalf("WriteWindow: %v", err)
	}
	if err := om.WriteBookmark(Bookmark{Type: BookmarkSettled, Tick: 2}); err != nil {
		t.Fatalf("WriteBookmark: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := readLines(t, dir, "ticks.csv")
	if len(lines) != 3 {
		t.Fatalf("ticks.csv has %d lines, want header + 2", len(lines))
	}
	if lines[0][:5] != "tick," {
		t.Errorf("ticks.csv header = %q", lines[0])
	}
	if got := readLines(t, dir, "windows.csv"); len(got) != 2 {
		t.Errorf("windows.csv has %d lines, want 2", len(got))
	}
}

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("", false)
	if err != nil || om != nil {
		t.Fatalf("disabled output = %v, %v", om, err)
	}
	if err := om.WriteTick(TickStats{}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}
