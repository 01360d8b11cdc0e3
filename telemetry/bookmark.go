package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkAvalanche  BookmarkType = "avalanche"
	BookmarkSettled    BookmarkType = "settled"
	BookmarkAllAsleep  BookmarkType = "all_asleep"
	BookmarkSwapErrors BookmarkType = "swap_errors"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        uint64       `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	settled bool // last window had no movement
	asleep  bool // last window ended with every chunk idle
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkAvalanche(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkAllAsleep(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if stats.SwapErrors > 0 {
		bookmarks = append(bookmarks, Bookmark{
			Type:        BookmarkSwapErrors,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d swaps failed in window", stats.SwapErrors),
		})
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkAvalanche fires when a window moves more than twice the rolling average.
func (bd *BookmarkDetector) checkAvalanche(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total int
	for _, h := range history {
		total += h.Moved
	}
	avg := float64(total) / float64(len(history))
	if avg == 0 {
		return nil
	}

	if float64(stats.Moved) > avg*2.0 && stats.Moved >= 100 {
		return &Bookmark{
			Type:        BookmarkAvalanche,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Moved %d is %.1fx average (%.0f)", stats.Moved, float64(stats.Moved)/avg, avg),
		}
	}
	return nil
}

// checkSettled fires once when movement stops after a window that had some.
func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	still := stats.Moved == 0
	defer func() { bd.settled = still }()

	history := bd.getHistory()
	if !still || bd.settled || len(history) == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSettled,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No particle moved; %d particles at rest", stats.Particles),
	}
}

// checkAllAsleep fires once when every chunk ends a window idle.
func (bd *BookmarkDetector) checkAllAsleep(stats WindowStats) *Bookmark {
	asleep := stats.ActiveChunks == 0 && stats.IdleChunks > 0
	defer func() { bd.asleep = asleep }()

	if !asleep || bd.asleep {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkAllAsleep,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("All %d chunks idle", stats.IdleChunks),
	}
}
