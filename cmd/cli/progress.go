package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/yourusername/videold-go/internal/app"
	"github.com/yourusername/videold-go/internal/domain"
)

func sessionByKey(key string) func(app.Snapshot) (domain.TransferSession, bool) {
	return func(snap app.Snapshot) (domain.TransferSession, bool) {
		s, ok := snap.Sessions[key]
		return s, ok
	}
}

func batchSession(snap app.Snapshot) (domain.TransferSession, bool) {
	if snap.Batch == nil {
		return domain.TransferSession{}, false
	}
	return snap.Batch.Session, true
}

// track drives a byte progress bar from the session pick selects
func track(orch *app.Orchestrator, description string, pick func(app.Snapshot) (domain.TransferSession, bool)) *progressbar.ProgressBar {
	bar := progressbar.DefaultBytes(-1, description)
	var total int64 = -1

	orch.OnUpdate(func(snap app.Snapshot) {
		s, ok := pick(snap)
		if !ok || s.State == domain.StateIdle {
			return
		}
		if s.BytesTotal > 0 && s.BytesTotal != total {
			total = s.BytesTotal
			bar.ChangeMax64(total)
		}
		_ = bar.Set64(s.BytesLoaded)
	})
	return bar
}

func newCountBar(n int, description string) *progressbar.ProgressBar {
	return progressbar.Default(int64(n), description)
}

// finish waits for a transfer and prints where it was saved
func finish(orch *app.Orchestrator, transfer *app.Transfer, bar *progressbar.ProgressBar, pick func(app.Snapshot) (domain.TransferSession, bool)) error {
	err := transfer.Wait()
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("%s: %w", domain.UserMessage(err), err)
	}
	if s, ok := pick(orch.Snapshot()); ok {
		fmt.Printf("Saved to %s\n", s.SavedPath)
	}
	return nil
}
