package marantzctl

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"marantzctl/mediaplayer"
)

// Watch refreshes e immediately and then on every tick until ctx is done,
// handing each refreshed snapshot to fn. Failed refreshes are logged and
// skipped.
func Watch(ctx context.Context, e mediaplayer.Entity, interval time.Duration, fn func(mediaplayer.Snapshot)) error {
	if interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		if err := e.Update(); err != nil {
			log.Printf("%s: update failed: %v", e.Name(), err)
		} else {
			fn(mediaplayer.TakeSnapshot(e))
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	return nil
}

// Format renders a snapshot on one line, with "-" for unknown fields.
func Format(s mediaplayer.Snapshot) string {
	state := string(s.State)
	if state == "" {
		state = "-"
	}
	volume, muted, source, soundMode := "-", "-", "-", "-"
	if s.Volume != nil {
		volume = strconv.FormatFloat(*s.Volume, 'f', 2, 64)
	}
	if s.Muted != nil {
		muted = strconv.FormatBool(*s.Muted)
	}
	if s.Source != nil {
		source = *s.Source
	}
	if s.SoundMode != nil {
		soundMode = *s.SoundMode
	}
	return fmt.Sprintf("%s: state=%s volume=%s muted=%s source=%s soundmode=%s",
		s.Name, state, volume, muted, source, soundMode)
}
