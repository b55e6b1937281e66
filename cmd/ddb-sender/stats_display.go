package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ddb "github.com/audi/fep-participant-sub006"
)

// reportStats logs a heartbeat of buffer and listener counters until ctx ends.
func reportStats(ctx context.Context, interval time.Duration, buf ddb.Buffer, stats *syncStats, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b := buf.Stats()
			s := stats.Snapshot()
			logger.Info("heartbeat",
				"uptime", time.Since(startTime).Round(time.Second),
				"updates", b.Updates,
				"rotations", b.Rotations,
				"dispatched", b.Dispatched,
				"dropped_frames", b.DroppedFrames,
				"aborted_syncs", b.AbortedSyncs,
				"overruns", b.Overruns,
				"mismatches", b.Mismatches,
				"listener_errors", b.ListenerErrors,
				"shared_locks", b.SharedLocks,
				"last_frame", s.LastFrame,
				"avg_latency", s.AvgLatency,
			)
		}
	}
}

// printFinalStats prints the end-of-run summary.
func printFinalStats(b ddb.Stats, s SyncStatsSnapshot) {
	fmt.Println()
	fmt.Println("╭─────────────────────────────────────────────────────────────────╮")
	fmt.Println("│ Final Statistics")
	fmt.Println("├─────────────────────────────────────────────────────────────────┤")

	fmt.Println("│ Buffer:")
	fmt.Printf("│   Updates:            %6d samples\n", b.Updates)
	fmt.Printf("│   Rotations:          %6d frames\n", b.Rotations)
	fmt.Printf("│   Dispatched:         %6d frames\n", b.Dispatched)
	fmt.Printf("│   Dropped:            %6d frames (%.1f%%)\n", b.DroppedFrames, percent(b.DroppedFrames, b.Rotations))
	fmt.Printf("│   Aborted Syncs:      %6d\n", b.AbortedSyncs)
	fmt.Printf("│   Overruns:           %6d samples\n", b.Overruns)
	fmt.Printf("│   Mismatches:         %6d samples\n", b.Mismatches)
	fmt.Printf("│   Listener Errors:    %6d\n", b.ListenerErrors)

	fmt.Println("├─────────────────────────────────────────────────────────────────┤")
	fmt.Println("│ Consumer:")
	fmt.Printf("│   Frames Seen:        %6d\n", s.Frames)
	fmt.Printf("│   Complete:           %6d\n", s.Complete)
	fmt.Printf("│   Incomplete:         %6d\n", s.Incomplete)
	fmt.Printf("│   Skipped Ids:        %6d\n", s.Gaps)
	if s.Frames > 0 {
		fmt.Printf("│   Latency min/avg/max: %v / %v / %v\n",
			s.MinLatency.Round(time.Microsecond),
			s.AvgLatency.Round(time.Microsecond),
			s.MaxLatency.Round(time.Microsecond))
	}
	fmt.Println("╰─────────────────────────────────────────────────────────────────╯")
	fmt.Println()
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
