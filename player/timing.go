package player

import "time"

type (
	// Scheduler runs wall-clock callbacks. The player uses it for node
	// cleanup, state transitions and loop continuation; musical timing
	// always uses the audio clock.
	Scheduler interface {
		AfterFunc(d time.Duration, f func()) Timer
	}

	// Timer is a pending callback of a Scheduler.
	Timer interface {
		Stop() bool
	}

	wallClock struct{}
)

const (
	// cleanupMargin delays the release of nodes past their audible end.
	cleanupMargin = 100 * time.Millisecond
	// loopLookahead is how early the next loop iteration is scheduled.
	loopLookahead = 100 * time.Millisecond
)

// WallClock is the Scheduler backed by time.AfterFunc.
var WallClock Scheduler = wallClock{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// AudioToWall returns how long from now, in wall-clock time, until the audio
// clock reaches at. Both times are in seconds on the audio clock; times in
// the past give zero.
func AudioToWall(now, at float64) time.Duration {
	if at <= now {
		return 0
	}
	return time.Duration((at - now) * float64(time.Second))
}
