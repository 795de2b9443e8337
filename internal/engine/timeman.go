package engine

import "time"

// TimeManager turns a Clock limit into a soft budget (checked at iteration
// boundaries) and a hard budget (checked mid-iteration), per the dynamic
// time-manager formula: soft ~= remaining/30 + increment/2, hard ~=
// min(remaining/4, soft*6).
type TimeManager struct {
	startTime time.Time
	soft      time.Duration
	hard      time.Duration
}

// NewTimeManager builds a TimeManager from a Clock limit's fields.
func NewTimeManager(remainingMS, incrementMS int64, movesToGo int) *TimeManager {
	tm := &TimeManager{startTime: time.Now()}

	remaining := time.Duration(remainingMS) * time.Millisecond
	increment := time.Duration(incrementMS) * time.Millisecond

	soft := remaining/30 + increment/2
	hard := remaining / 4
	if sixSoft := soft * 6; sixSoft < hard {
		hard = sixSoft
	}

	if soft < 10*time.Millisecond {
		soft = 10 * time.Millisecond
	}
	if hard < 50*time.Millisecond {
		hard = 50 * time.Millisecond
	}

	tm.soft = soft
	tm.hard = hard
	return tm
}

// NewFixedTimeManager allocates both soft and hard budgets equal to d, for
// a plain LimitTime/movetime search.
func NewFixedTimeManager(d time.Duration) *TimeManager {
	return &TimeManager{startTime: time.Now(), soft: d, hard: d}
}

func (tm *TimeManager) Elapsed() time.Duration { return time.Since(tm.startTime) }

// PastSoft reports whether the soft budget has elapsed; callers should not
// start another iterative-deepening iteration past this point.
func (tm *TimeManager) PastSoft() bool { return tm.Elapsed() >= tm.soft }

// PastHard reports whether the hard budget has elapsed; callers must abort
// the in-flight iteration immediately.
func (tm *TimeManager) PastHard() bool { return tm.Elapsed() >= tm.hard }
