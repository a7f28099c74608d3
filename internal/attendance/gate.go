// Package attendance decides whether a recognized student gets a new
// attendance mark and reports on the marks already taken.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/logger"
)

var (
	// ErrNoClassAssignment is returned when neither a class was requested nor the student has one.
	ErrNoClassAssignment = errors.New("student has no class assignment")

	// ErrNotInClass is returned when the requested class is not the student's class.
	ErrNotInClass = errors.New("student does not belong to this class")

	// ErrOutsideWindow is returned when a mark is attempted outside the attendance window.
	ErrOutsideWindow = errors.New("outside attendance window")
)

// Outcome is the decision taken for one mark attempt.
type Outcome int

const (
	OutcomeNew Outcome = iota
	OutcomeAlreadyMarked
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeAlreadyMarked:
		return "already_marked"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Window is a daily time range in minutes after midnight, both ends inclusive.
type Window struct {
	Start int
	End   int
}

// NoWindow disables the attendance window.
var NoWindow = Window{Start: -1, End: -1}

// Enabled reports whether the window restricts marks.
func (w Window) Enabled() bool {
	return w.Start >= 0 && w.End >= 0
}

// Contains reports whether t (already in the reference zone) falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Enabled() {
		return true
	}
	m := t.Hour()*60 + t.Minute()
	return m >= w.Start && m <= w.End
}

// MarkRequest asks the gate to mark a recognized student present.
type MarkRequest struct {
	StudentID        int64
	RequestedClassID *int64 // class pinned by the caller, may be nil
	HomeClassID      *int64 // the student's own class, may be nil
	Confidence       float64
}

// MarkOutcome describes what the gate did. Record is the inserted record for
// OutcomeNew and the existing one for OutcomeAlreadyMarked. Reason is set for
// OutcomeRejected.
type MarkOutcome struct {
	Outcome Outcome
	ClassID int64
	Day     time.Time
	Record  *database.AttendanceRecord
	Reason  error
}

// GateConfig configures a Gate. Zero values mean UTC, no window and time.Now.
type GateConfig struct {
	Location *time.Location
	Window   Window
	Now      func() time.Time
}

// Gate marks a student present at most once per class and day.
// Uniqueness is enforced by the store, so concurrent gates in any number
// of processes agree on a single record.
type Gate struct {
	store  database.AttendanceWriter
	loc    *time.Location
	window Window
	now    func() time.Time
	log    *logger.Logger
}

// NewGate creates a new attendance gate.
func NewGate(store database.AttendanceWriter, cfg GateConfig, log *logger.Logger) *Gate {
	g := &Gate{
		store:  store,
		loc:    cfg.Location,
		window: cfg.Window,
		now:    cfg.Now,
		log:    log,
	}
	if g.loc == nil {
		g.loc = time.UTC
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.window == (Window{}) {
		g.window = NoWindow
	}
	if g.log == nil {
		g.log = logger.Nop()
	}
	return g
}

// Today returns the current attendance day.
func (g *Gate) Today() time.Time {
	return database.CalendarDay(g.now(), g.loc)
}

// ResolveClass picks the class a mark is recorded against.
func ResolveClass(requested, home *int64) (int64, error) {
	switch {
	case requested != nil && home != nil && *requested != *home:
		return 0, ErrNotInClass
	case requested != nil && home == nil:
		return 0, ErrNotInClass
	case requested != nil:
		return *requested, nil
	case home != nil:
		return *home, nil
	default:
		return 0, ErrNoClassAssignment
	}
}

// IsMarked reports whether the student is already marked today in the class
// the request resolves to. Unresolvable requests report false.
func (g *Gate) IsMarked(ctx context.Context, req MarkRequest) (bool, error) {
	classID, err := ResolveClass(req.RequestedClassID, req.HomeClassID)
	if err != nil {
		return false, nil
	}
	marked, err := g.store.MarkExists(ctx, req.StudentID, classID, g.Today())
	if err != nil {
		return false, fmt.Errorf("check attendance mark: %w", err)
	}
	return marked, nil
}

// Mark records attendance unless it already exists for the day.
// Rejections are reported in the outcome; only storage failures are returned as errors.
func (g *Gate) Mark(ctx context.Context, req MarkRequest) (MarkOutcome, error) {
	now := g.now()
	day := database.CalendarDay(now, g.loc)

	classID, err := ResolveClass(req.RequestedClassID, req.HomeClassID)
	if err != nil {
		return MarkOutcome{Outcome: OutcomeRejected, Day: day, Reason: err}, nil
	}

	out := MarkOutcome{ClassID: classID, Day: day}
	if !g.window.Contains(now.In(g.loc)) {
		out.Outcome = OutcomeRejected
		out.Reason = ErrOutsideWindow
		return out, nil
	}

	rec := &database.AttendanceRecord{
		StudentID:       req.StudentID,
		ClassID:         classID,
		Day:             day,
		ConfidenceScore: req.Confidence,
		MarkedAt:        now.UTC(),
	}
	inserted, err := g.store.InsertMark(ctx, rec)
	if err != nil {
		return out, fmt.Errorf("insert attendance mark: %w", err)
	}

	if inserted {
		g.log.Info("attendance marked",
			"student_id", req.StudentID, "class_id", classID,
			"day", day.Format(database.DayLayout), "confidence", req.Confidence)
		out.Outcome = OutcomeNew
		out.Record = rec
		return out, nil
	}

	out.Outcome = OutcomeAlreadyMarked
	existing, err := g.store.GetMark(ctx, req.StudentID, classID, day)
	if err != nil {
		return out, fmt.Errorf("load existing attendance mark: %w", err)
	}
	out.Record = existing
	return out, nil
}
