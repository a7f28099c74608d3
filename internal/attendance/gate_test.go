package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

func int64Ptr(v int64) *int64 { return &v }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fixture struct {
	roster     *mock.MockRosterWriter
	attendance *mock.MockAttendanceWriter
	classID    int64
	studentID  int64
}

func newFixture() *fixture {
	roster := mock.NewMockRosterWriter()
	f := &fixture{roster: roster, attendance: mock.NewMockAttendanceWriter(roster)}
	f.classID = roster.AddClass(database.Class{ExternalID: "7A", Name: "7.A"})
	f.studentID = roster.AddStudent(database.Student{ExternalID: "s1", FullName: "Jan Novák", ClassID: &f.classID})
	return f
}

func TestResolveClass(t *testing.T) {
	tests := []struct {
		name      string
		requested *int64
		home      *int64
		want      int64
		wantErr   error
	}{
		{"home only", nil, int64Ptr(3), 3, nil},
		{"pinned equals home", int64Ptr(3), int64Ptr(3), 3, nil},
		{"pinned differs from home", int64Ptr(4), int64Ptr(3), 0, ErrNotInClass},
		{"pinned without home", int64Ptr(4), nil, 0, ErrNotInClass},
		{"neither", nil, nil, 0, ErrNoClassAssignment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveClass(tt.requested, tt.home)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ResolveClass() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveClass() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGate_MarkOncePerDay(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 10, 19, 8, 15, 0, 0, time.UTC)
	gate := NewGate(f.attendance, GateConfig{Now: fixedClock(now)}, nil)
	req := MarkRequest{StudentID: f.studentID, HomeClassID: &f.classID, Confidence: 0.91}

	first, err := gate.Mark(context.Background(), req)
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if first.Outcome != OutcomeNew {
		t.Fatalf("first Outcome = %v, want new", first.Outcome)
	}
	if first.Record == nil || first.Record.ID == "" {
		t.Fatal("expected inserted record with ID")
	}

	req.Confidence = 0.99
	second, err := gate.Mark(context.Background(), req)
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if second.Outcome != OutcomeAlreadyMarked {
		t.Fatalf("second Outcome = %v, want already_marked", second.Outcome)
	}
	if second.Record == nil || second.Record.ID != first.Record.ID {
		t.Errorf("expected existing record %s, got %+v", first.Record.ID, second.Record)
	}
	if second.Record.ConfidenceScore != 0.91 {
		t.Errorf("existing record mutated: confidence %v", second.Record.ConfidenceScore)
	}
	if f.attendance.Count() != 1 {
		t.Errorf("Count() = %d, want 1", f.attendance.Count())
	}
}

func TestGate_DayBoundaryIsCalendarDay(t *testing.T) {
	f := newFixture()
	clock := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)
	gate := NewGate(f.attendance, GateConfig{Now: func() time.Time { return clock }}, nil)
	req := MarkRequest{StudentID: f.studentID, HomeClassID: &f.classID, Confidence: 0.8}

	if out, _ := gate.Mark(context.Background(), req); out.Outcome != OutcomeNew {
		t.Fatalf("23:59 Outcome = %v, want new", out.Outcome)
	}

	clock = clock.Add(2 * time.Minute)
	out, err := gate.Mark(context.Background(), req)
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if out.Outcome != OutcomeNew {
		t.Errorf("00:01 next day Outcome = %v, want new", out.Outcome)
	}
	if out.Day.Format(database.DayLayout) != "2026-10-20" {
		t.Errorf("Day = %s, want 2026-10-20", out.Day.Format(database.DayLayout))
	}
}

func TestGate_ReferenceTimeZone(t *testing.T) {
	prague, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	f := newFixture()
	// 23:30 UTC is already the next day in Prague.
	now := time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC)
	gate := NewGate(f.attendance, GateConfig{Location: prague, Now: fixedClock(now)}, nil)

	out, err := gate.Mark(context.Background(), MarkRequest{StudentID: f.studentID, HomeClassID: &f.classID})
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if out.Day.Format(database.DayLayout) != "2026-10-20" {
		t.Errorf("Day = %s, want 2026-10-20", out.Day.Format(database.DayLayout))
	}
}

func TestGate_Rejections(t *testing.T) {
	f := newFixture()
	other := f.roster.AddClass(database.Class{ExternalID: "8B", Name: "8.B"})
	now := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		window  Window
		req     MarkRequest
		wantErr error
	}{
		{
			name:    "no class",
			req:     MarkRequest{StudentID: f.studentID},
			wantErr: ErrNoClassAssignment,
		},
		{
			name:    "pinned to another class",
			req:     MarkRequest{StudentID: f.studentID, RequestedClassID: &other, HomeClassID: &f.classID},
			wantErr: ErrNotInClass,
		},
		{
			name:    "outside window",
			window:  Window{Start: 8 * 60, End: 10 * 60},
			req:     MarkRequest{StudentID: f.studentID, HomeClassID: &f.classID},
			wantErr: ErrOutsideWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(f.attendance, GateConfig{Window: tt.window, Now: fixedClock(now)}, nil)
			out, err := gate.Mark(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Mark() error = %v", err)
			}
			if out.Outcome != OutcomeRejected {
				t.Errorf("Outcome = %v, want rejected", out.Outcome)
			}
			if !errors.Is(out.Reason, tt.wantErr) {
				t.Errorf("Reason = %v, want %v", out.Reason, tt.wantErr)
			}
		})
	}

	if f.attendance.Count() != 0 {
		t.Errorf("rejections must not write, got %d records", f.attendance.Count())
	}
}

func TestWindow_Contains(t *testing.T) {
	w := Window{Start: 8 * 60, End: 10 * 60}
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		clock string
		want  bool
	}{
		{"07:59", false},
		{"08:00", true},
		{"09:30", true},
		{"10:00", true},
		{"10:01", false},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			c, _ := time.Parse("15:04", tt.clock)
			at := day.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute)
			if got := w.Contains(at); got != tt.want {
				t.Errorf("Contains(%s) = %v, want %v", tt.clock, got, tt.want)
			}
		})
	}

	if !NoWindow.Contains(day) {
		t.Error("disabled window must contain every time")
	}
}

func TestGate_ConcurrentMarks(t *testing.T) {
	f := newFixture()
	gate := NewGate(f.attendance, GateConfig{Now: fixedClock(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))}, nil)

	const workers = 32
	var wg sync.WaitGroup
	outcomes := make(chan Outcome, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := gate.Mark(context.Background(), MarkRequest{StudentID: f.studentID, HomeClassID: &f.classID, Confidence: 0.9})
			if err != nil {
				t.Errorf("Mark() error = %v", err)
				return
			}
			outcomes <- out.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[Outcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	if counts[OutcomeNew] != 1 || counts[OutcomeAlreadyMarked] != workers-1 {
		t.Errorf("outcomes = %v, want 1 new and %d already marked", counts, workers-1)
	}
	if f.attendance.Count() != 1 {
		t.Errorf("Count() = %d, want 1", f.attendance.Count())
	}
}

func TestGate_StorageError(t *testing.T) {
	f := newFixture()
	f.attendance.InsertError = errors.New("connection reset")
	gate := NewGate(f.attendance, GateConfig{}, nil)

	_, err := gate.Mark(context.Background(), MarkRequest{StudentID: f.studentID, HomeClassID: &f.classID})
	if !errors.Is(err, f.attendance.InsertError) {
		t.Errorf("Mark() error = %v, want wrapped storage error", err)
	}
}
