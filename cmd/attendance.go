package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Attendance listings and summaries",
	Long:  `Commands for reading recorded attendance.`,
}

var attendanceTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List students marked present today",
	RunE:  runAttendanceToday,
}

var attendanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records of a class",
	RunE:  runAttendanceList,
}

var attendanceSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the attendance rate of a class",
	Long: `Show how many students of a class were present on a day.

Examples:
  face-attendance attendance summary --class-id 3
  face-attendance attendance summary --class-id 3 --date 2026-10-19 --json`,
	RunE: runAttendanceSummary,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceTodayCmd, attendanceListCmd, attendanceSummaryCmd)

	attendanceTodayCmd.Flags().Int64("class-id", 0, "Only this class")
	attendanceTodayCmd.Flags().Bool("json", false, "Output as JSON")

	attendanceListCmd.Flags().Int64("class-id", 0, "Class ID")
	attendanceListCmd.Flags().String("date", "", "Only this date (YYYY-MM-DD)")
	attendanceListCmd.Flags().Bool("json", false, "Output as JSON")
	_ = attendanceListCmd.MarkFlagRequired("class-id")

	attendanceSummaryCmd.Flags().Int64("class-id", 0, "Class ID")
	attendanceSummaryCmd.Flags().String("date", "", "Date (YYYY-MM-DD), defaults to today")
	attendanceSummaryCmd.Flags().Bool("json", false, "Output as JSON")
	_ = attendanceSummaryCmd.MarkFlagRequired("class-id")
}

// AttendanceRow is one attendance record in command output.
type AttendanceRow struct {
	ID          string    `json:"id"`
	StudentID   int64     `json:"student_id"`
	StudentName string    `json:"student_name"`
	ClassID     int64     `json:"class_id"`
	Date        string    `json:"date"`
	Confidence  float64   `json:"confidence_score"`
	MarkedAt    time.Time `json:"marked_at"`
}

func parseDateFlag(cmd *cobra.Command) (*time.Time, error) {
	s := mustGetString(cmd, "date")
	if s == "" {
		return nil, nil
	}
	day, err := database.ParseDay(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", s)
	}
	return &day, nil
}

func printAttendance(records []database.AttendanceRecord, jsonOutput bool) error {
	rows := make([]AttendanceRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, AttendanceRow{
			ID:          r.ID,
			StudentID:   r.StudentID,
			StudentName: r.StudentName,
			ClassID:     r.ClassID,
			Date:        r.Day.Format(database.DayLayout),
			Confidence:  r.ConfidenceScore,
			MarkedAt:    r.MarkedAt,
		})
	}
	if jsonOutput {
		return outputJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No attendance records.")
		return nil
	}
	fmt.Printf("%-10s %-6s %-30s %-6s %s\n", "DATE", "ID", "STUDENT", "CLASS", "MARKED AT")
	for _, r := range rows {
		fmt.Printf("%-10s %-6d %-30s %-6d %s (%.2f)\n",
			r.Date, r.StudentID, r.StudentName, r.ClassID, r.MarkedAt.Format("15:04:05"), r.Confidence)
	}
	fmt.Printf("\n%d records\n", len(rows))
	return nil
}

func runAttendanceToday(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.reporter.Today(ctx, optionalInt64(cmd, "class-id"))
	if err != nil {
		return err
	}
	return printAttendance(records, mustGetBool(cmd, "json"))
}

func runAttendanceList(cmd *cobra.Command, args []string) error {
	day, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.reporter.ByClass(ctx, mustGetInt64(cmd, "class-id"), day)
	if err != nil {
		return err
	}
	return printAttendance(records, mustGetBool(cmd, "json"))
}

// SummaryOutput is the JSON output of the summary command.
type SummaryOutput struct {
	ClassID         int64   `json:"class_id"`
	ClassName       string  `json:"class_name"`
	Date            string  `json:"date"`
	TotalStudents   int     `json:"total_students"`
	PresentStudents int     `json:"present_students"`
	AttendanceRate  float64 `json:"attendance_rate"`
}

func runAttendanceSummary(cmd *cobra.Command, args []string) error {
	day, err := parseDateFlag(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	classID := mustGetInt64(cmd, "class-id")
	summary, err := a.reporter.Summary(ctx, classID, day)
	if err != nil {
		return err
	}
	out := SummaryOutput{
		ClassID:         summary.ClassID,
		Date:            summary.Day.Format(database.DayLayout),
		TotalStudents:   summary.TotalStudents,
		PresentStudents: summary.PresentStudents,
		AttendanceRate:  summary.AttendanceRate,
	}
	if class, err := a.roster.GetClass(ctx, classID); err == nil && class != nil {
		out.ClassName = class.Name
	}

	if jsonOutput := mustGetBool(cmd, "json"); jsonOutput {
		return outputJSON(out)
	}
	fmt.Printf("Class %s on %s\n", out.ClassName, out.Date)
	fmt.Printf("  Present: %d of %d\n", out.PresentStudents, out.TotalStudents)
	fmt.Printf("  Rate:    %.2f%%\n", out.AttendanceRate)
	return nil
}
