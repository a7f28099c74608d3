package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognition"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image>",
	Short: "Recognize the student in an image",
	Long: `Match the only face in the image against the enrolled students.

With --mark the recognized student is marked present for today, at most once
per class and day.

Examples:
  face-attendance verify frame.jpg
  face-attendance verify frame.jpg --class-id 3 --mark
  face-attendance verify frame.jpg --threshold 0.7 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Int64("class-id", 0, "Restrict matching to one class")
	verifyCmd.Flags().Float64("threshold", recognition.DefaultThreshold, "Similarity threshold (defaults to FACE_SIMILARITY_THRESHOLD)")
	verifyCmd.Flags().Bool("mark", false, "Mark attendance for the recognized student")
	verifyCmd.Flags().Bool("json", false, "Output as JSON")
}

// VerifyOutput is the JSON output of the verify command.
type VerifyOutput struct {
	Matched        bool    `json:"matched"`
	Reason         string  `json:"reason,omitempty"`
	StudentID      int64   `json:"student_id,omitempty"`
	StudentName    string  `json:"student_name,omitempty"`
	ClassID        *int64  `json:"class_id,omitempty"`
	Similarity     float64 `json:"similarity"`
	Threshold      float64 `json:"threshold"`
	Marked         bool    `json:"marked"`
	AlreadyMarked  bool    `json:"already_marked"`
	MarkRejected   string  `json:"mark_rejected,omitempty"`
	AttendanceID   string  `json:"attendance_id,omitempty"`
	AttendanceDate string  `json:"attendance_date,omitempty"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	image, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := recognition.VerifyOptions{
		ClassID:   optionalInt64(cmd, "class-id"),
		Threshold: optionalFloat64(cmd, "threshold"),
		Mark:      mustGetBool(cmd, "mark"),
	}
	out := VerifyOutput{Threshold: a.service.Threshold()}
	if opts.Threshold != nil {
		out.Threshold = *opts.Threshold
	}

	res, err := a.service.VerifyFace(ctx, image, opts)
	var noMatch *recognition.NoMatchError
	switch {
	case errors.Is(err, recognition.ErrNoEnrolledFaces):
		out.Reason = "no_enrolled_faces"
	case errors.As(err, &noMatch):
		out.Reason = "no_match"
		out.Similarity = noMatch.BestSimilarity
	case err != nil:
		return fmt.Errorf("verification failed: %w", err)
	default:
		out.Matched = true
		out.StudentID = res.StudentID
		out.StudentName = res.StudentName
		out.ClassID = res.ClassID
		out.Similarity = res.Similarity
		out.Threshold = res.Threshold
		out.Marked = res.Marked
		out.AlreadyMarked = res.AlreadyMarked
		if res.MarkRejected != nil {
			out.MarkRejected = res.MarkRejected.Error()
		}
		if res.Attendance != nil {
			out.AttendanceID = res.Attendance.ID
			out.AttendanceDate = res.Attendance.Day.Format(database.DayLayout)
		}
	}

	if jsonOutput {
		return outputJSON(out)
	}
	printVerifyOutput(out)
	return nil
}

func printVerifyOutput(out VerifyOutput) {
	switch {
	case out.Reason == "no_enrolled_faces":
		fmt.Println("No enrolled faces to match against.")
		return
	case !out.Matched:
		fmt.Printf("No match (best similarity %.4f, threshold %.2f)\n", out.Similarity, out.Threshold)
		return
	}

	fmt.Printf("Recognized %s (student %d), similarity %.4f\n", out.StudentName, out.StudentID, out.Similarity)
	switch {
	case out.Marked:
		fmt.Printf("Marked present for %s\n", out.AttendanceDate)
	case out.AlreadyMarked:
		fmt.Println("Already marked present today")
	case out.MarkRejected != "":
		fmt.Printf("Attendance not marked: %s\n", out.MarkRejected)
	}
}
