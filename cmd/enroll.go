package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <image>",
	Short: "Enroll a student's face from an image",
	Long: `Enroll the only face in the image as the reference embedding of a student.

An existing embedding of the student is replaced. Enrollment is refused when
the face already matches another enrolled student.

Examples:
  face-attendance enroll anna.jpg --student-id 12
  face-attendance enroll anna.jpg --external-id 2019-0042 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int64("student-id", 0, "Student ID")
	enrollCmd.Flags().String("external-id", "", "Student ID in the school information system")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
}

// EnrollResult is the JSON output of the enroll command.
type EnrollResult struct {
	StudentID   int64   `json:"student_id"`
	StudentName string  `json:"student_name"`
	Replaced    bool    `json:"replaced"`
	Model       string  `json:"model"`
	Dim         int     `json:"dim"`
	ConflictID  int64   `json:"conflict_student_id,omitempty"`
	Similarity  float64 `json:"conflict_similarity,omitempty"`
	Error       string  `json:"error,omitempty"`
}

func runEnroll(cmd *cobra.Command, args []string) error {
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

	student, err := a.resolveStudent(ctx, mustGetInt64(cmd, "student-id"), mustGetString(cmd, "external-id"))
	if err != nil {
		return err
	}

	out := EnrollResult{StudentID: student.ID, StudentName: student.FullName}
	res, err := a.service.RegisterFace(ctx, image, student.ID)
	if err != nil {
		var dup *facematch.DuplicateFaceError
		if errors.As(err, &dup) {
			out.ConflictID = dup.StudentID
			out.Similarity = dup.Similarity
		}
		if jsonOutput {
			out.Error = err.Error()
			if jerr := outputJSON(out); jerr != nil {
				return jerr
			}
		}
		return fmt.Errorf("failed to enroll %s: %w", student.FullName, err)
	}

	out.Replaced = res.Replaced
	out.Model = res.Model
	out.Dim = res.Dim
	if jsonOutput {
		return outputJSON(out)
	}

	action := "Enrolled"
	if res.Replaced {
		action = "Re-enrolled"
	}
	fmt.Printf("%s %s (student %d, %s, %d dims)\n", action, student.FullName, student.ID, res.Model, res.Dim)
	return nil
}
