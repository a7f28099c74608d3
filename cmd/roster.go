package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Roster management commands",
	Long:  `Commands for managing classes and students.`,
}

var rosterSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync classes and students from the school information system",
	Long: `Copy classes and students from the school information system database
(SCHOOL_DATABASE_URL, MariaDB) into the attendance database.

Existing students are updated by external id and keep their enrolled faces.
Students missing from the source are not removed.`,
	RunE: runRosterSync,
}

var rosterStudentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List students with their enrollment state",
	RunE:  runRosterStudents,
}

var rosterUpdateCmd = &cobra.Command{
	Use:   "update <student-id>",
	Short: "Rename a student or move them to another class",
	Long: `Update a student. Only the given fields change.

Examples:
  face-attendance roster update 12 --class-id 4
  face-attendance roster update 12 --no-class
  face-attendance roster update 12 --name "Eva Dvořáková"`,
	Args: cobra.ExactArgs(1),
	RunE: runRosterUpdate,
}

var rosterRemoveCmd = &cobra.Command{
	Use:   "remove <student-id>",
	Short: "Delete a student with their face and attendance records",
	Args:  cobra.ExactArgs(1),
	RunE:  runRosterRemove,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterSyncCmd, rosterStudentsCmd, rosterUpdateCmd, rosterRemoveCmd)

	rosterSyncCmd.Flags().Bool("json", false, "Output as JSON")

	rosterStudentsCmd.Flags().Int64("class-id", 0, "Only this class")
	rosterStudentsCmd.Flags().Bool("json", false, "Output as JSON")

	rosterUpdateCmd.Flags().String("name", "", "New full name")
	rosterUpdateCmd.Flags().Int64("class-id", 0, "New class ID")
	rosterUpdateCmd.Flags().Bool("no-class", false, "Remove the student from their class")
	rosterUpdateCmd.MarkFlagsMutuallyExclusive("class-id", "no-class")
}

func runRosterSync(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.School.DatabaseURL == "" {
		return errors.New("SCHOOL_DATABASE_URL environment variable is required")
	}
	source, err := mariadb.NewPool(ctx, a.cfg.School.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to school database: %w", err)
	}
	defer source.Close()

	result, err := roster.NewSyncer(source, a.roster, a.log).Sync(ctx)
	if err != nil {
		return fmt.Errorf("roster sync failed: %w", err)
	}

	if jsonOutput {
		return outputJSON(result)
	}
	fmt.Println("Roster sync complete!")
	fmt.Printf("  Classes:    %d\n", result.Classes)
	fmt.Printf("  Students:   %d\n", result.Students)
	if result.Unassigned > 0 {
		fmt.Printf("  Unassigned: %d\n", result.Unassigned)
	}
	if result.Skipped > 0 {
		fmt.Printf("  Skipped:    %d\n", result.Skipped)
	}
	return nil
}

// StudentRow is one student in command output.
type StudentRow struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	FullName     string `json:"full_name"`
	ClassID      *int64 `json:"class_id"`
	FaceEnrolled bool   `json:"face_enrolled"`
}

func runRosterStudents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.roster.ListStudents(ctx, optionalInt64(cmd, "class-id"))
	if err != nil {
		return fmt.Errorf("failed to list students: %w", err)
	}

	rows := make([]StudentRow, 0, len(students))
	enrolled := 0
	for _, s := range students {
		rows = append(rows, StudentRow{
			ID:           s.ID,
			ExternalID:   s.ExternalID,
			FullName:     s.FullName,
			ClassID:      s.ClassID,
			FaceEnrolled: s.FaceEnrolled,
		})
		if s.FaceEnrolled {
			enrolled++
		}
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(rows)
	}

	fmt.Printf("%-6s %-12s %-30s %-6s %s\n", "ID", "EXTERNAL", "NAME", "CLASS", "FACE")
	for _, r := range rows {
		class := "-"
		if r.ClassID != nil {
			class = strconv.FormatInt(*r.ClassID, 10)
		}
		face := "no"
		if r.FaceEnrolled {
			face = "yes"
		}
		fmt.Printf("%-6d %-12s %-30s %-6s %s\n", r.ID, r.ExternalID, r.FullName, class, face)
	}
	fmt.Printf("\n%d students, %d enrolled\n", len(rows), enrolled)
	return nil
}

func parseStudentArg(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid student id %q", s)
	}
	return id, nil
}

func runRosterUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseStudentArg(args[0])
	if err != nil {
		return err
	}

	var update database.StudentUpdate
	if name := mustGetString(cmd, "name"); name != "" {
		update = roster.Rename(update, name)
	}
	if classID := optionalInt64(cmd, "class-id"); classID != nil {
		update = roster.AssignClass(update, classID)
	}
	if mustGetBool(cmd, "no-class") {
		update = roster.AssignClass(update, nil)
	}
	if update.IsEmpty() {
		return errors.New("nothing to update: use --name, --class-id or --no-class")
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.roster.UpdateStudent(ctx, id, update); err != nil {
		return fmt.Errorf("failed to update student %d: %w", id, err)
	}
	fmt.Printf("Updated student %d\n", id)
	return nil
}

func runRosterRemove(cmd *cobra.Command, args []string) error {
	id, err := parseStudentArg(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.roster.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete student %d: %w", id, err)
	}
	a.log.Info("student removed", "student_id", id)
	fmt.Printf("Removed student %d with their face and attendance records\n", id)
	return nil
}
