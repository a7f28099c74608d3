package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <directory>",
	Short: "Enroll faces for many students from a directory of images",
	Long: `Enroll every image in a directory (recursively). The file name without
extension identifies the student: first as the external id from the school
information system, then as a unique student name ("jan_novak.jpg").

Files that match no student or several students are skipped.

Examples:
  face-attendance enroll-dir ./photos/7A
  face-attendance enroll-dir ./photos --workers 8 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().Int("workers", constants.EnrollWorkers, "Number of parallel workers")
	enrollDirCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// EnrollDirFailure describes one file that could not be enrolled.
type EnrollDirFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// EnrollDirResult represents the result of a bulk enrollment.
type EnrollDirResult struct {
	Files         int                `json:"files"`
	Enrolled      int                `json:"enrolled"`
	Replaced      int                `json:"replaced"`
	Unmatched     int                `json:"unmatched"`
	Failed        int                `json:"failed"`
	Failures      []EnrollDirFailure `json:"failures,omitempty"`
	DurationMs    int64              `json:"duration_ms"`
	DurationHuman string             `json:"duration_human,omitempty"`
}

// collectImages lists image files under dir, sorted by path.
func collectImages(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if constants.ImageExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	workers := mustGetInt(cmd, "workers")
	jsonOutput := mustGetBool(cmd, "json")
	if workers < 1 {
		workers = 1
	}

	ctx := context.Background()
	startTime := time.Now()

	files, err := collectImages(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		if jsonOutput {
			return outputJSON(EnrollDirResult{})
		}
		fmt.Println("No images found.")
		return nil
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		fmt.Printf("Found %d images to enroll\n\n", len(files))
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("faces"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var (
		enrolled  int64
		replaced  int64
		unmatched int64
		mu        sync.Mutex
		failures  []EnrollDirFailure
	)
	fail := func(file string, err error) {
		mu.Lock()
		failures = append(failures, EnrollDirFailure{File: file, Error: err.Error()})
		mu.Unlock()
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for _, file := range files {
		wg.Add(1)
		go func(file string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()
			if bar != nil {
				defer bar.Add(1)
			}

			student, err := roster.MatchStudent(ctx, a.roster, roster.LabelFromPath(file))
			if err != nil {
				if errors.Is(err, roster.ErrNoStudentMatch) || errors.Is(err, roster.ErrAmbiguousName) {
					atomic.AddInt64(&unmatched, 1)
				}
				fail(file, err)
				return
			}

			image, err := os.ReadFile(file)
			if err != nil {
				fail(file, err)
				return
			}

			res, err := a.service.RegisterFace(ctx, image, student.ID)
			if err != nil {
				fail(file, fmt.Errorf("%s: %w", student.FullName, err))
				return
			}
			atomic.AddInt64(&enrolled, 1)
			if res.Replaced {
				atomic.AddInt64(&replaced, 1)
			}
		}(file)
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].File < failures[j].File })
	duration := time.Since(startTime)
	result := EnrollDirResult{
		Files:         len(files),
		Enrolled:      int(enrolled),
		Replaced:      int(replaced),
		Unmatched:     int(unmatched),
		Failed:        len(failures) - int(unmatched),
		Failures:      failures,
		DurationMs:    duration.Milliseconds(),
		DurationHuman: formatDuration(duration),
	}

	if jsonOutput {
		result.DurationHuman = ""
		return outputJSON(result)
	}

	fmt.Println("\nEnrollment complete!")
	fmt.Printf("  Images:    %d\n", result.Files)
	fmt.Printf("  Enrolled:  %d (%d replaced)\n", result.Enrolled, result.Replaced)
	if result.Unmatched > 0 {
		fmt.Printf("  Unmatched: %d\n", result.Unmatched)
	}
	if result.Failed > 0 {
		fmt.Printf("  Failed:    %d\n", result.Failed)
	}
	fmt.Printf("  Duration:  %s\n", result.DurationHuman)

	for _, f := range result.Failures {
		fmt.Printf("  - %s: %s\n", f.File, f.Error)
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
