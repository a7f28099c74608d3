package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face recognition attendance for school classes",
	Long: `Face Attendance enrolls one face embedding per student and recognizes
students from camera frames, marking each student present at most once
per class and day.

Embeddings are computed by an external face embedding server and stored
in PostgreSQL with pgvector. The roster can be synced from the school
information system.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
