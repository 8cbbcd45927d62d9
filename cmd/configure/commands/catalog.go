package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MATHILDEdemariable/jourj/internal/questionnaire"
	"github.com/MATHILDEdemariable/jourj/internal/timeline"
)

// NewCatalogCmd creates the catalog command with validate and preview subcommands.
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the questionnaire catalog",
		Long:  "Validate a questionnaire catalog file or preview the timeline it generates",
	}
	cmd.AddCommand(newCatalogValidateCmd())
	cmd.AddCommand(newCatalogPreviewCmd())
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a questionnaire catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := questionnaire.LoadCatalog(path)
			if err != nil {
				return fmt.Errorf("catalog validation failed: %w", err)
			}

			byCategory := make(map[string]int)
			for _, q := range catalog.Questions {
				byCategory[string(q.Category)]++
			}

			fmt.Printf("Catalog is valid: %d question(s)\n", len(catalog.Questions))
			for category, count := range byCategory {
				fmt.Printf("  %s: %d\n", category, count)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "configs/questions.yaml", "Path to the catalog file")

	return cmd
}

func newCatalogPreviewCmd() *cobra.Command {
	var path string
	var answersPath string
	var eventDate string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the timeline generated from an answers file",
		Long:  "Load a catalog and a JSON answers file, build the timeline and print the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if answersPath == "" {
				return fmt.Errorf("--answers is required")
			}

			catalog, err := questionnaire.LoadCatalog(path)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			data, err := os.ReadFile(answersPath)
			if err != nil {
				return fmt.Errorf("failed to read answers file: %w", err)
			}

			var answers questionnaire.AnswerSet
			if err := json.Unmarshal(data, &answers); err != nil {
				return fmt.Errorf("failed to parse answers file: %w", err)
			}

			day, err := time.Parse("2006-01-02", eventDate)
			if err != nil {
				return fmt.Errorf("invalid --date (expected YYYY-MM-DD): %w", err)
			}

			activities, dual, err := catalog.Generate(uuid.New(), answers, day)
			if err != nil {
				return fmt.Errorf("failed to generate activities: %w", err)
			}

			built := timeline.NewBuilder(nil).Build(activities, dual)

			fmt.Printf("Generated timeline (%d activities", len(built))
			if dual {
				fmt.Printf(", dual ceremony")
			}
			fmt.Println("):")
			for _, a := range built {
				marker := " "
				if a.IsHighlight {
					marker = "*"
				}
				fmt.Printf("  %s %s - %s  %-12s %s (%d min)\n",
					marker,
					a.StartTime.Format("15:04"),
					a.EndTime.Format("15:04"),
					a.Category,
					a.Title,
					a.DurationMin,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "configs/questions.yaml", "Path to the catalog file")
	cmd.Flags().StringVar(&answersPath, "answers", "", "Path to a JSON answers file (required)")
	cmd.Flags().StringVar(&eventDate, "date", time.Now().Format("2006-01-02"), "Event date (YYYY-MM-DD)")

	return cmd
}
