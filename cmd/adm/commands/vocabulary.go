// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"fmt"

	"simsim/internal/models"
	"simsim/internal/observability"
	"simsim/internal/services"
	contextutils "simsim/internal/utils"

	"github.com/spf13/cobra"
)

// VocabularyCommands returns the vocabulary management commands
func VocabularyCommands(vocabularyService services.VocabularyServiceInterface, syncService services.SyncServiceInterface, logger *observability.Logger) *cobra.Command {
	vocabCmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "Vocabulary corpus management commands",
		Long: `Vocabulary corpus management commands.

Available commands:
  upsert    - Insert or replace a translation
  get       - Show the translation for a concept and language
  list      - List concept identifiers
  sync      - Repair the quiz entry read model`,
	}

	vocabCmd.AddCommand(upsertCmd(vocabularyService, logger))
	vocabCmd.AddCommand(getCmd(vocabularyService, logger))
	vocabCmd.AddCommand(listCmd(vocabularyService, logger))
	vocabCmd.AddCommand(syncCmd(syncService, logger))

	return vocabCmd
}

// upsertCmd returns the upsert command
func upsertCmd(vocabularyService services.VocabularyServiceInterface, logger *observability.Logger) *cobra.Command {
	var (
		concept   string
		language  string
		text      string
		hint      string
		isCorrect bool
	)

	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Insert or replace a translation",
		Long: `Insert or replace the translation for a concept and language.

Correct Arabic and Hebrew texts are checked against each other: their trimmed
character counts must match once both sides exist.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			lang, err := models.ParseLanguage(language)
			if err != nil {
				return err
			}

			saved, err := vocabularyService.UpsertTranslation(ctx, &models.Translation{
				Concept:   concept,
				Language:  lang,
				Text:      text,
				Hint:      hint,
				IsCorrect: isCorrect,
			})
			if err != nil {
				logger.Error(ctx, "Translation upsert failed", err, map[string]interface{}{"concept": concept})
				return err
			}

			fmt.Printf("Saved translation %d: %s [%s] %q\n", saved.ID, saved.Concept, saved.Language, saved.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&concept, "concept", "", "Concept identifier (required)")
	cmd.Flags().StringVar(&language, "language", "", "Language code: ar, he or en (required)")
	cmd.Flags().StringVar(&text, "text", "", "Translation text (required)")
	cmd.Flags().StringVar(&hint, "hint", "", "Optional hint")
	cmd.Flags().BoolVar(&isCorrect, "correct", true, "Whether this is the correct translation")
	_ = cmd.MarkFlagRequired("concept")
	_ = cmd.MarkFlagRequired("language")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

// getCmd returns the get command
func getCmd(vocabularyService services.VocabularyServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "get <concept> <language>",
		Short: "Show the translation for a concept and language",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			lang, err := models.ParseLanguage(args[1])
			if err != nil {
				return err
			}

			translation, err := vocabularyService.GetTranslation(ctx, args[0], lang)
			if err != nil {
				if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
					fmt.Printf("No translation for %s [%s]\n", args[0], lang)
					return nil
				}
				logger.Error(ctx, "Failed to load translation", err, map[string]interface{}{"concept": args[0]})
				return err
			}

			fmt.Printf("%s [%s]: %q correct=%t hint=%q\n",
				translation.Concept, translation.Language, translation.Text, translation.IsCorrect, translation.Hint)
			return nil
		},
	}
}

// listCmd returns the list command
func listCmd(vocabularyService services.VocabularyServiceInterface, logger *observability.Logger) *cobra.Command {
	var (
		language    string
		correctOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List concept identifiers",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			filter := models.ConceptFilter{CorrectOnly: correctOnly}
			if language != "" {
				lang, err := models.ParseLanguage(language)
				if err != nil {
					return err
				}
				filter.Language = lang
			}

			concepts, err := vocabularyService.ListConcepts(ctx, filter)
			if err != nil {
				logger.Error(ctx, "Failed to list concepts", err)
				return err
			}

			for _, concept := range concepts {
				fmt.Println(concept)
			}
			fmt.Printf("%d concepts\n", len(concepts))
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Only concepts with a row in this language")
	cmd.Flags().BoolVar(&correctOnly, "correct-only", false, "Only concepts with correct rows")

	return cmd
}

// syncCmd returns the sync command
func syncCmd(syncService services.SyncServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Repair the quiz entry read model",
		Long: `Rebuild quiz entries for every concept that has both a correct Arabic and a
correct Hebrew translation. Per-concept failures are reported but do not stop
the pass.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			report, err := syncService.SyncAll(ctx)
			if err != nil {
				logger.Error(ctx, "Repair pass failed", err)
				return err
			}

			fmt.Printf("Repair pass: %d synced, %d skipped, %d failed\n",
				report.Synced, report.Skipped, report.Failed)
			return nil
		},
	}
}
