package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/loader"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/service"
	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/summarizer"
)

const summarySentences = 3

var (
	indexModule  string
	indexWeek    int
	indexTags    []string
	indexUpdate  bool
	indexID      string
	indexSummary bool
)

var indexCmd = &cobra.Command{
	Use:   "index <path>...",
	Short: "Index course files",
	Long: `Loads each file (text, markdown, HTML or PDF), splits it into chunks,
embeds them and stores them in the vector store under the given module and week.

With --update and --id, the stored chunks of that document are removed before
the file is indexed under the same identifier.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexModule, "module", "m", "", "course module of the files")
	indexCmd.Flags().IntVarP(&indexWeek, "week", "w", 0, "course week of the files")
	indexCmd.Flags().StringSliceVar(&indexTags, "tag", nil, "tag copied onto every chunk (repeatable)")
	indexCmd.Flags().BoolVar(&indexUpdate, "update", false, "replace an existing document")
	indexCmd.Flags().StringVar(&indexID, "id", "", "document identifier to replace with --update")
	indexCmd.Flags().BoolVar(&indexSummary, "summary", true, "print a short summary of each file")
	_ = indexCmd.MarkFlagRequired("module")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexUpdate && (indexID == "" || len(args) != 1) {
		return errors.New("--update needs --id and exactly one path")
	}
	if indexWeek < 0 {
		return errors.New("--week must not be negative")
	}
	if indexUpdate {
		if err := domain.ValidateDocumentID(indexID); err != nil {
			return err
		}
	}

	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	out := cmd.OutOrStdout()

	if indexUpdate {
		content, err := loader.LoadFile(args[0])
		if err != nil {
			return err
		}
		doc := service.NewDocument(filepath.Base(args[0]), content, args[0], indexModule, indexWeek, indexTags)
		doc.ID = indexID
		if err := printSummary(cmd, a.Summarizer, doc); err != nil {
			return err
		}
		if err := a.Indexer.UpdateDocument(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated document %s\n", doc.ID)
		return nil
	}

	var failed []error
	for _, path := range args {
		doc, err := a.Indexer.IndexFromSource(cmd.Context(), path, indexModule, indexWeek, indexTags)
		if err != nil {
			failed = append(failed, err)
			fmt.Fprintf(out, "  failed  %s\n", filepath.Base(path))
			continue
		}
		if err := printSummary(cmd, a.Summarizer, doc); err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s  %s\n", doc.ID, doc.Title)
	}
	fmt.Fprintf(out, "Indexed %d/%d documents\n", len(args)-len(failed), len(args))
	if len(failed) > 0 {
		return fmt.Errorf("%d documents failed to index: %w", len(failed), errors.Join(failed...))
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *summarizer.FrequencySummarizer, doc domain.Document) error {
	if !indexSummary {
		return nil
	}
	summary, err := s.Summarize(doc.Content, summarySentences)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n  %s\n", doc.Title, summary)
	return nil
}
