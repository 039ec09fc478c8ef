package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryModule      string
	queryWeek        int
	queryTopK        int
	querySelected    string
	queryTemperature float64
	queryMaxTokens   int
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from the indexed course content",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryModule, "module", "m", "", "only search this module")
	queryCmd.Flags().IntVarP(&queryWeek, "week", "w", 0, "only search this week")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	queryCmd.Flags().StringVar(&querySelected, "selected-text", "", "text the question is about")
	queryCmd.Flags().Float64Var(&queryTemperature, "temperature", -1, "sampling temperature (default from config)")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", 0, "answer length limit (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the answer as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	q := a.NewQuery(strings.Join(args, " "))
	q.ModuleFilter = queryModule
	q.WeekFilter = queryWeek
	q.SelectedText = querySelected
	if cmd.Flags().Changed("top-k") {
		q.TopK = queryTopK
	}
	if cmd.Flags().Changed("temperature") {
		q.Temperature = queryTemperature
	}
	if cmd.Flags().Changed("max-tokens") {
		q.MaxTokens = queryMaxTokens
	}

	ans, err := a.RAG.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		data, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, ans.Response)
	if len(ans.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sources:")
	for i, s := range ans.Sources {
		fmt.Fprintf(out, "  [%d] %s (%.2f)", i+1, s.Metadata.Title, s.Score)
		if s.Metadata.Module != "" {
			fmt.Fprintf(out, " %s, week %d", s.Metadata.Module, s.Metadata.Week)
		}
		fmt.Fprintf(out, "\n      %s\n", s.Content)
	}
	return nil
}
