package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	validateQuery    string
	validateResponse string
	validateContext  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check whether a response is grounded in its context",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateQuery, "query", "", "the question")
	validateCmd.Flags().StringVar(&validateResponse, "response", "", "the answer to check")
	validateCmd.Flags().StringVar(&validateContext, "context", "", "the context the answer was generated from")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if validateResponse == "" {
		return errors.New("--response is required")
	}
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.RAG.Validate(validateQuery, validateResponse, validateContext) {
		fmt.Fprintln(cmd.OutOrStdout(), "grounded")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "not grounded")
	return nil
}
