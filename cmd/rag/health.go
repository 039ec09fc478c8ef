package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/service"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the embedding provider and the vector store",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.Health.Check(cmd.Context())
	out := cmd.OutOrStdout()
	names := make([]string, 0, len(report.Services))
	for name := range report.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%-14s %s\n", name, report.Services[name])
	}
	fmt.Fprintf(out, "%-14s %s\n", "overall", report.Status)
	if report.Status != service.StatusHealthy {
		return fmt.Errorf("service is %s", report.Status)
	}
	return nil
}
