package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	banner := fmt.Sprintf("%s embeddings, %s store, collection %s",
		a.Embedder.Name(), cfg.VectorStore.Type, cfg.VectorStore.Collection)
	m := tui.New(cmd.Context(), a.RAG, a.NewQuery, banner)
	_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
	return err
}
