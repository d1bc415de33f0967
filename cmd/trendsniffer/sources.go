package main

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured RSS sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open preference store: %w", err)
		}
		defer store.Close()

		doc := store.Snapshot()

		purple := lipgloss.Color("99")
		gray := lipgloss.Color("245")
		lightGray := lipgloss.Color("241")

		headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
		oddRowStyle := lipgloss.NewStyle().Foreground(gray).Padding(0, 1)
		evenRowStyle := lipgloss.NewStyle().Foreground(lightGray).Padding(0, 1)

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(purple)).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case row%2 == 0:
					return evenRowStyle
				default:
					return oddRowStyle
				}
			}).
			Headers("ID", "Name", "Category", "Enabled")

		for _, src := range doc.RSSSources {
			enabled := "yes"
			if !src.Enabled {
				enabled = "no"
			}
			t.Row(src.ID, truncateString(src.Name, 32), src.Category, enabled)
		}

		fmt.Println(t.Render())
		return nil
	},
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
