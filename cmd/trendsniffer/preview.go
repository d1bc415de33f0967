package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/harunnryd/trendsniffer/internal/briefing"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Fetch feeds and print a briefing preview",
	Long:  `Pulls every configured source once, reconciles against the seen tracker and prints the rendered digest without delivering it or marking anything seen.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		mode, _ := cmd.Flags().GetString("mode")
		templateID, _ := cmd.Flags().GetString("template")

		store, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open preference store: %w", err)
		}
		defer store.Close()

		gen, err := buildGenerator(cfg, store)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		digest, snap := gen.Preview(ctx, templateID, mode)

		purple := lipgloss.Color("99")
		gray := lipgloss.Color("245")
		header := lipgloss.NewStyle().Foreground(purple).Bold(true)
		label := lipgloss.NewStyle().Foreground(gray)

		fmt.Println(header.Render("Briefing preview") + label.Render(" ("+briefing.NormalizeMode(mode)+" mode)"))
		fmt.Println(countsTable(digest).Render())
		fmt.Println(label.Render("Fetched " + snap.FetchedAt.Local().Format("2006-01-02 15:04")))
		fmt.Println()
		fmt.Println(digest.Text)
		return nil
	},
}

func countsTable(digest briefing.Digest) *table.Table {
	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")

	headerStyle := lipgloss.NewStyle().
		Foreground(purple).
		Bold(true).
		Align(lipgloss.Center).
		Padding(0, 1)
	cellStyle := lipgloss.NewStyle().
		Foreground(gray).
		Align(lipgloss.Center).
		Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("Signals", "Searches", "Videos", "Pending").
		Row(
			strconv.Itoa(digest.Counts.Signals),
			strconv.Itoa(digest.Counts.Searches),
			strconv.Itoa(digest.Counts.Videos),
			strconv.Itoa(digest.RawPendingTotal),
		)
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().String("mode", briefing.ModeNew, "digest mode (new or full)")
	previewCmd.Flags().String("template", "", "template ID (default: active template)")
}
