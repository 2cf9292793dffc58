/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	historyDBPath  string
	historySegment string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the translation journal",
	Long: `List, summarise, and clear the SQLite journal of translate attempts
written by "pdftran run --db <path>".

The journal is informational only: whether a segment still needs work is
always decided by the files on disk.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded translate attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(dbPathOr(historyDBPath))
		if err != nil {
			return err
		}
		defer db.Close()

		attempts, err := db.ListAttempts(context.Background(), historySegment, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list attempts: %w", err)
		}

		if len(attempts) == 0 {
			fmt.Println("No attempts recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tINDEX\tSEGMENT\tLANG\tSERVICE\tMODEL\tPAYLOAD\tLATENCY\tERROR")
		for _, a := range attempts {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%dms\t%s\n",
				a.Timestamp.Format("2006-01-02 15:04"), a.Index, a.Segment, a.TargetLang,
				a.Service, a.Model, a.PayloadKind, a.LatencyMs, truncate(a.Error, 60))
		}
		return w.Flush()
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show journal statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(dbPathOr(historyDBPath))
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total attempts: %d\n", stats.TotalAttempts)
		fmt.Printf("Succeeded:      %d\n", stats.Succeeded)
		fmt.Printf("Failed:         %d\n", stats.Failed)
		fmt.Printf("Segments:       %d\n", stats.Segments)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(dbPathOr(historyDBPath))
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearAttempts(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clear journal: %w", err)
		}
		fmt.Printf("Cleared %d entries from the journal.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().StringVar(&historyDBPath, "db", "", "Database path (default "+defaultDBPath+")")

	historyListCmd.Flags().StringVar(&historySegment, "segment", "", "Only show attempts for this segment (e.g. 02_Body)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum number of attempts (0 for all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyClearCmd)
}
