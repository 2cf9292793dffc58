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
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/pdftran/internal/artifact"
	"github.com/valpere/pdftran/internal/chunker"
	"github.com/valpere/pdftran/internal/document"
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "Show the table of contents and the resulting segments",
	Long: `Print the bookmark hierarchy of a PDF and the segments a run would
produce in the selected mode, without writing anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Input == "" {
			return errors.New("input is required")
		}
		mode, err := chunker.ParseMode(cfg.Mode)
		if err != nil {
			return err
		}

		doc, err := document.NewPDF().Open(cfg.Input)
		if err != nil {
			return err
		}
		defer doc.Close()

		bookmarks, err := doc.Bookmarks()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot read bookmarks: %v\n", err)
		}
		if len(bookmarks) == 0 {
			fmt.Println("No bookmarks found.")
		}
		for _, b := range bookmarks {
			indent := strings.Repeat("  ", max(b.Level-1, 0))
			fmt.Printf("%s- %s (Page %d)\n", indent, b.Title, b.Page)
		}

		segments, err := chunker.Resolve(doc, mode, chunker.Options{Marker: cfg.Marker})
		if err != nil {
			return err
		}

		fmt.Printf("\nSegments (%s mode, %d pages):\n", mode, doc.PageCount())
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tPAGES\tCOUNT\tFILE")
		for _, s := range segments {
			fmt.Fprintf(w, "%d\t%d-%d\t%d\t%s\n",
				s.Index, s.StartPage+1, s.EndPage+1, s.Pages(), artifact.Name(s.Index, s.Title))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(bookmarksCmd)

	bookmarksCmd.Flags().StringP("input", "i", "", "Input PDF (required)")
	bookmarksCmd.Flags().StringP("mode", "m", string(chunker.ModeBookmark), "Chunking mode: bookmark, chapter or full")
	bookmarksCmd.Flags().String("marker", chunker.DefaultMarker, "Term that starts a segment in chapter mode")
}
