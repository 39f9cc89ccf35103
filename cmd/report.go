package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fetchbot/internal/store"
)

var flagLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show request totals by type and status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *store.Store) error {
			s, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), s)
			}

			out := cmd.OutOrStdout()
			render(out, "Totals", []string{"Metric", "Count"}, [][]string{
				{"users", strconv.Itoa(s.Users)},
				{"requests", strconv.Itoa(s.Requests)},
			})
			render(out, "By type", []string{"Type", "Requests"}, countRows(s.ByAction))
			render(out, "By status", []string{"Status", "Requests"}, countRows(s.ByStatus))
			return nil
		})
	},
}

var topDomainsCmd = &cobra.Command{
	Use:   "topdomains",
	Short: "Show the most requested domains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *store.Store) error {
			rows, err := st.TopDomains(cmd.Context(), flagLimit)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No domain data yet.")
				return nil
			}

			data := make([][]string, 0, len(rows))
			for _, r := range rows {
				data = append(data, []string{r.Domain, strconv.Itoa(r.Requests)})
			}
			render(cmd.OutOrStdout(), "Top domains", []string{"Domain", "Requests"}, data)
			return nil
		})
	},
}

var topVideosCmd = &cobra.Command{
	Use:   "topvideos",
	Short: "Show the most requested videos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(st *store.Store) error {
			rows, err := st.TopVideos(cmd.Context(), flagLimit)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos recorded yet.")
				return nil
			}

			data := make([][]string, 0, len(rows))
			for _, r := range rows {
				data = append(data, []string{shorten(r.Title, 40), r.Domain, strconv.Itoa(r.TimesUsed), r.URL})
			}
			render(cmd.OutOrStdout(), "Top videos", []string{"Title", "Domain", "Used", "URL"}, data)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{topDomainsCmd, topVideosCmd} {
		c.Flags().IntVarP(&flagLimit, "limit", "n", 10, "Number of rows")
	}
}

var titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// render writes a titled table: bordered and styled on a terminal, tab
// separated otherwise so the output stays scriptable.
func render(w io.Writer, title string, headers []string, rows [][]string) {
	if !isTerminal(w) {
		writePlain(w, headers, rows)
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, t.Render())
}

func writePlain(w io.Writer, headers []string, rows [][]string) {
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// countRows turns a count map into rows sorted by count, then key.
func countRows(m map[string]int) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(m[k])})
	}
	return rows
}

func shorten(s string, n int) string {
	if s == "" {
		return "Untitled"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
