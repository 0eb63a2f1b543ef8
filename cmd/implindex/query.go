package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"implindex/internal/extractor"
	"implindex/internal/graph"
	"implindex/internal/index"
	"implindex/internal/resolver"
	"implindex/internal/search"
)

var (
	searchTypes    []string
	searchLimit    int
	searchMinScore float64
	suggestLimit   int
	chainMermaid   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over states, transitions, validations and conditions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, cfg, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		opts := search.Options{Limit: cfg.Search.Limit, MinScore: cfg.Search.MinScore}
		if searchLimit > 0 {
			opts.Limit = searchLimit
		}
		if searchMinScore != 0 {
			opts.MinScore = searchMinScore
		}
		for _, t := range searchTypes {
			opts.Types = append(opts.Types, index.DocType(t))
		}

		results := search.Search(idx, strings.Join(args, " "), opts)
		if jsonOut {
			return printJSON(results)
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, r := range results {
			fmt.Printf("%6.1f  %-10s %s\n", r.Score, r.Type, r.ID)
			if line := resultLine(r.Document); line != "" {
				fmt.Printf("        %s\n", line)
			}
		}
		return nil
	},
}

func resultLine(doc index.Document) string {
	switch d := doc.(type) {
	case *index.TransitionDocument:
		return fmt.Sprintf("%s --%s--> %s", d.From, d.Event, d.To)
	case *index.ConditionDocument:
		return d.Field
	default:
		return d.DocLabel()
	}
}

var ticketCmd = &cobra.Command{
	Use:   "ticket <id>",
	Short: "List validations referencing a ticket id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		docs := search.FindByTicket(idx, args[0])
		if jsonOut {
			return printJSON(docs)
		}
		for _, v := range docs {
			fmt.Printf("%s  %s\n", v.ID, v.Label)
		}
		fmt.Printf("🎫 %d validations\n", len(docs))
		return nil
	},
}

var eventCmd = &cobra.Command{
	Use:   "event <name>",
	Short: "List transitions fired by an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		docs := search.FindByEvent(idx, args[0])
		if jsonOut {
			return printJSON(docs)
		}
		for _, t := range docs {
			fmt.Printf("%s --%s--> %s\n", t.From, t.Event, t.To)
		}
		return nil
	},
}

var fieldCmd = &cobra.Command{
	Use:   "field <pattern>",
	Short: "List conditions on a field (path, last segment, glob or substring)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		docs := search.FindByCondition(idx, args[0])
		if jsonOut {
			return printJSON(docs)
		}
		for _, c := range docs {
			fmt.Printf("%-40s %s %s %v\n", c.State, c.Field, c.Operator, c.Value)
		}
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state <id>",
	Short: "Show everything indexed about one state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		d, ok := search.GetStateDetails(idx, args[0])
		if !ok {
			return fmt.Errorf("state %q not found", args[0])
		}
		if jsonOut {
			return printJSON(d)
		}
		fmt.Printf("📌 %s (%s)\n", d.State.ID, d.State.StatusLabel)
		fmt.Printf("  file: %s\n", d.State.SourceFile)
		for _, t := range d.Outgoing {
			fmt.Printf("  -> %s on %s\n", t.To, t.Event)
		}
		for _, t := range d.Incoming {
			fmt.Printf("  <- %s on %s\n", t.From, t.Event)
		}
		fmt.Printf("  validations: %d, conditions: %d\n", len(d.Validations), len(d.Conditions))
		return nil
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain <state>",
	Short: "Resolve the prerequisite chain leading to a state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		chain := resolver.ChainFor(idx, args[0])
		if jsonOut {
			return printJSON(chain)
		}
		if chain.Status == index.ChainNotFound {
			return fmt.Errorf("state %q not found", args[0])
		}
		if chainMermaid {
			fmt.Print(graph.MermaidChain(chain.Steps))
			return nil
		}
		fmt.Println(strings.Join(chain.Steps, " -> "))
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <prefix>",
	Short: "Autocomplete a search term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		out := search.Suggest(idx, args[0], suggestLimit)
		if jsonOut {
			return printJSON(out)
		}
		for _, s := range out {
			fmt.Printf("%-30s %d\n", s.Term, s.Documents)
		}
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the state graph as a mermaid diagram",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := newSync()
		if err != nil {
			return err
		}
		g, err := s.Graph()
		if err != nil {
			return fmt.Errorf("%w (run `implindex scan` first)", err)
		}
		summary := g.Summarize()
		if jsonOut {
			return printJSON(map[string]any{
				"states":     g.States(),
				"edges":      g.Edges,
				"unresolved": g.Unresolved,
				"summary":    summary,
			})
		}
		fmt.Print(g.Mermaid())
		fmt.Printf("\n🔗 %d states, %d transitions", summary.States, summary.Edges)
		for _, reason := range []graph.UnresolvedReason{graph.ReasonNoCandidate, graph.ReasonEmptyTarget} {
			if n := summary.Unresolved[reason]; n > 0 {
				fmt.Printf(", %d unresolved (%s)", n, reason)
			}
		}
		fmt.Println()
		for _, d := range summary.Degrees {
			fmt.Printf("  %-30s in=%d out=%d\n", d.State, d.Incoming, d.Outgoing)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show build statistics of the current index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(idx.Stats)
		}
		st := idx.Stats
		fmt.Printf("📊 %s (built %s)\n", idx.Root, idx.BuiltAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  files: %d seen, %d indexed, %d skipped, %d errors\n", st.FilesSeen, st.FilesIndexed, st.FilesSkipped, st.Errors)
		for _, q := range []extractor.Quality{extractor.QualityLiteral, extractor.QualityRegex, extractor.QualityEmpty} {
			fmt.Printf("  quality %s: %d\n", q, st.ByQuality[q])
		}
		for _, t := range index.AllTypes {
			fmt.Printf("  %s documents: %d\n", t, len(idx.Documents(t)))
		}
		fmt.Printf("  terms: %d, duplicates dropped: %d, took %v\n", st.Terms, st.DuplicatesDropped, st.Duration)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "Restrict to document types (state, transition, validation, condition)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "Minimum score (negative disables the threshold)")
	chainCmd.Flags().BoolVar(&chainMermaid, "mermaid", false, "Render the chain as a mermaid diagram")
	suggestCmd.Flags().IntVarP(&suggestLimit, "limit", "n", search.DefaultSuggestLimit, "Maximum number of suggestions")
}
