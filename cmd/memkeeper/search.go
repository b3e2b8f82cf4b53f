package memkeeper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/memkeeper/memkeeper"
	"github.com/memkeeper/memkeeper/pkg/config"
	"github.com/memkeeper/memkeeper/pkg/logger"
	"github.com/memkeeper/memkeeper/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <project> [query...]",
	Short: "Search a project's knowledge graph",
	Long: `Search a project's knowledge graph and print the matching subgraph as
JSON. Multiple query terms are combined as a union.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var (
	searchFuzzy     bool
	searchThreshold float64
	searchTags      []string
	searchTagMode   string
	searchPage      int
	searchPageSize  int
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVar(&searchFuzzy, "fuzzy", false, "Use fuzzy similarity matching")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "Similarity threshold in (0, 1]; 0 uses the configured default")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "Filter by exact tag (repeatable); overrides the text query")
	searchCmd.Flags().StringVar(&searchTagMode, "tag-mode", "", "Tag match mode (any, all)")
	searchCmd.Flags().IntVar(&searchPage, "page", -1, "Zero-based page number; -1 disables pagination")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", 20, "Page size when paginating")

	searchCmd.Flags().String("db-driver", "", "Database driver (badger, postgres)")
	searchCmd.Flags().String("db-uri", "", "Badger path (or :memory:), postgres DSN")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		cfg.Database.Driver = v
	}
	if v, _ := cmd.Flags().GetString("db-uri"); v != "" {
		cfg.Database.URI = v
	}
	log := logger.New(cfg.Log)
	if err := cfg.Validate(log); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	client, err := memkeeper.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize memkeeper: %w", err)
	}
	defer client.Close()

	project, queries := args[0], args[1:]

	opts := types.SearchOptions{
		FuzzyThreshold: searchThreshold,
		ExactTags:      searchTags,
		TagMatchMode:   types.TagMatchMode(searchTagMode),
	}
	if searchFuzzy {
		opts.SearchMode = types.SearchModeFuzzy
	}

	ctx := context.Background()

	var result any
	if searchPage >= 0 {
		req := types.PageRequest{Page: searchPage, PageSize: searchPageSize}
		result, err = client.SearchPaginated(ctx, project, queries, req, opts)
	} else {
		result, err = client.Search(ctx, project, queries, opts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
