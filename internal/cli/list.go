package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/star/assetlist/internal/cache"
	"github.com/star/assetlist/internal/catalog"
	"github.com/star/assetlist/internal/pipeline"
	"github.com/star/assetlist/internal/session"
	"github.com/star/assetlist/internal/view"
)

// Table messages shared with the web frontend.
const (
	emptyMessage  = "No results match your filters."
	failedMessage = "Failed to load assets. Please try again later."
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch the catalog once and print a page of it",
		Args:  cobra.NoArgs,
		Run:   runList,
	}

	cmd.Flags().StringP("category", "c", pipeline.CategoryAll, "Category: All Objects, Payloads, Debris, Rocket Bodies or Unknown")
	cmd.Flags().StringP("search", "s", "", "Match name or NORAD ID (case-insensitive substring)")
	cmd.Flags().StringSliceP("type", "t", nil, "Object type filter (repeatable)")
	cmd.Flags().StringSliceP("orbit", "o", nil, "Orbit code filter (repeatable)")
	cmd.Flags().String("sort", catalog.FieldName, "Sort field: "+strings.Join(pipeline.SortableFields, ", "))
	cmd.Flags().Bool("desc", false, "Sort descending")
	cmd.Flags().Int("offset", 0, "Rows to skip")
	cmd.Flags().IntP("limit", "l", 20, "Max rows (0 for all)")
	cmd.Flags().StringP("format", "f", "text", "Output format: text or json")

	RootCmd.AddCommand(cmd)
}

type listOptions struct {
	Category string
	Search   string
	Types    []string
	Orbits   []string
	Sort     pipeline.SortState
	Offset   int
	Limit    int
}

type categoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Label string `json:"label"`
}

type listResult struct {
	Categories     []categoryCount    `json:"categories"`
	ActiveCategory string             `json:"active_category"`
	Sort           pipeline.SortState `json:"sort"`
	Total          int                `json:"total"`
	Offset         int                `json:"offset"`
	Rows           []view.Row         `json:"rows"`
	FetchedAt      time.Time          `json:"fetched_at"`
}

func runList(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	search, _ := cmd.Flags().GetString("search")
	types, _ := cmd.Flags().GetStringSlice("type")
	orbits, _ := cmd.Flags().GetStringSlice("orbit")
	sortField, _ := cmd.Flags().GetString("sort")
	desc, _ := cmd.Flags().GetBool("desc")
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	if format != "text" && format != "json" {
		exitErr("format", fmt.Errorf("unknown format %q", format))
	}
	if offset < 0 || limit < 0 {
		exitErr("paging", fmt.Errorf("offset and limit must be non-negative"))
	}
	sortState := pipeline.SortState{Field: sortField, Direction: pipeline.Ascending}
	if desc {
		sortState.Direction = pipeline.Descending
	}
	if _, err := pipeline.ParseSortField(sortField); err != nil {
		exitErr("sort", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	logger := newLogger(os.Stderr, cfg.Log.Level)

	fetcher := catalog.NewFetcher(cfg.Upstream.Fetcher(), logger.With("component", "fetcher"))
	queryCache := cache.NewQueryCache(cfg.Cache.QueryCache(), fetcher, catalog.NewStore(), logger.With("component", "cache"))

	res, err := listCatalog(cmd.Context(), queryCache, listOptions{
		Category: category,
		Search:   search,
		Types:    types,
		Orbits:   orbits,
		Sort:     sortState,
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, failedMessage)
		exitErr("list", err)
	}

	if format == "json" {
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(b))
		return
	}
	if err := renderText(os.Stdout, res); err != nil {
		exitErr("render", err)
	}
}

// listCatalog runs the pipeline once. The "All Objects" collection is always
// loaded first so category counts are filled in; a narrower category is
// fetched alongside it and then replaces the collection.
func listCatalog(ctx context.Context, loader session.Loader, opts listOptions) (listResult, error) {
	if opts.Category == "" {
		opts.Category = pipeline.CategoryAll
	}
	cat, ok := pipeline.FindCategory(pipeline.DefaultCategories(), opts.Category)
	if !ok {
		return listResult{}, fmt.Errorf("unknown category %q", opts.Category)
	}

	allQuery := catalog.NewQuery(catalog.AllObjectTypes)
	catQuery := catalog.NewQuery(cat.ObjectTypes)

	var all, selected *catalog.Dataset
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ds, err := loader.Get(gctx, allQuery)
		all = ds
		return err
	})
	if cat.Name != pipeline.CategoryAll {
		g.Go(func() error {
			ds, err := loader.Get(gctx, catQuery)
			selected = ds
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return listResult{}, err
	}

	p := pipeline.New()
	p.OnCollectionChanged(all.Records)
	fetchedAt := all.FetchedAt
	if selected != nil {
		p.SelectCategory(cat.Name)
		p.OnCollectionChanged(selected.Records)
		fetchedAt = selected.FetchedAt
	}

	p.SetSearchTerm(opts.Search)
	if len(opts.Types) > 0 || len(opts.Orbits) > 0 {
		p.SetSelection(opts.Types, opts.Orbits)
		p.ApplyFilters()
	}
	if opts.Sort.Field != "" {
		if err := p.SetSort(opts.Sort); err != nil {
			return listResult{}, err
		}
	}

	rows := p.Rows()
	start := min(opts.Offset, len(rows))
	end := len(rows)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(rows))
	}

	cats := p.Categories()
	counts := make([]categoryCount, len(cats))
	for i, c := range cats {
		counts[i] = categoryCount{Name: c.Name, Count: c.Value, Label: view.CategoryLabel(c)}
	}

	return listResult{
		Categories:     counts,
		ActiveCategory: p.ActiveCategory(),
		Sort:           p.SortState(),
		Total:          len(rows),
		Offset:         start,
		Rows:           view.Slice(view.Range{Start: start, End: end}, view.RowAt(rows)),
		FetchedAt:      fetchedAt,
	}, nil
}

// renderText prints the category chips, the table and a paging footer.
func renderText(w io.Writer, res listResult) error {
	chips := make([]string, len(res.Categories))
	for i, c := range res.Categories {
		if c.Name == res.ActiveCategory {
			chips[i] = "[" + c.Label + "]"
		} else {
			chips[i] = c.Label
		}
	}
	fmt.Fprintln(w, strings.Join(chips, "  "))
	fmt.Fprintln(w)

	if len(res.Rows) == 0 {
		_, err := fmt.Fprintln(w, emptyMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(view.Columns))
	for i, col := range view.Columns {
		headers[i] = col.Title
		if col.Sortable {
			if arrow := view.SortIndicator(res.Sort, col.Field); arrow != "" {
				headers[i] += " " + arrow
			}
		}
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, r := range res.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.NoradCatID, r.Name, r.LaunchDate, r.Regime, r.Country, r.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	_, err := fmt.Fprintf(w, "rows %s-%s of %s, fetched %s\n",
		humanize.Comma(int64(res.Offset+1)),
		humanize.Comma(int64(res.Offset+len(res.Rows))),
		humanize.Comma(int64(res.Total)),
		humanize.Time(res.FetchedAt),
	)
	return err
}
