package material

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Result is the outcome for one file; Err is per file and never aborts
// the batch.
type Result struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
	Err  error  `json:"-"`
}

// ExtractAll extracts every file with at most workers running at once.
// Results keep the input order.
func (r *Registry) ExtractAll(ctx context.Context, files []File, workers int) []Result {
	if workers <= 0 {
		workers = defaultWorkers
	}
	results := make([]Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			text, err := r.Extract(gctx, f)
			results[i] = Result{Name: f.Name, Text: text, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Combine joins the successful texts, each under its file name.
func Combine(results []Result) string {
	var parts []string
	for _, res := range results {
		if res.Err != nil || res.Text == "" {
			continue
		}
		parts = append(parts, "## "+res.Name+"\n"+res.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Failed lists the per-file errors as display strings.
func Failed(results []Result) []string {
	var out []string
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res.Err.Error())
		}
	}
	return out
}
