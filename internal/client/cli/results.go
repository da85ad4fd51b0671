package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/resultcache"
	"github.com/dmitrijs2005/ace/internal/client/router"
	"github.com/dmitrijs2005/ace/internal/client/services"
)

// errUsage is returned after a usage line was printed.
var errUsage = errors.New("usage")

// Search runs a web search and prints the results. They stay cached until
// the next search or clear, across restarts.
func (a *App) Search(ctx context.Context, args []string) error {
	a.nav.Visit(ctx, router.Location{Path: router.PathSearch})

	query := strings.Join(args, " ")
	e, err := a.searchService.Search(ctx, query)
	if err != nil {
		return a.resultError(ctx, "search", err)
	}
	a.printSearch(e)
	return nil
}

// Image generates images for a prompt and prints their URLs.
func (a *App) Image(ctx context.Context, args []string) error {
	a.nav.Visit(ctx, router.Location{Path: router.PathImage})

	prompt := strings.Join(args, " ")
	e, err := a.imageService.Generate(ctx, prompt)
	if err != nil {
		return a.resultError(ctx, "image", err)
	}
	a.printImages(e)
	return nil
}

// Save stores the cached result of a feature on the dashboard. The feature
// defaults to the one of the current view, then to search.
func (a *App) Save(ctx context.Context, args []string) error {
	feature, err := a.featureArg(args, "save")
	if err != nil {
		return err
	}

	var resp models.SaveResponse
	switch feature {
	case resultcache.FeatureImage:
		resp, err = a.imageService.Save(ctx)
	default:
		resp, err = a.searchService.Save(ctx)
	}
	if err != nil {
		return a.resultError(ctx, "save", err)
	}
	a.notifier.Info("Saved to dashboard (id %d).", resp.ID)
	return nil
}

// Clear forgets the cached query and results of a feature.
func (a *App) Clear(ctx context.Context, args []string) error {
	feature, err := a.featureArg(args, "clear")
	if err != nil {
		return err
	}
	switch feature {
	case resultcache.FeatureImage:
		a.imageService.Clear(ctx)
	default:
		a.searchService.Clear(ctx)
	}
	a.notifier.Info("Cleared %s results.", feature)
	return nil
}

// Last prints the cached result of a feature without asking the backend.
func (a *App) Last(ctx context.Context, args []string) error {
	feature, err := a.featureArg(args, "last")
	if err != nil {
		return err
	}
	switch feature {
	case resultcache.FeatureImage:
		a.printImages(a.imageService.Current(ctx))
	default:
		a.printSearch(a.searchService.Current(ctx))
	}
	return nil
}

func (a *App) featureArg(args []string, cmd string) (resultcache.Feature, error) {
	if len(args) > 0 {
		switch f := resultcache.Feature(args[0]); f {
		case resultcache.FeatureSearch, resultcache.FeatureImage:
			return f, nil
		}
		printlnFn(fmt.Sprintf("Usage: %s [search|image]", cmd))
		return "", errUsage
	}
	if a.nav.CurrentPath() == router.PathImage {
		return resultcache.FeatureImage, nil
	}
	return resultcache.FeatureSearch, nil
}

func (a *App) resultError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, services.ErrEmptyQuery):
		a.notifier.Error("Please enter something to %s.", op)
	case errors.Is(err, services.ErrNothingToSave):
		a.notifier.Error("Nothing to save yet.")
	case errors.Is(err, services.ErrAlreadySaved):
		a.notifier.Info("Already saved.")
	case errors.Is(err, services.ErrStaleResponse):
		a.logger.Debug(ctx, "stale response dropped", "command", op)
	default:
		a.report(ctx, op, err)
	}
	return err
}

func (a *App) printSearch(e services.SearchEntry) {
	if e.Query == "" && len(e.Results) == 0 {
		a.notifier.Info("No search results yet.")
		return
	}
	a.notifier.Info("Results for %q%s:", e.Query, savedMark(e.Saved))
	if len(e.Results) == 0 {
		a.notifier.Info("  (none)")
	}
	for i, r := range e.Results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		a.notifier.Info("%2d. %s", i+1, title)
		if r.URL != "" && r.URL != title {
			a.notifier.Info("    %s", r.URL)
		}
		if r.Summary != "" {
			a.notifier.Info("    %s", r.Summary)
		}
	}
}

func (a *App) printImages(e services.ImageEntry) {
	if e.Query == "" && len(e.Results) == 0 {
		a.notifier.Info("No images yet.")
		return
	}
	a.notifier.Info("Images for %q%s:", e.Query, savedMark(e.Saved))
	if len(e.Results) == 0 {
		a.notifier.Info("  (none)")
	}
	for i, img := range e.Results {
		a.notifier.Info("%2d. %s%s", i+1, img.URL, formatMeta(img.Meta))
	}
}

func savedMark(saved bool) string {
	if saved {
		return " [saved]"
	}
	return ""
}

func formatMeta(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
