package cli

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/ace/internal/client/models"
	"github.com/dmitrijs2005/ace/internal/client/router"
	"github.com/dmitrijs2005/ace/internal/client/services"
)

// parseDashboardArgs reads [all|search|image] [page] [filter...]. Both the
// type and the page are optional; anything after them is the filter.
func parseDashboardArgs(args []string) models.DashboardFilter {
	f := models.DashboardFilter{Type: models.EntryTypeAll, Page: 1}
	if len(args) > 0 {
		switch t := models.EntryType(args[0]); t {
		case models.EntryTypeAll, models.EntryTypeSearch, models.EntryTypeImage:
			f.Type = t
			args = args[1:]
		}
	}
	if len(args) > 0 {
		if p, err := strconv.Atoi(args[0]); err == nil && p > 0 {
			f.Page = p
			args = args[1:]
		}
	}
	f.Query = strings.Join(args, " ")
	return f
}

func dashboardLocation(f models.DashboardFilter) router.Location {
	q := url.Values{}
	q.Set("type", string(f.Type))
	q.Set("page", strconv.Itoa(f.Page))
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	return router.Location{Path: router.PathDashboard, Query: q}
}

// enter visits loc and, when the guard sends the user to login, runs the
// login flow. It reports whether the command may proceed.
func (a *App) enter(ctx context.Context, loc router.Location) bool {
	d := a.nav.Visit(ctx, loc)
	if d.Allowed {
		return true
	}
	a.notifier.Notice("Please log in to continue to %s.", loc.Path)
	if err := a.Login(ctx); err != nil {
		return false
	}
	return a.nav.CurrentPath() == loc.Path
}

// Dashboard lists saved entries, newest first.
func (a *App) Dashboard(ctx context.Context, args []string) error {
	f := parseDashboardArgs(args)
	if !a.enter(ctx, dashboardLocation(f)) {
		return nil
	}

	page, err := a.dashboardService.List(ctx, f)
	if err != nil {
		a.report(ctx, "dashboard", err)
		return err
	}

	if len(page.Items) == 0 {
		a.notifier.Info("No saved entries.")
	}
	for _, it := range page.Items {
		line := fmt.Sprintf("%6d  %-6s  %s", it.ID, it.Type, it.Title)
		switch {
		case it.Snippet != nil && *it.Snippet != "":
			line += "  | " + *it.Snippet
		case it.ImageURL != nil && *it.ImageURL != "":
			line += "  | " + *it.ImageURL
		}
		a.notifier.Info("%s", line)
	}
	a.notifier.Info("Page %d of %d", page.Page, page.TotalPages)
	return nil
}

func entryArgs(args []string, cmd string) (string, int64, bool) {
	if len(args) != 2 {
		printlnFn(fmt.Sprintf("Usage: %s <search|image> <id>", cmd))
		return "", 0, false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		printlnFn(fmt.Sprintf("Usage: %s <search|image> <id>", cmd))
		return "", 0, false
	}
	return args[0], id, true
}

// Show prints one saved entry.
func (a *App) Show(ctx context.Context, args []string) error {
	t, id, ok := entryArgs(args, "show")
	if !ok {
		return errUsage
	}
	if !a.enter(ctx, router.Location{Path: fmt.Sprintf("%s/%s/%d", router.PathDashboard, t, id)}) {
		return nil
	}

	d, err := a.dashboardService.Get(ctx, t, id)
	if err != nil {
		a.report(ctx, "show", err)
		return err
	}

	switch v := d.Variant().(type) {
	case *models.SearchDetail:
		a.notifier.Info("%s (%s)", v.Title, v.CreatedAt)
		a.printSearch(searchEntry(v))
	case *models.ImageDetail:
		a.notifier.Info("%s (%s)", v.Title, v.CreatedAt)
		a.printImages(imageEntry(v))
	}
	return nil
}

// Delete removes one saved entry after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	t, id, ok := entryArgs(args, "delete")
	if !ok {
		return errUsage
	}
	if !a.enter(ctx, router.Location{Path: router.PathDashboard}) {
		return nil
	}

	yes, err := confirm(a.reader, fmt.Sprintf("Delete %s entry %d?", t, id), a.out)
	if err != nil || !yes {
		return err
	}
	if err := a.dashboardService.Delete(ctx, t, id); err != nil {
		a.report(ctx, "delete", err)
		return err
	}
	a.notifier.Info("Deleted.")
	return nil
}

// Cleanup removes every untitled entry after confirmation.
func (a *App) Cleanup(ctx context.Context) error {
	if !a.enter(ctx, router.Location{Path: router.PathDashboard}) {
		return nil
	}

	yes, err := confirm(a.reader, "Delete all untitled entries?", a.out)
	if err != nil || !yes {
		return err
	}
	res, err := a.dashboardService.CleanupUntitled(ctx)
	if err != nil {
		a.report(ctx, "cleanup", err)
		return err
	}
	a.notifier.Info("Removed %d search and %d image entries.", res.Deleted.Search, res.Deleted.Image)
	return nil
}

// Go moves to a view by path, subject to the guard.
func (a *App) Go(ctx context.Context, args []string) error {
	if len(args) != 1 {
		printlnFn("Usage: go <path>")
		return errUsage
	}
	loc, err := router.ParseLocation(args[0])
	if err != nil {
		a.notifier.Error("%v", err)
		return err
	}
	d := a.nav.Visit(ctx, loc)
	switch {
	case !d.Allowed:
		a.notifier.Notice("Please log in to continue to %s.", loc.Path)
		return a.Login(ctx)
	case d.Route.View == router.ViewNotFound:
		a.notifier.Error("Page not found: %s", loc.Path)
	}
	return nil
}

// Back returns to the previous view.
func (a *App) Back(ctx context.Context) error {
	d := a.nav.Back(ctx)
	if !d.Allowed {
		a.notifier.Notice("Please log in to continue to %s.", d.Redirect.From.Path)
		return a.Login(ctx)
	}
	return nil
}

func searchEntry(v *models.SearchDetail) services.SearchEntry {
	return services.SearchEntry{Query: v.Query, Results: v.Results}
}

func imageEntry(v *models.ImageDetail) services.ImageEntry {
	return services.ImageEntry{Query: v.Prompt, Results: v.Images}
}
