// Package notionsync publishes DRE statements to a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/dvloznov/dre-engine/internal/logger"
	"github.com/jomei/notionapi"
)

// Result counts the page operations of a publish run.
type Result struct {
	Created  int
	Updated  int
	Archived int
	Failed   int
}

// PublishMonthlyDRE upserts one page per statement line and year, keyed by
// PageTitle. Duplicate pages sharing a title are archived, keeping the
// first one returned by the database. Page failures are logged and
// counted; only query failures abort the run.
func PublishMonthlyDRE(ctx context.Context, client NotionService, databaseID string, years []dre.YearPivot, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result

	log.Info().
		Int("years", len(years)).
		Bool("dry_run", dryRun).
		Msg("Publishing DRE to Notion")

	pages, err := queryAllPages(ctx, client, databaseID)
	if err != nil {
		return res, fmt.Errorf("PublishMonthlyDRE: %w", err)
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		title := pageTitle(page)
		if title == "" {
			continue
		}
		if _, dup := existing[title]; !dup {
			existing[title] = string(page.ID)
			continue
		}

		if dryRun {
			log.Info().Str("title", title).Str("page_id", string(page.ID)).Msg("[DRY RUN] Would archive duplicate page")
			res.Archived++
			continue
		}
		if err := client.ArchivePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("title", title).Str("page_id", string(page.ID)).Msg("Failed to archive duplicate page")
			res.Failed++
			continue
		}
		res.Archived++
	}

	for _, year := range years {
		for i, row := range year.Rows {
			title := PageTitle(year.Year, row.Label)
			props := RowToProperties(year.Year, i+1, row)
			pageID, found := existing[title]

			if dryRun {
				if found {
					log.Info().Str("title", title).Msg("[DRY RUN] Would update page")
					res.Updated++
				} else {
					log.Info().Str("title", title).Msg("[DRY RUN] Would create page")
					res.Created++
				}
				continue
			}

			if found {
				if _, err := client.UpdatePage(ctx, pageID, props); err != nil {
					log.Warn().Err(err).Str("title", title).Str("page_id", pageID).Msg("Failed to update page")
					res.Failed++
					continue
				}
				res.Updated++
				continue
			}

			page, err := client.CreatePage(ctx, databaseID, props)
			if err != nil {
				log.Warn().Err(err).Str("title", title).Msg("Failed to create page")
				res.Failed++
				continue
			}
			existing[title] = string(page.ID)
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("DRE published to Notion")

	return res, nil
}

// queryAllPages follows the query cursor until the database is exhausted.
func queryAllPages(ctx context.Context, client NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}
		all = append(all, resp.Results...)

		if !resp.HasMore {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}
