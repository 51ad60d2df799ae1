package notionsync

import (
	"fmt"
	"strings"

	"github.com/dvloznov/dre-engine/internal/domain"
	"github.com/dvloznov/dre-engine/internal/dre"
	"github.com/jomei/notionapi"
)

// Database property names. The target database needs a title property
// named PropTitle, number properties for the year, the order, each month
// key and the total, and a select for the line kind.
const (
	PropTitle = "Linha"
	PropYear  = "Ano"
	PropOrder = "Ordem"
	PropKind  = "Tipo"
	PropTotal = "Total"
)

// PageTitle is the upsert key of the page holding one statement line.
func PageTitle(year int, label string) string {
	return fmt.Sprintf("DRE %d - %s", year, label)
}

// RowToProperties converts one statement line to page properties. order
// keeps the statement order when the database is sorted by it.
func RowToProperties(year, order int, row dre.PivotRow) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: PageTitle(year, row.Label)},
				},
			},
		},
		PropYear:  notionapi.NumberProperty{Number: float64(year)},
		PropOrder: notionapi.NumberProperty{Number: float64(order)},
		PropKind:  notionapi.SelectProperty{Select: notionapi.Option{Name: string(row.Line)}},
		PropTotal: notionapi.NumberProperty{Number: row.Total},
	}
	for _, m := range domain.Months {
		props[string(m)] = notionapi.NumberProperty{Number: row.Value(m)}
	}
	return props
}

// pageTitle reads the plain-text title of a page, or "".
func pageTitle(page notionapi.Page) string {
	var parts []notionapi.RichText
	switch p := page.Properties[PropTitle].(type) {
	case *notionapi.TitleProperty:
		parts = p.Title
	case notionapi.TitleProperty:
		parts = p.Title
	default:
		return ""
	}

	var b strings.Builder
	for _, rt := range parts {
		switch {
		case rt.PlainText != "":
			b.WriteString(rt.PlainText)
		case rt.Text != nil:
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}
