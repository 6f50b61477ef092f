package parser

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mars-scraper/logger"
	"mars-scraper/models"
)

// FactsExtractor reads the Mars facts table. It fetches directly and never
// touches the browser session, so a failed fetch falls back like a missing table.
type FactsExtractor struct {
	url      string
	fallback models.FactsPayload
}

// NewFactsExtractor creates a FactsExtractor
func NewFactsExtractor(url string, fallback models.FactsPayload) *FactsExtractor {
	return &FactsExtractor{url: url, fallback: fallback}
}

func (e *FactsExtractor) Name() models.TaskName { return models.TaskFacts }

func (e *FactsExtractor) Fallback() models.Payload { return e.fallback }

func (e *FactsExtractor) Extract(ctx context.Context, env *Env) (models.TaskResult, error) {
	visitedAt := env.now()
	page, err := env.Fetcher.Fetch(ctx, e.url)
	if err != nil {
		logger.Log.Warn().Err(err).Str("url", e.url).Msg("facts page unavailable")
		return miss(e.Name(), visitedAt, e.fallback), nil
	}

	payload, ok := ParseFacts(page)
	if !ok {
		return miss(e.Name(), visitedAt, e.fallback), nil
	}
	return success(e.Name(), visitedAt, payload), nil
}

// ParseFacts re-renders the data rows of the first table on the page as a
// bordered dataframe table. Header rows are dropped.
func ParseFacts(page string) (models.FactsPayload, bool) {
	doc, ok := newDocument(page)
	if !ok {
		return models.FactsPayload{}, false
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return models.FactsPayload{}, false
	}

	rows := tableRows(table)
	if len(rows) == 0 {
		return models.FactsPayload{}, false
	}

	rendered, err := renderTable(rows)
	if err != nil {
		return models.FactsPayload{}, false
	}
	return models.FactsPayload{TableHTML: rendered}, true
}

// tableRows collects the cell texts of every data row. The HTML parser
// always places rows inside a row group, so only tbody and tfoot are read.
func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.ChildrenFiltered("tbody, tfoot").ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			return
		}
		// a row made only of th cells is a header
		if cells.Length() == cells.Filter("th").Length() {
			return
		}

		row := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
		})
		rows = append(rows, row)
	})
	return rows
}

func renderTable(rows [][]string) (string, error) {
	table := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Table,
		Data:     "table",
		Attr: []html.Attribute{
			{Key: "border", Val: "1"},
			{Key: "class", Val: "dataframe"},
		},
	}
	tbody := element(atom.Tbody)
	table.AppendChild(tbody)

	for _, row := range rows {
		tr := element(atom.Tr)
		for _, cell := range row {
			td := element(atom.Td)
			td.AppendChild(&html.Node{Type: html.TextNode, Data: cell})
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}

	var sb strings.Builder
	if err := html.Render(&sb, table); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}
