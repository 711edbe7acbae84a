// Package report renders the static generate-report HTML page from the
// Local Catalog Index. The template-rendering approach is grounded on
// kerbaras-mangas/pkg/integrations/epub.go's chapterTemplate pattern
// (html/template parsed once, executed per render), generalized here
// from a single chapter's page grid to a cross-story summary table.
package report

import (
	"fmt"
	"html/template"
	"os"

	"github.com/joskode/wna/pkg/catalog"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Webnovel Archiver — Report</title>
    <style>
        body { font-family: sans-serif; margin: 2em; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #ccc; padding: 0.5em; text-align: left; }
        th { background: #f4f4f4; }
        .failed { color: #b00020; }
    </style>
</head>
<body>
    <h1>Webnovel Archiver — Report</h1>
    <table>
        <tr>
            <th>Title</th>
            <th>Author</th>
            <th>Total</th>
            <th>Active</th>
            <th>Archived</th>
            <th>Failed</th>
        </tr>
        {{range .Stories}}
        <tr>
            <td>{{.EffectiveTitle}}</td>
            <td>{{.OriginalAuthor}}</td>
            <td>{{.TotalChapters}}</td>
            <td>{{.ActiveChapters}}</td>
            <td>{{.ArchivedChapters}}</td>
            <td{{if gt .FailedChapters 0}} class="failed"{{end}}>{{.FailedChapters}}</td>
        </tr>
        {{end}}
    </table>
</body>
</html>`

type pageData struct {
	Stories []catalog.StorySummary
}

// Render writes the report HTML to outputPath, reading every story's
// summary from cat. It never touches progress.json directly, per
// SPEC_FULL's Local Catalog Index invariant.
func Render(cat *catalog.Catalog, outputPath string) error {
	stories, err := cat.ListStories()
	if err != nil {
		return fmt.Errorf("report: list stories: %w", err)
	}

	tmpl, err := template.New("report").Parse(pageTemplate)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", outputPath, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, pageData{Stories: stories}); err != nil {
		return fmt.Errorf("report: render %s: %w", outputPath, err)
	}
	return nil
}
