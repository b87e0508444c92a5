package render

import (
	"bytes"
	"fmt"
	"html/template"

	"ahlan-reserve/internal/domain"
)

const HTMLContentType = "text/html; charset=utf-8"

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html lang="uz">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
@page { size: A4; margin: 20mm; }
body { margin: 0; font-family: "Times New Roman", serif; font-size: 12pt; line-height: 1.4; }
.contract { white-space: pre-wrap; margin: 0; font-family: inherit; }
</style>
</head>
<body>
<pre class="contract">{{.Text}}</pre>
{{- if .AutoPrint}}
<script>window.onload = () => window.print();</script>
{{- end}}
</body>
</html>
`))

// PrintHTML wraps the contract text in a page that opens the print dialog
// as soon as it loads. The text is escaped and laid out verbatim.
func PrintHTML(title, text string) (string, error) {
	return pageHTML(title, text, true)
}

// PageHTML is PrintHTML without the print trigger, for headless rendering.
func PageHTML(title, text string) (string, error) {
	return pageHTML(title, text, false)
}

func pageHTML(title, text string, autoPrint bool) (string, error) {
	var buf bytes.Buffer
	err := printTemplate.Execute(&buf, struct {
		Title     string
		Text      string
		AutoPrint bool
	}{title, text, autoPrint})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrContractRender, err)
	}
	return buf.String(), nil
}
