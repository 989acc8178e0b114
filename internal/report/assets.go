package report

import _ "embed"

var (
	//go:embed templates/report.html.tmpl
	pageTemplate string

	//go:embed static/styles.css
	stylesCSS string

	//go:embed static/report.js
	reportJS string
)
