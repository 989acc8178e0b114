package report

import (
	"bytes"
	"fmt"
	"html/template"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/stats"
)

type pageData struct {
	Title              string
	Stats              stats.Stats
	Summary            template.HTML
	Tests              []testView
	Environment        map[string]string
	Metadata           ToolInfo
	GeneratedAt        string
	StartTime          string
	Duration           string
	JobID              string
	JobURL             string
	CompressedTests    string
	CompressedTimeline string
	CSS                template.CSS
	JS                 template.JS
}

type testView struct {
	*record.Result
	DescriptionHTML template.HTML
	Name            string
	CaseTitle       string
	CaseLink        string
}

func newTestView(r *record.Result) testView {
	v := testView{Result: r, Name: r.NodeID, DescriptionHTML: Markdown(r.Description)}
	if i := strings.LastIndex(r.NodeID, "::"); i >= 0 {
		v.Name = r.NodeID[i+2:]
	}
	v.CaseTitle, _ = r.Metadata["case_title"].(string)
	v.CaseLink, _ = r.Metadata["case_link"].(string)
	return v
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Markdown renders a test description to HTML. Raw HTML in the source is
// not passed through.
func Markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// ToolInfo describes the binary that produced the report.
type ToolInfo struct {
	Version   string
	GoVersion string
	Packages  map[string]string
}

// reportedModules are the dependencies listed in the report metadata.
var reportedModules = []string{
	"github.com/chromedp/chromedp",
	"github.com/stretchr/testify",
	"github.com/google/go-cmp",
	"github.com/spf13/cobra",
	"go.uber.org/zap",
}

// ReadToolInfo reads the build info of the running binary.
func ReadToolInfo() ToolInfo {
	info := ToolInfo{Version: "dev", Packages: map[string]string{}}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, dep := range bi.Deps {
		for _, m := range reportedModules {
			if dep.Path == m {
				info.Packages[m] = dep.Version
			}
		}
	}
	return info
}

var funcs = template.FuncMap{
	"seconds": func(v float64) string { return fmt.Sprintf("%.2fs", v) },
	"percent": func(n, total int) string {
		if total == 0 {
			return "0.0"
		}
		return fmt.Sprintf("%.1f", float64(n)/float64(total)*100)
	},
	"sortedKeys": func(m map[string]string) []string {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	},
	"outcomes": func() []record.Outcome { return record.Outcomes },
	"count":    func(s stats.Stats, o record.Outcome) int { return s.Count(o) },
	"screenshotURL": func(b64 string) template.URL {
		return template.URL("data:image/jpeg;base64," + b64)
	},
}
