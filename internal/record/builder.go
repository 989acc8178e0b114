package record

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultWorkerID identifies the coordinating (non-worker) process.
const DefaultWorkerID = "master"

// Test describes the test a record is built for.
type Test struct {
	NodeID      string
	Description string
	Markers     []string
	Meta        map[string]any
	Line        int // first line of the test function; 0 if unknown
	Attempt     int
}

// BrowserInfo is the browser a test ran against.
type BrowserInfo struct {
	Name    string
	Version string
}

// UnknownBrowser is recorded when a page is attached but cannot be probed.
var UnknownBrowser = BrowserInfo{Name: "Unknown", Version: "Unknown"}

// Builder fills the static parts of a Result.
type Builder struct {
	WorkerID   string
	GitHubBase string
	now        func() time.Time
}

// NewBuilder creates a Builder for the given worker and source link base.
func NewBuilder(workerID, githubBase string) *Builder {
	if workerID == "" {
		workerID = DefaultWorkerID
	}
	return &Builder{WorkerID: workerID, GitHubBase: githubBase, now: time.Now}
}

// New creates a record for test with the given outcome. The browser may be
// nil when no page is attached to the test.
func (b *Builder) New(test Test, outcome Outcome, browser *BrowserInfo) *Result {
	attempt := test.Attempt
	if attempt < 1 {
		attempt = 1
	}
	markers := test.Markers
	if markers == nil {
		markers = []string{}
	}
	return &Result{
		Timestamp:      Seconds(b.now()),
		NodeID:         test.NodeID,
		Outcome:        outcome,
		Description:    test.Description,
		Markers:        markers,
		Metadata:       ExtractMetadata(test.Meta),
		Environment:    Environment(browser),
		Logs:           []string{},
		WorkerID:       b.WorkerID,
		GitHubLink:     GitHubLink(b.GitHubBase, test.NodeID, test.Line),
		Phase:          PhaseCall,
		ExecutionCount: attempt,
	}
}

// GitHubLink builds a link to the test source: <base>/<file>#L<line>.
// The file is the part of the node id before the first "::".
func GitHubLink(base, nodeID string, line int) string {
	if base == "" {
		return ""
	}
	if line < 1 {
		line = 1
	}
	file, _, _ := strings.Cut(nodeID, "::")
	return fmt.Sprintf("%s/%s#L%d", strings.TrimRight(base, "/"), strings.TrimLeft(file, "/"), line)
}

// ExtractMetadata copies meta keywords into record metadata. Type values are
// stored by name so that the record stays JSON serializable.
func ExtractMetadata(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case reflect.Type:
			out[key] = v.Name()
		default:
			out[key] = v
		}
	}
	return out
}

// Environment returns the environment snapshot stored with every record.
func Environment(browser *BrowserInfo) map[string]string {
	env := map[string]string{
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "-" + runtime.GOARCH,
		"processor":  runtime.GOARCH,
	}
	if browser != nil {
		env["browser"] = titleCase(browser.Name)
		env["browser_version"] = browser.Version
	}
	return env
}

func titleCase(name string) string {
	if name == "" || name == UnknownBrowser.Name {
		return name
	}
	return cases.Title(language.English).String(name)
}
