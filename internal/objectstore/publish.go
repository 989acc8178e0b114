package objectstore

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// LatestKey is the key the most recent report is also uploaded under.
const LatestKey = "latest/report.html"

// Upload is one set of files to publish for a run.
type Upload struct {
	RunID  string
	Report string
	// Extra files are uploaded next to the report, under files/.
	Extra []string
	// Latest also uploads the report under LatestKey.
	Latest bool
}

// RunKey returns the key of name inside the folder of run runID.
func RunKey(runID, name string) string {
	return path.Join("runs", runID, name)
}

// Publish uploads the report and the extra files of u. It stops at the
// first failed upload and returns the objects uploaded so far.
func Publish(ctx context.Context, p Provider, u Upload, log logr.Logger) ([]ObjectInfo, error) {
	if u.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	type item struct{ key, local string }
	items := []item{{RunKey(u.RunID, filepath.Base(u.Report)), u.Report}}
	for _, f := range u.Extra {
		items = append(items, item{RunKey(u.RunID, path.Join("files", filepath.Base(f))), f})
	}
	if u.Latest {
		items = append(items, item{LatestKey, u.Report})
	}

	var uploaded []ObjectInfo
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}
		info, err := p.Upload(ctx, it.key, it.local)
		if err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", it.local, err)
		}
		log.V(1).Info("uploaded", "key", info.Key, "bytes", info.Size)
		uploaded = append(uploaded, info)
	}
	return uploaded, nil
}

// Prune deletes every object under the run folder of runID.
func Prune(ctx context.Context, p Provider, runID string) (int, error) {
	if runID == "" {
		return 0, fmt.Errorf("run id is required")
	}
	objects, err := p.List(ctx, RunKey(runID, "")+"/")
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, obj := range objects {
		if err := p.Delete(ctx, obj.Key); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", obj.Key, err)
		}
		deleted++
	}
	return deleted, nil
}

// PublishedRun summarizes the objects stored for one run.
type PublishedRun struct {
	ID           string    `json:"id"`
	Objects      int       `json:"objects"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified,omitzero"`
}

// ListRuns returns the published runs, most recently modified first.
func ListRuns(ctx context.Context, p Provider) ([]PublishedRun, error) {
	objects, err := p.List(ctx, "runs/")
	if err != nil {
		return nil, err
	}
	byID := map[string]*PublishedRun{}
	for _, obj := range objects {
		rest, ok := strings.CutPrefix(obj.Key, "runs/")
		if !ok {
			continue
		}
		id, _, ok := strings.Cut(rest, "/")
		if !ok || id == "" {
			continue
		}
		run := byID[id]
		if run == nil {
			run = &PublishedRun{ID: id}
			byID[id] = run
		}
		run.Objects++
		run.Size += obj.Size
		if obj.LastModified.After(run.LastModified) {
			run.LastModified = obj.LastModified
		}
	}
	runs := make([]PublishedRun, 0, len(byID))
	for _, r := range byID {
		runs = append(runs, *r)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].LastModified.Equal(runs[j].LastModified) {
			return runs[i].LastModified.After(runs[j].LastModified)
		}
		return runs[i].ID > runs[j].ID
	})
	return runs, nil
}

// Retain selects the runs to delete so that n runs remain: the published
// runs named in keep first, then the most recent of the others. runs must
// be ordered most recent first, as returned by ListRuns.
func Retain(runs []PublishedRun, keep []string, n int) []string {
	published := make(map[string]bool, len(runs))
	for _, r := range runs {
		published[r.ID] = true
	}
	kept := map[string]bool{}
	for _, id := range keep {
		if len(kept) >= n {
			break
		}
		if published[id] {
			kept[id] = true
		}
	}
	var drop []string
	for _, r := range runs {
		if kept[r.ID] {
			continue
		}
		if len(kept) < n {
			kept[r.ID] = true
			continue
		}
		drop = append(drop, r.ID)
	}
	return drop
}
