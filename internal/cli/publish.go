package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Goraved/aqareport/internal/config"
	aqaerrors "github.com/Goraved/aqareport/internal/errors"
	"github.com/Goraved/aqareport/internal/history"
	"github.com/Goraved/aqareport/internal/objectstore"
	"github.com/Goraved/aqareport/internal/store"
)

// Credential variables read for publishing. AWS and Google credentials
// are also picked up by their SDKs from the standard variables.
const (
	EnvPublishAccessKey = "AQA_PUBLISH_ACCESS_KEY"
	EnvPublishSecretKey = "AQA_PUBLISH_SECRET_KEY"
	EnvAzureStorageKey  = "AZURE_STORAGE_KEY"
	EnvAzureSASToken    = "AZURE_STORAGE_SAS_TOKEN"
	EnvGCPCredentials   = "GOOGLE_APPLICATION_CREDENTIALS"
)

// newProvider opens the object store; tests replace it.
var newProvider = objectstore.NewProvider

type publishFlags struct {
	json bool
	keep int
	db   string
}

func newPublishCmd(a *app) *cobra.Command {
	flags := &publishFlags{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Manage reports published to the object store",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List published runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.objectStore(ctx)
			if err != nil {
				return err
			}
			defer p.Close()
			runs, err := objectstore.ListRuns(ctx, p)
			if err != nil {
				return environmentError("list published runs", err)
			}
			if flags.json {
				return a.printJSON(runs)
			}
			if len(runs) == 0 {
				a.out.Info("No published runs.")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				modified := ""
				if !r.LastModified.IsZero() {
					modified = r.LastModified.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{r.ID, fmt.Sprintf("%d", r.Objects), fmt.Sprintf("%d", r.Size), modified})
			}
			a.out.Table([]string{"RUN", "OBJECTS", "BYTES", "MODIFIED"}, rows)
			return nil
		},
	}
	list.Flags().BoolVar(&flags.json, "json", false, "Print JSON instead of a table")

	prune := &cobra.Command{
		Use:   "prune [run-id...]",
		Short: "Delete published runs",
		Long: `Deletes the given runs from the object store. With --keep, every run but
the most recent N is deleted instead. When a history database is
configured, its most recent runs decide which runs are kept; otherwise
the modification time of the published objects does.`,
		Example: `  aqareport publish prune 0b6c5a4e-3f57-4b4c-9a0e-4f8d2b1c7e11
  aqareport publish prune --keep 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (flags.keep <= 0) {
				return configError(fmt.Errorf("pass run ids or --keep N, not both"))
			}
			ctx := cmd.Context()
			p, err := a.objectStore(ctx)
			if err != nil {
				return err
			}
			defer p.Close()
			if flags.keep > 0 {
				_, err = a.pruneRuns(ctx, p, flags.keep, firstNonEmpty(flags.db, historyPath(a.cfg)))
				return err
			}
			for _, id := range args {
				n, err := objectstore.Prune(ctx, p, id)
				if err != nil {
					return environmentError("prune run "+id, err)
				}
				if n == 0 {
					a.out.Warning("run %s has no published objects", id)
					continue
				}
				a.out.Info("Deleted %d objects of run %s", n, id)
			}
			return nil
		},
	}
	prune.Flags().IntVar(&flags.keep, "keep", 0, "Keep only the most recent N runs")
	prune.Flags().StringVar(&flags.db, "db", "", "History database that orders the runs (default from config)")

	cmd.AddCommand(list, prune)
	return cmd
}

// objectStore connects to the provider of the publish section.
func (a *app) objectStore(ctx context.Context) (objectstore.Provider, error) {
	if a.cfg.Publish == nil {
		return nil, configError(fmt.Errorf("publishing requires a publish section or %s", config.EnvPublishBucket))
	}
	p, err := newProvider(ctx, publishConfig(*a.cfg.Publish, a.getenv))
	if err != nil {
		return nil, environmentError("connect to object store", err)
	}
	return p, nil
}

func (a *app) publish(ctx context.Context, runID uuid.UUID, reportPath string, keep int, historyDB string) error {
	p, err := a.objectStore(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	upload := objectstore.Upload{RunID: runID.String(), Report: reportPath, Latest: true}
	if a.cfg.Publish.IncludeResults {
		files, err := store.Files(a.cfg.Results.Dir)
		if err != nil {
			return err
		}
		upload.Extra = files
	}
	uploaded, err := objectstore.Publish(ctx, p, upload, a.log)
	if err != nil {
		return environmentError("publish report", err)
	}
	a.out.Info("Published %d objects to %s://%s/%s", len(uploaded), a.cfg.Publish.Provider, a.cfg.Publish.Bucket,
		objectstore.ResolveKey(a.cfg.Publish.Prefix, objectstore.RunKey(runID.String(), "")))

	if keep > 0 {
		if _, err := a.pruneRuns(ctx, p, keep, historyDB, runID.String()); err != nil {
			return err
		}
	}
	return nil
}

// pruneRuns deletes all but keep published runs. The pinned runs and the
// most recent runs of the history database are kept first.
func (a *app) pruneRuns(ctx context.Context, p objectstore.Provider, keep int, historyDB string, pinned ...string) (int, error) {
	runs, err := objectstore.ListRuns(ctx, p)
	if err != nil {
		return 0, environmentError("list published runs", err)
	}
	preferred := append([]string(nil), pinned...)
	if historyDB != "" {
		h, err := history.Open(ctx, historyDB)
		if err != nil {
			return 0, err
		}
		recent, err := h.RecentRuns(ctx, keep)
		_ = h.Close()
		if err != nil {
			return 0, err
		}
		for _, r := range recent {
			preferred = append(preferred, r.ID.String())
		}
	}

	deleted := 0
	for _, id := range objectstore.Retain(runs, preferred, keep) {
		n, err := objectstore.Prune(ctx, p, id)
		deleted += n
		if err != nil {
			return deleted, environmentError("prune run "+id, err)
		}
		a.log.V(1).Info("pruned published run", "run", id, "objects", n)
	}
	a.out.Info("Kept %d published runs, deleted %d objects", min(keep, len(runs)), deleted)
	return deleted, nil
}

// publishConfig combines the publish section with credentials from the
// environment.
func publishConfig(p config.PublishConfig, getenv func(string) string) objectstore.Config {
	cfg := objectstore.Config{
		Provider:           p.Provider,
		Bucket:             p.Bucket,
		Prefix:             p.Prefix,
		Region:             p.Region,
		Endpoint:           p.Endpoint,
		PathStyle:          p.PathStyle,
		Insecure:           p.Insecure,
		GCPProject:         p.GCPProject,
		GCPCredentialsFile: getenv(EnvGCPCredentials),
		AzureAccount:       p.AzureAccount,
		AzureKey:           getenv(EnvAzureStorageKey),
		AzureSASToken:      getenv(EnvAzureSASToken),
		AccessKey:          getenv(EnvPublishAccessKey),
		SecretKey:          getenv(EnvPublishSecretKey),
	}
	if objectstore.NormalizeProvider(p.Provider) == objectstore.ProviderMinIO {
		cfg.AccessKey = firstNonEmpty(cfg.AccessKey, getenv("MINIO_ROOT_USER"), getenv("MINIO_ACCESS_KEY"))
		cfg.SecretKey = firstNonEmpty(cfg.SecretKey, getenv("MINIO_ROOT_PASSWORD"), getenv("MINIO_SECRET_KEY"))
	}
	return cfg
}

func environmentError(message string, err error) error {
	return &aqaerrors.ReportError{Kind: aqaerrors.KindEnvironment, Message: message, Cause: err}
}
