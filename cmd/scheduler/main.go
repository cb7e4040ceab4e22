// Command scheduler runs a driveq scheduler against an in-memory remote
// service and submits a handful of demo jobs.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/RezaEskandarii/driveq/app"
	"github.com/RezaEskandarii/driveq/internal/constants"
	"github.com/RezaEskandarii/driveq/internal/logging"
	"github.com/RezaEskandarii/driveq/remote"
	"github.com/RezaEskandarii/driveq/remote/fake"
	"github.com/RezaEskandarii/driveq/types"
)

func main() {
	opts := parseOptions()
	logger := logging.New(constants.AppName, opts.LogLevel)

	cfg, err := opts.schedulerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := fake.NewService()
	svc.SetLatency(200 * time.Millisecond)

	container, err := app.NewContainer(ctx, cfg,
		app.WithRemote(svc, svc),
		app.WithLogger(logger),
		app.WithChangeHandler(func(changes *remote.ResourceList) {
			logger.Info("changes received", "entries", len(changes.Entries), "largest_changestamp", changes.LargestChangestamp)
		}),
	)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	container.Scheduler.OnConnectivityChanged(types.ParseConnectionType(opts.Connection))
	submitDemoJobs(container, svc, opts.DemoJobs)

	if err := container.Run(ctx); err != nil {
		logger.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// submitDemoJobs mixes foreground metadata calls with background file
// transfers so both queues, priorities and retries show up in the logs.
func submitDemoJobs(c *app.Container, svc *fake.Service, n int) {
	logger := c.Logger.With("component", "demo")
	ops := c.Operations
	dir := os.TempDir()

	svc.FailNext("GetAboutResource", remote.NewError(http.StatusServiceUnavailable, "warming up"))
	ops.GetAboutResource(func(about *remote.AboutResource, err error) {
		if err != nil {
			logger.Warn("about resource failed", "error", err)
			return
		}
		logger.Info("about resource", "root", about.RootFolderID, "quota_used", about.QuotaBytesUsed)
	})

	for i := range n {
		title := fmt.Sprintf("demo-%02d.txt", i)
		ops.UploadNewFile(remote.UploadRequest{
			ParentResourceID: fake.RootResourceID,
			DrivePath:        "/" + title,
			LocalPath:        filepath.Join(dir, title),
			Title:            title,
			ContentType:      "text/plain",
		}, types.PriorityBackground, func(entry *remote.ResourceEntry, err error) {
			if err != nil {
				logger.Warn("upload failed", "title", title, "error", err)
				return
			}
			ops.DownloadFile(filepath.Join(dir, "copy-"+title), "https://fake.drive/download/"+entry.ResourceID, types.PriorityBackground,
				func(path string, err error) {
					if err != nil {
						logger.Warn("download failed", "title", title, "error", err)
						return
					}
					logger.Info("downloaded", "path", path)
				})
		})
	}

	ops.GetAllResourceList(func(list *remote.ResourceList, err error) {
		if err != nil {
			logger.Warn("resource list failed", "error", err)
			return
		}
		logger.Info("resource list", "entries", len(list.Entries))
	})
}
