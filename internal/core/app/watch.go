package app

import (
	"context"

	"deeprepo/internal/core/ports"
	"deeprepo/internal/engine/watcher"
)

// Watch re-indexes the repository whenever its files change, invoking onRun
// with each completed result. It blocks until ctx is canceled.
func (a *App) Watch(ctx context.Context, repoPath string, onRun func(*ports.IndexResult, error)) error {
	if repoPath == "" {
		repoPath = a.cfg.Project.RepoPath
	}

	w, err := watcher.New(a.cfg.Watch.Debounce, a.cfg.Project.Exclude, func(paths []string) {
		a.logger.Info("change detected, re-indexing", "changed", len(paths))
		result, err := a.IndexRepo(ctx, ports.IndexRequest{RepoPath: repoPath})
		if onRun != nil {
			onRun(result, err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(repoPath); err != nil {
		return err
	}

	a.logger.Info("watching repository", "root", repoPath, "debounce", a.cfg.Watch.Debounce)
	<-ctx.Done()
	return ctx.Err()
}
