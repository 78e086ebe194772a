package cmd

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/command"
	"github.com/monorepo-rocks/monorepo-rocks/apps/findgrep/src/go/watcher"
)

// watchAndRun runs argv once and again after every batch of relevant changes
// below a.Dir, until ctx is cancelled. Failing searches do not end the loop.
func (a *App) watchAndRun(ctx context.Context, argv []string) error {
	filter := watcher.NewFilter(a.Dir, a.cfg.Find)
	if a.gzip {
		filter = filter.Compressed(command.GzipSuffix)
	}

	w, err := watcher.NewWatcher(watcher.DefaultDebounce, filter)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	defer w.Close()

	if err := w.AddPath(a.Dir); err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}
	w.Start(ctx)

	if err := a.runOnce(ctx, argv); err != nil {
		return err
	}
	log.Info().Str("root", a.Dir).Int("dirs", w.WatchedDirs()).Msg("watching for changes")

	for batch := range w.Events() {
		log.Info().Int("changes", len(batch)).Str("first", batch[0].Path).Msg("rerunning search")
		if err := a.runOnce(ctx, argv); err != nil {
			return err
		}
	}

	return nil
}

func (a *App) runOnce(ctx context.Context, argv []string) error {
	code, err := command.Run(ctx, argv, a.childStdio())
	if err != nil {
		// the tool is missing, rerunning cannot help
		return &ExitError{Code: code, Err: err}
	}
	if code != 0 {
		log.Debug().Int("code", code).Msg("search exited")
	}
	return nil
}
