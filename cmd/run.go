package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/soniclayer/nowplayd/internal/history"
	"github.com/soniclayer/nowplayd/internal/player"
	"github.com/soniclayer/nowplayd/internal/shared"
	"github.com/soniclayer/nowplayd/internal/ui"
	"github.com/urfave/cli/v3"
)

// Run starts the polling scheduler for the configured playback source and
// displays track changes until interrupted.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	mode := cmd.String("mode")
	if mode == "" {
		mode = r.config.Player.Mode
	}

	source, cleanup, err := r.buildSource(mode)
	if err != nil {
		return err
	}
	defer cleanup()

	detector, err := r.buildDetector(mode)
	if err != nil {
		return err
	}

	log, err := r.openHistory()
	if err != nil {
		r.logger.Warnf("listening log disabled: %v", err)
	} else {
		defer log.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := player.NewScheduler(source, detector, r.logger)
	sched.Start(r.config.Player.Interval())
	defer sched.Stop()

	// Track changes are recorded into the listening log on their way to the
	// display.
	events := r.recordEvents(ctx, sched.Events(), log)

	if cmd.Bool("plain") {
		return r.runPlain(ctx, events)
	}
	return r.runTUI(events, log)
}

// buildSource constructs the playback source for the requested mode.
func (r *Runner) buildSource(mode string) (player.Source, func(), error) {
	switch mode {
	case "webapi":
		manager, err := r.authManager()
		if err != nil {
			return nil, nil, err
		}
		if !manager.IsAuthenticated() {
			return nil, nil, fmt.Errorf("%w: run 'nowplayd connect' first", shared.ErrNotAuthenticated)
		}
		src := player.NewSpotifySource(manager, player.SpotifySourceOpts{
			HTTPClient: r.httpClient,
			Logger:     r.logger,
		})
		return src, func() {}, nil

	case "local", "":
		cache, err := r.artworkCache()
		if err != nil {
			return nil, nil, err
		}
		src, err := player.NewMPRISSource(r.config.Player.AppID, cache, r.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to the session bus: %w", err)
		}
		return src, func() { src.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown player mode %q", shared.ErrInvalidConfig, mode)
	}
}

// buildDetector picks the change detector for the mode. The local source
// extracts thumbnails itself, so only the Web API mode resolves artwork in
// the detector.
func (r *Runner) buildDetector(mode string) (*player.ChangeDetector, error) {
	if mode != "webapi" {
		return player.NewChangeDetector(nil), nil
	}

	cache, err := r.artworkCache()
	if err != nil {
		return nil, err
	}
	return player.NewChangeDetector(cache.Resolve), nil
}

func (r *Runner) artworkCache() (*player.ArtworkCache, error) {
	dir, err := r.config.Storage.ResolveArtworkDir()
	if err != nil {
		return nil, err
	}
	return player.NewArtworkCache(dir, r.logger), nil
}

func (r *Runner) openHistory() (*history.Store, error) {
	path, err := r.config.Storage.ResolveHistoryPath()
	if err != nil {
		return nil, err
	}
	return history.NewStore(path)
}

// recordEvents relays scheduler events, appending track changes to the
// listening log as they pass through.
func (r *Runner) recordEvents(ctx context.Context, in <-chan player.Event, log *history.Store) <-chan player.Event {
	out := make(chan player.Event, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-in:
				if !ok {
					return
				}
				if log != nil {
					switch e.Kind {
					case player.EventTrack:
						if err := log.Record(*e.Track, e.Source); err != nil {
							r.logger.Warnf("failed to record play: %v", err)
						}
					case player.EventStopped:
						log.Break()
					}
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (r *Runner) runPlain(ctx context.Context, events <-chan player.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			switch e.Kind {
			case player.EventTrack:
				state := "▶"
				if !e.Track.Playing {
					state = "⏸"
				}
				r.writePlain("%s %s — %s [%s]\n", state, e.Track.Track, e.Track.Artist, clock(e.Track.ProgressMS))
			case player.EventStopped:
				r.writePlain("  (nothing playing)\n")
			case player.EventError:
				r.logger.Warnf("poll error: %v", e.Err)
			}
		}
	}
}

func (r *Runner) runTUI(events <-chan player.Event, log *history.Store) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/nowplayd.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var lister ui.RecentLister
	if log != nil {
		lister = log
	}

	model := ui.NewModel(events, lister)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// History prints the listening log, most recent first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	log, err := r.openHistory()
	if err != nil {
		return fmt.Errorf("failed to open listening log: %w", err)
	}
	defer log.Close()

	plays, err := log.Recent(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(plays, true)
	}

	if len(plays) == 0 {
		r.writePlain("No plays recorded yet\n")
		return nil
	}

	for _, p := range plays {
		line := fmt.Sprintf("%s  %s — %s", p.PlayedAt.Local().Format("Jan 02 15:04"), p.Title, p.Artist)
		if p.Album != "" {
			line += "  (" + p.Album + ")"
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

// clock formats milliseconds as m:ss.
func clock(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
