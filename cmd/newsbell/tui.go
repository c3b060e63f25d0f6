package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/deliver"
	"github.com/abelbrown/newsbell/internal/filter"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/otel"
	"github.com/abelbrown/newsbell/internal/ui"
	"github.com/abelbrown/newsbell/internal/ui/sources"
)

const (
	tuiArticleLimit = 500
	tuiTimeout      = 10 * time.Second
)

func tuiCommand() *cobra.Command {
	var withFetch bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse cached articles",
		Long: `Browse the article cache newest first, see and reset the unread count,
and edit source settings. The cache is filled by "newsbell run"; with
--fetch the reader can also run cycles itself ("f").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{quiet: true})
			if err != nil {
				return err
			}
			defer e.Close()

			// Earlier runs' events, so the pipeline overlay is not empty.
			if past, err := otel.ReadFile(eventLogPath(), eventBufferSize); err == nil {
				for _, ev := range past {
					e.ring.Push(ev)
				}
			}

			loadArticles := func() tea.Cmd {
				return func() tea.Msg {
					ctx, cancel := context.WithTimeout(ctx, tuiTimeout)
					defer cancel()
					articles, err := e.store.Articles(ctx, tuiArticleLimit)
					if err != nil {
						return ui.ArticlesLoaded{Err: err}
					}
					n, err := e.unread.Value(ctx)
					return ui.ArticlesLoaded{Articles: e.visible(articles), Unread: n, Err: err}
				}
			}

			acknowledge := func() tea.Cmd {
				return func() tea.Msg {
					ctx, cancel := context.WithTimeout(ctx, tuiTimeout)
					defer cancel()
					err := e.unread.Reset(ctx)
					if err == nil {
						e.events.Emit(otel.Event{Kind: otel.KindUnreadReset, Level: otel.LevelInfo, Comp: "ui"})
					}
					return ui.Acknowledged{Err: err}
				}
			}

			var triggerFetch func() tea.Cmd
			if withFetch {
				// The terminal belongs to the reader, so notifications only
				// go to the log.
				c := e.coordinator(deliver.LogNotifier{Logger: e.logger})
				triggerFetch = func() tea.Cmd {
					return func() tea.Msg {
						res, err := c.RunNow(ctx)
						return ui.FetchComplete{New: res.New, Sent: res.Sent, Err: err}
					}
				}
			}

			path := configPath()
			srcView := sources.New(loadConfig(), func(cfg *config.Config) error {
				if err := cfg.Save(path); err != nil {
					return err
				}
				// The view keeps editing cfg; cycles get their own copy.
				fresh, err := config.Load(path)
				if err != nil {
					return err
				}
				e.settings.Set(fresh)
				return nil
			})

			app := ui.NewApp(loadArticles, acknowledge, triggerFetch).
				WithEvents(e.ring).
				WithSources(srcView)

			_, err = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&withFetch, "fetch", false, "allow running cycles from the reader")
	return cmd
}

// visible drops articles from disabled sources.
func (e *env) visible(articles []model.Article) []model.Article {
	return filter.BySources(articles, e.settings.Get().EnabledSources())
}
