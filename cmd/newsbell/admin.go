package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/abelbrown/newsbell/internal/catalog"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/otel"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func ackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ack",
		Short: "Reset the unread counter",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context(), envOptions{quiet: true})
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.unread.Reset(cmd.Context()); err != nil {
				return err
			}
			e.events.Emit(otel.Event{Kind: otel.KindUnreadReset, Level: otel.LevelInfo, Comp: "cli"})
			fmt.Println("unread counter reset")
			return nil
		},
	}
}

func statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print checkpoints, cache size and unread count",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := newEnv(ctx, envOptions{quiet: true})
			if err != nil {
				return err
			}
			defer e.Close()

			cfg := e.settings.Get()
			unread, err := e.unread.Value(ctx)
			if err != nil {
				return err
			}
			cached, err := e.store.Count(ctx)
			if err != nil {
				return err
			}
			cps, err := e.store.Checkpoints(ctx)
			if err != nil {
				return err
			}

			fmt.Println(headingStyle.Render("newsbell"))
			fmt.Printf("  Config:        %s\n", configPath())
			fmt.Printf("  Store:         %s\n", storeDescription(cfg.Store.Driver, cfg.StorePath(), cfg.Store.RedisAddr))
			fmt.Printf("  Interval:      %s\n", cfg.Interval())
			fmt.Printf("  Notifications: %s\n", notificationSummary(cfg.NotificationsEnabled, cfg.NotificationCount, cfg.Delay()))
			fmt.Printf("  Cached:        %d articles\n", cached)
			fmt.Printf("  Unread:        %d\n", unread)

			fmt.Println()
			fmt.Println(headingStyle.Render("Checkpoints"))
			for _, name := range catalog.Names() {
				state := ""
				if !cfg.SourceEnabled(name) {
					state = dimStyle.Render(" (disabled)")
				}
				ts, ok := cps[name]
				if !ok {
					fmt.Printf("  %-24s %s%s\n", name, dimStyle.Render("never"), state)
					continue
				}
				fmt.Printf("  %-24s %s%s\n", name, model.FormatTime(ts), state)
			}
			return nil
		},
	}
}

func storeDescription(driver, path, addr string) string {
	if driver == "redis" {
		return "redis " + addr
	}
	return "sqlite " + path
}

func notificationSummary(enabled bool, count int, delay time.Duration) string {
	if !enabled {
		return "off"
	}
	return fmt.Sprintf("up to %d per cycle, %s apart", count, delay)
}

func eventsCommand() *cobra.Command {
	var (
		tail    int
		kind    string
		comp    string
		rawJSON bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent pipeline events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := otel.ReadFile(eventLogPath(), 0)
			if err != nil {
				return err
			}
			if events == nil {
				fmt.Fprintf(os.Stderr, "no events at %s; run \"newsbell run\" first\n", eventLogPath())
				return nil
			}

			var matched []otel.Event
			for _, ev := range events {
				if kind != "" && !strings.HasPrefix(string(ev.Kind), kind) {
					continue
				}
				if comp != "" && ev.Comp != comp {
					continue
				}
				matched = append(matched, ev)
			}
			if tail > 0 && len(matched) > tail {
				matched = matched[len(matched)-tail:]
			}

			for _, ev := range matched {
				if rawJSON {
					line, err := ev.MarshalJSON()
					if err != nil {
						return err
					}
					fmt.Println(string(line))
					continue
				}
				fmt.Println(formatEvent(ev))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&tail, "tail", 50, "number of recent events to show (0 for all)")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by event kind prefix (e.g. 'fetch')")
	cmd.Flags().StringVar(&comp, "comp", "", "filter by component")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print raw JSON lines")
	return cmd
}

func formatEvent(ev otel.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-18s", ev.Time.Local().Format("2006-01-02 15:04:05"), ev.Kind)
	if ev.CycleID != "" {
		fmt.Fprintf(&b, "  cycle=%s", ev.CycleID)
	}
	if ev.Source != "" {
		fmt.Fprintf(&b, "  source=%q", ev.Source)
	}
	if ev.Count > 0 {
		fmt.Fprintf(&b, "  n=%d", ev.Count)
	}
	if ev.DurMs > 0 {
		fmt.Fprintf(&b, "  %.0fms", ev.DurMs)
	}
	if ev.Msg != "" {
		b.WriteString("  " + ev.Msg)
	}
	if len(ev.Extra) > 0 {
		keys := make([]string, 0, len(ev.Extra))
		for k := range ev.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s=%v", k, ev.Extra[k])
		}
	}
	if ev.Err != "" {
		b.WriteString("  " + errStyle.Render("ERR: "+ev.Err))
	}
	return b.String()
}
