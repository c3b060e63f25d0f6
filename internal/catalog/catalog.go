// Package catalog declares the sources newsbell knows how to read.
//
// Each source is a fetch.Source: a name, the granularity of its native
// timestamps, and an adapter. Site-specific parsing quirks (French month
// names, thumbnail URL rewriting, Feedly's JSON shape) live next to the
// source that needs them as small pure functions.
package catalog

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/model"
)

// Source names. These are the keys of checkpoints and of the enabled-sources
// configuration.
const (
	Animotaku        = "Animotaku"
	AdalaNews        = "Adala News"
	PlaneteBD        = "Planète BD"
	AnimeNewsNetwork = "Anime News Network"
	TokyoOtakuMode   = "Tokyo Otaku Mode News"
	CBR              = "CBR"
)

// Options configures the adapters built by Sources.
type Options struct {
	Client *fetch.Client
	Logger *log.Logger
	// Location is the reference timezone for sites that print bare dates.
	Location *time.Location
	Now      func() time.Time
	// URLs overrides a source's fetch URL by name (tests, mirrors).
	URLs map[string]string
}

func (o Options) url(name, def string) string {
	if u, ok := o.URLs[name]; ok && u != "" {
		return u
	}
	return def
}

func (o Options) loc() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

// Sources returns every known source, in display order.
func Sources(opts Options) []fetch.Source {
	opts.Logger = logging.OrNop(opts.Logger)
	return []fetch.Source{
		animotakuSource(opts),
		adalaSource(opts),
		planeteBDSource(opts),
		annSource(opts),
		tokyoOtakuModeSource(opts),
		cbrSource(opts),
	}
}

// Names lists the known source names in display order.
func Names() []string {
	return []string{Animotaku, AdalaNews, PlaneteBD, AnimeNewsNetwork, TokyoOtakuMode, CBR}
}

// Override adjusts one source's configuration.
type Override struct {
	Enabled     bool
	Granularity *model.Granularity
}

// Select keeps the sources enabled in overrides (sources with no entry stay
// enabled) and applies granularity overrides.
func Select(sources []fetch.Source, overrides map[string]Override) []fetch.Source {
	out := make([]fetch.Source, 0, len(sources))
	for _, src := range sources {
		o, ok := overrides[src.Name]
		if !ok {
			out = append(out, src)
			continue
		}
		if !o.Enabled {
			continue
		}
		if o.Granularity != nil {
			src.Granularity = *o.Granularity
		}
		out = append(out, src)
	}
	return out
}
