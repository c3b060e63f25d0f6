package deliver

import (
	"github.com/abelbrown/newsbell/internal/metrics"
	"github.com/abelbrown/newsbell/internal/otel"
)

// Observe returns a Scheduler.Sent hook that records each emission as a
// notify.sent or notify.error event and in the notifications counter.
// Either sink may be nil.
func Observe(events *otel.Logger, m *metrics.Metrics) func(Notification, error) {
	return func(n Notification, err error) {
		m.Notified(err)
		e := otel.Event{
			Kind:      otel.KindNotifySent,
			Comp:      "deliver",
			Source:    n.Source,
			ArticleID: n.ID,
			Msg:       n.Title,
		}
		if err != nil {
			e.Kind = otel.KindNotifyError
			e.Level = otel.LevelError
			e.Err = err.Error()
		}
		events.Emit(e)
	}
}
