package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/newsbell/internal/coord"
	"github.com/abelbrown/newsbell/internal/filter"
	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/otel"
	"github.com/abelbrown/newsbell/internal/store"
)

// Listing defaults.
const (
	defaultPageSize = 20
	maxPageSize     = 200
	defaultEvents   = 50
)

// ArticlePage is the /articles response.
type ArticlePage struct {
	Total    int             `json:"total"`
	Offset   int             `json:"offset"`
	Limit    int             `json:"limit"`
	Articles []model.Article `json:"articles"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) listArticles(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
		return
	}
	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	var maxAge time.Duration
	if v := c.Query("max_age"); v != "" {
		if maxAge, err = time.ParseDuration(v); err != nil || maxAge <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_age"})
			return
		}
	}
	var since time.Time
	if v := c.Query("since"); v != "" {
		if since, err = model.ParseTime(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
	}

	all, err := s.Store.Articles(c.Request.Context(), 0)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load articles"})
		return
	}
	if s.Enabled != nil {
		all = filter.BySources(all, s.Enabled())
	}
	if sources := c.QueryArray("source"); len(sources) > 0 {
		all = filter.BySource(all, sources)
	}
	if maxAge > 0 {
		all = filter.ByAge(all, maxAge, s.now())
	}
	if !since.IsZero() {
		all = newerThan(all, since)
	}

	c.JSON(http.StatusOK, ArticlePage{
		Total:    len(all),
		Offset:   offset,
		Limit:    limit,
		Articles: filter.Page(all, offset, limit),
	})
}

// newerThan keeps articles dated strictly after t, the exact-granularity
// rule a client polling with its last seen timestamp needs.
func newerThan(articles []model.Article, t time.Time) []model.Article {
	out := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if filter.IsNew(a, t, true, model.Exact, time.UTC) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Server) getArticle(c *gin.Context) {
	a, err := s.Store.Article(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load article"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// checkpoints renders {source: ISO timestamp}.
func (s *Server) checkpoints(c *gin.Context) {
	cps, err := s.Store.Checkpoints(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load checkpoints"})
		return
	}
	out := make(map[string]string, len(cps))
	for src, at := range cps {
		out[src] = model.FormatTime(at)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) unread(c *gin.Context) {
	v, err := s.Unread.Value(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read counter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": v})
}

func (s *Server) resetUnread(c *gin.Context) {
	if err := s.Unread.Reset(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset counter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": 0})
}

// refresh starts a cycle in the background and answers 202, or 409 when one
// is already running.
func (s *Server) refresh(c *gin.Context) {
	if s.Refresh == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh not available"})
		return
	}
	if s.Refresh.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": coord.ErrCycleInProgress.Error()})
		return
	}

	logger := logging.OrNop(s.Logger)
	ctx := s.baseContext()
	go func() {
		res, err := s.Refresh.RunNow(ctx)
		if err != nil {
			logger.Warn("manual refresh", "err", err)
			return
		}
		logger.Info("manual refresh done", "cycle", res.ID, "new", res.New, "sent", res.Sent)
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// openNotification redirects a clicked notification to its article.
func (s *Server) openNotification(c *gin.Context) {
	if s.Links == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown notification"})
		return
	}
	link, ok := s.Links.Resolve(c.Param("id"))
	if !ok || link == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown notification"})
		return
	}
	c.Redirect(http.StatusFound, link)
}

func (s *Server) events(c *gin.Context) {
	n, err := queryInt(c, "n", defaultEvents)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid n"})
		return
	}
	if s.Events == nil {
		c.JSON(http.StatusOK, gin.H{"events": []any{}, "counts": map[string]int{}})
		return
	}

	counts := make(map[string]int)
	for k, v := range s.Events.Counts() {
		counts[string(k)] = v
	}
	last := s.Events.Last(n)
	events := make([]otel.Event, 0, len(last))
	for i := len(last) - 1; i >= 0; i-- {
		events = append(events, last[i])
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "counts": counts})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
