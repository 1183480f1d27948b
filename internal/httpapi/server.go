package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/chart"
	"github.com/hamed0406/wanuptime/internal/domain"
	apimw "github.com/hamed0406/wanuptime/internal/httpapi/middleware"
	"github.com/hamed0406/wanuptime/internal/query"
)

type Server struct {
	Logger *zap.Logger
	Query  *query.Service
	Now    func() time.Time
}

func NewServer(l *zap.Logger, q *query.Service) *Server {
	return &Server{Logger: l, Query: q, Now: time.Now}
}

// Router serves the read API. publicRPM and publicBurst bound requests per
// client IP; publicRPM <= 0 disables the limit.
func (s *Server) Router(publicRPM, publicBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(apimw.RateLimit(publicRPM, publicBurst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/uptime", s.handleUptime)
	r.Get("/api/records", s.handleRecords)
	r.Get("/api/disruptions", s.handleDisruptions)
	r.Get("/uptime_graph.svg", s.handleGraph)

	return gziphandler.GzipHandler(r)
}

type uptimeResponse struct {
	domain.AggregateResult
	NoData bool `json:"no_data"`
}

func (s *Server) handleUptime(w http.ResponseWriter, r *http.Request) {
	p, err := query.ParseParams(r.URL.Query(), s.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Query.Uptime(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch p.Format {
	case query.FormatJSON:
		writeJSON(w, http.StatusOK, uptimeResponse{AggregateResult: res, NoData: res.NoData()})

	case query.FormatCSV:
		var buf bytes.Buffer
		if err := chart.WriteCSV(&buf, res); err != nil {
			s.fail(w, r, err)
			return
		}
		attach(w, "text/csv; charset=utf-8", "uptime.csv")
		w.Write(buf.Bytes())

	case query.FormatXLSX:
		if res.NoData() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var buf bytes.Buffer
		if err := chart.WriteXLSX(&buf, res, s.Now()); err != nil {
			s.fail(w, r, err)
			return
		}
		attach(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "uptime.xlsx")
		w.Write(buf.Bytes())

	case query.FormatSVG, query.FormatPNG:
		if res.NoData() {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		var buf bytes.Buffer
		if err := chart.Uptime(&buf, res, p.Format); err != nil {
			s.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", imageType(p.Format))
		w.Write(buf.Bytes())
	}
}

type recordsResponse struct {
	Start   time.Time            `json:"start"`
	End     time.Time            `json:"end"`
	Records []domain.ProbeRecord `json:"records"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	start, end, err := query.ParseRange(r.URL.Query(), s.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	recs, err := s.Query.Records(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []domain.ProbeRecord{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Start: start, End: end, Records: recs})
}

type disruptionsResponse struct {
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Disruptions []domain.Disruption `json:"disruptions"`
}

func (s *Server) handleDisruptions(w http.ResponseWriter, r *http.Request) {
	start, end, err := query.ParseRange(r.URL.Query(), s.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ds, err := s.Query.Disruptions(r.Context(), start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, disruptionsResponse{Start: start, End: end, Disruptions: ds})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Query.RollingGraph(r.Context(), s.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if g.Empty() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	var buf bytes.Buffer
	if err := chart.Rolling(&buf, g, query.FormatSVG); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", imageType(query.FormatSVG))
	w.Write(buf.Bytes())
}

// fail maps err to an HTTP status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// client went away
	case errors.Is(err, query.ErrStore):
		writeError(w, http.StatusInternalServerError, "record store unavailable")
	default:
		s.Logger.Error("request_failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func attach(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

func imageType(format string) string {
	if format == query.FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}
