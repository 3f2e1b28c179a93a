// v0
// internal/http/api.go
package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"salesops/recovery/internal/dataset"
	"salesops/recovery/internal/metrics"
	"salesops/recovery/internal/recovery"
	"salesops/recovery/internal/report"
	"salesops/recovery/internal/session"
)

// exportPublisher is the subset of publish.Publisher used after an export.
type exportPublisher interface {
	Publish(rep report.Report, format string) error
}

type api struct {
	engine    *recovery.Engine
	sessions  *session.Store
	publisher exportPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

type calculateRequest struct {
	Region string       `json:"region"`
	Rates  []RateUpdate `json:"rates"`
}

type regionRequest struct {
	Region string `json:"region"`
}

const maxBodyBytes = 1 << 16

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (a *api) evaluate(region string, rates recovery.Rates) recovery.Scenario {
	a.metrics.IncCalculation()
	return a.engine.Evaluate(region, rates)
}

func (a *api) sessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrUnknownSlot):
		badRequest(w, err.Error())
	default:
		a.log.Error("session_error", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (a *api) regions(w http.ResponseWriter, r *http.Request) {
	data := a.engine.Dataset()
	out := lo.Map(data.Regions(), func(region string, _ int) RegionView {
		rows := data.RegionRecords(region)
		avg, _ := data.AvgTonnes(region)
		return RegionView{
			Region:               region,
			AvgTonnesPerCustomer: avg,
			TotalLost:            lo.SumBy(rows, func(rec dataset.LossRecord) int { return rec.TotalLost }),
			Categories:           len(rows),
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (a *api) problems(w http.ResponseWriter, r *http.Request) {
	problems := a.engine.Problems(mux.Vars(r)["region"])
	if problems == nil {
		problems = []dataset.LossRecord{}
	}
	writeJSON(w, http.StatusOK, problems)
}

func (a *api) calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	rates, err := ratesFromUpdates(req.Rates, len(a.engine.Problems(req.Region)))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newScenarioView("", a.evaluate(req.Region, rates)))
}

func (a *api) createSession(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, err.Error())
		return
	}
	st := a.sessions.Create(req.Region)
	w.Header().Set("Location", "/api/v1/sessions/"+st.ID)
	writeJSON(w, http.StatusCreated, a.view(st))
}

func (a *api) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := a.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		a.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.view(st))
}

func (a *api) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		a.sessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) selectRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	st, err := a.sessions.SelectRegion(mux.Vars(r)["id"], req.Region)
	if err != nil {
		a.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.view(st))
}

func (a *api) setRate(w http.ResponseWriter, r *http.Request) {
	var req RateUpdate
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	slot, err := req.slot()
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	st, err := a.sessions.SetRate(mux.Vars(r)["id"], slot, req.Value)
	if err != nil {
		a.sessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.view(st))
}

func (a *api) summary(w http.ResponseWriter, r *http.Request) {
	st, err := a.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		a.sessionError(w, err)
		return
	}
	writeText(w, http.StatusOK, report.RenderText(a.evaluate(st.Region, st.Rates)))
}

func (a *api) export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "xlsx" {
		badRequest(w, fmt.Sprintf("unsupported export format %q", format))
		return
	}
	st, err := a.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		a.sessionError(w, err)
		return
	}

	rep := report.Build(a.evaluate(st.Region, st.Rates), a.engine.Dataset(), a.now())
	var buf bytes.Buffer
	contentType := "application/json"
	if format == "xlsx" {
		contentType = report.XLSXContentType
		err = report.WriteXLSX(&buf, rep)
	} else {
		err = report.WriteJSON(&buf, rep)
	}
	if err != nil {
		a.log.Error("export_render_failed", slog.String("format", format), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	a.metrics.IncExport(format)
	if a.publisher != nil {
		if err := a.publisher.Publish(rep, format); err != nil {
			a.log.Warn("export_publish_skipped", slog.String("report", rep.ID), slog.Any("err", err))
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(rep, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *api) view(st session.State) ScenarioView {
	return newScenarioView(st.ID, a.evaluate(st.Region, st.Rates))
}
