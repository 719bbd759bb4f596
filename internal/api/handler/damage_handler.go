package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
)

const maxBatchSize = 500

// DamageDispatcher is the interface the handler uses to enqueue batch reports.
type DamageDispatcher interface {
	EnqueueBatch(ctx context.Context, inputs []ports.CreateDamageInput) (int, error)
}

type DamageHandler struct {
	service    ports.DamageService
	dispatcher DamageDispatcher
	log        zerolog.Logger
}

func NewDamageHandler(service ports.DamageService, dispatcher DamageDispatcher, log zerolog.Logger) *DamageHandler {
	return &DamageHandler{service: service, dispatcher: dispatcher, log: log}
}

// List returns damage reports matching the query filters.
//
// @Summary      List damage reports
// @Tags         damages
// @Produce      json
// @Security     BearerAuth
// @Param        severity  query     string  false  "Low, Medium, High or Critical"
// @Param        status    query     string  false  "Pending, In Progress or Completed"
// @Param        type      query     string  false  "Damage type"
// @Param        search    query     string  false  "Location substring"
// @Param        from      query     string  false  "Reported on or after (YYYY-MM-DD or RFC3339)"
// @Param        to        query     string  false  "Reported on or before (YYYY-MM-DD or RFC3339)"
// @Param        sort      query     string  false  "reported_date (default) or severity"
// @Param        order     query     string  false  "desc (default) or asc"
// @Success      200       {array}   domain.DamageReport
// @Failure      400       {object}  messageResponse
// @Failure      401       {object}  messageResponse
// @Failure      403       {object}  messageResponse
// @Router       /api/damages [get]
func (h *DamageHandler) List(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	reports, err := h.service.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reports)
}

// Get returns a single damage report.
//
// @Summary      Get a damage report
// @Tags         damages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Report id"
// @Success      200  {object}  domain.DamageReport
// @Failure      400  {object}  messageResponse
// @Failure      404  {object}  messageResponse
// @Router       /api/damages/{id} [get]
func (h *DamageHandler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid damage id")
	}

	report, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Create stores a new damage report.
//
// @Summary      Report road damage
// @Tags         damages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createDamageRequest  true  "Damage report"
// @Success      201   {object}  domain.DamageReport
// @Failure      400   {object}  messageResponse
// @Failure      403   {object}  messageResponse
// @Router       /api/damages [post]
func (h *DamageHandler) Create(c echo.Context) error {
	var req createDamageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.service.Create(c.Request().Context(), toDamageInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, report)
}

// CreateBatch validates every report up front and hands them to the
// ingestion workers.
//
// @Summary      Report a batch of road damages
// @Tags         damages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []createDamageRequest  true  "Damage reports"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  messageResponse
// @Failure      403   {object}  messageResponse
// @Router       /api/damages/batch [post]
func (h *DamageHandler) CreateBatch(c echo.Context) error {
	var reqs []createDamageRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}
	if len(reqs) > maxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("batch exceeds %d reports", maxBatchSize))
	}

	inputs := make([]ports.CreateDamageInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("report[%d]: %s", i, err.Error()))
		}
		if err := checkEnums(req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("report[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, toDamageInput(req))
	}

	n, err := h.dispatcher.EnqueueBatch(c.Request().Context(), inputs)
	if err != nil {
		h.log.Warn().Err(err).Int("accepted", n).Int("submitted", len(inputs)).Msg("batch partially enqueued")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "damage reports accepted",
		Count:   n,
	})
}

// Export renders the filtered listing as CSV. The document is built before
// anything is written so a failed export still gets its proper status.
//
// @Summary      Export damage reports as CSV
// @Tags         damages
// @Produce      text/csv
// @Security     BearerAuth
// @Success      200  {string}  string
// @Failure      400  {object}  messageResponse
// @Failure      500  {object}  messageResponse
// @Router       /api/damages/export [get]
func (h *DamageHandler) Export(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	n, err := h.service.Export(c.Request().Context(), filter, &buf)
	if err != nil {
		h.log.Error().Err(err).Int("rows", n).Msg("csv export aborted")
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="damage-reports.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func toDamageInput(r createDamageRequest) ports.CreateDamageInput {
	in := ports.CreateDamageInput{
		Type:        r.Type,
		Severity:    r.Severity,
		Location:    r.Location,
		Lat:         r.Coordinates.Lat,
		Lng:         r.Coordinates.Lng,
		Description: r.Description,
		Status:      r.Status,
	}
	if r.ReportedDate != nil {
		in.ReportedDate = *r.ReportedDate
	}
	return in
}

func checkEnums(r createDamageRequest) error {
	if _, ok := domain.ParseSeverity(r.Severity); !ok {
		return fmt.Errorf("unknown severity %q", r.Severity)
	}
	if r.Status != "" {
		if _, ok := domain.ParseStatus(r.Status); !ok {
			return fmt.Errorf("unknown status %q", r.Status)
		}
	}
	return nil
}

// parseFilter reads the listing query parameters.
func parseFilter(c echo.Context) (domain.DamageFilter, error) {
	var f domain.DamageFilter

	if v := c.QueryParam("severity"); v != "" {
		s, ok := domain.ParseSeverity(v)
		if !ok {
			return f, fmt.Errorf("%w: unknown severity %q", domain.ErrInvalidInput, v)
		}
		f.Severity = s
	}
	if v := c.QueryParam("status"); v != "" {
		s, ok := domain.ParseStatus(v)
		if !ok {
			return f, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, v)
		}
		f.Status = s
	}
	f.Type = strings.TrimSpace(c.QueryParam("type"))
	f.Search = strings.TrimSpace(c.QueryParam("search"))

	var err error
	if f.From, err = parseDate(c.QueryParam("from"), false); err != nil {
		return f, err
	}
	if f.Until, err = parseDate(c.QueryParam("to"), true); err != nil {
		return f, err
	}

	f.SortBy = strings.ToLower(c.QueryParam("sort"))
	switch strings.ToLower(c.QueryParam("order")) {
	case "", "desc":
	case "asc":
		f.Asc = true
	default:
		return f, fmt.Errorf("%w: order must be asc or desc", domain.ErrInvalidInput)
	}
	return f, nil
}

// parseDate reads an RFC3339 timestamp or a bare date. With upper set the
// result is an exclusive bound that still covers the given instant or the
// whole given day.
func parseDate(v string, upper bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		if upper {
			t = t.Add(time.Nanosecond)
		}
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", domain.ErrInvalidInput, v)
	}
	if upper {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
