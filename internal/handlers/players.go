package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/postleo/riftinsights/internal/models"
	"github.com/postleo/riftinsights/internal/store"
)

// CollectMatches archives the player's ranked matches for a year
// @Summary Collect Season Matches
// @Description Fetches the player's ranked solo matches for a calendar year from the Riot API and archives the raw documents. Year defaults to the current UTC year.
// @Tags Players
// @Accept json
// @Produce json
// @Param puuid path string true "Player PUUID"
// @Param body body models.CollectRequest true "Region and year"
// @Success 200 {object} models.CollectResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /players/{puuid}/collect [post]
func (h *Handler) CollectMatches(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	var req models.CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.errorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.PUUID = chi.URLParam(r, "puuid")
	if req.Year == 0 {
		req.Year = currentYear(h.now())
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp, err := h.collector.Collect(r.Context(), req.PUUID, req.Region, req.Year)
	if err != nil {
		h.serviceError(w, err, "Failed to collect matches", "puuid", req.PUUID, "region", req.Region)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// ProcessSeason extracts, aggregates and scores an archived season
// @Summary Process Season
// @Tags Players
// @Produce json
// @Param puuid path string true "Player PUUID"
// @Param year path int true "Season year"
// @Success 200 {object} models.ProcessResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "No archived matches"
// @Router /players/{puuid}/seasons/{year}/process [post]
func (h *Handler) ProcessSeason(w http.ResponseWriter, r *http.Request) {
	req, ok := h.seasonRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.seasons.ProcessSeason(r.Context(), req.PUUID, req.Year)
	if err != nil {
		h.serviceError(w, err, "Failed to process season", "puuid", req.PUUID, "year", req.Year)
		return
	}
	h.jsonResponse(w, http.StatusOK, resp)
}

// RunInference re-scores stored season metrics
// @Summary Run Season Inference
// @Tags Players
// @Produce json
// @Param puuid path string true "Player PUUID"
// @Param year path int true "Season year"
// @Success 200 {object} models.InferenceBundle
// @Failure 404 {object} map[string]string "Season not found"
// @Router /players/{puuid}/seasons/{year}/inference [post]
func (h *Handler) RunInference(w http.ResponseWriter, r *http.Request) {
	req, ok := h.seasonRequest(w, r)
	if !ok {
		return
	}

	bundle, err := h.seasons.Infer(r.Context(), req.PUUID, req.Year)
	if err != nil {
		h.serviceError(w, err, "Failed to run inference", "puuid", req.PUUID, "year", req.Year)
		return
	}
	h.jsonResponse(w, http.StatusOK, bundle)
}

// GetSeason returns stored metrics and the latest inference bundle
// @Summary Get Season Report
// @Tags Players
// @Produce json
// @Param puuid path string true "Player PUUID"
// @Param year path int true "Season year"
// @Success 200 {object} models.SeasonReport
// @Failure 404 {object} map[string]string "Season not found"
// @Router /players/{puuid}/seasons/{year} [get]
func (h *Handler) GetSeason(w http.ResponseWriter, r *http.Request) {
	req, ok := h.seasonRequest(w, r)
	if !ok {
		return
	}

	report, err := h.seasons.Season(r.Context(), req.PUUID, req.Year)
	if err != nil {
		h.serviceError(w, err, "Failed to get season", "puuid", req.PUUID, "year", req.Year)
		return
	}
	h.jsonResponse(w, http.StatusOK, report)
}

// GetMatchHistory lists stored per-match features for a season
// @Summary Get Season Match History
// @Tags Players
// @Produce json
// @Param puuid path string true "Player PUUID"
// @Param year path int true "Season year"
// @Param champion query string false "Champion name"
// @Param role query string false "Role (TOP, JUNGLE, MID, ADC, SUPPORT)"
// @Param result query string false "win or loss"
// @Param sort query string false "recent, kda, cs, gold, vision or damage"
// @Param limit query int false "Max matches (default 100)"
// @Success 200 {object} models.HistoryResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /players/{puuid}/seasons/{year}/matches [get]
func (h *Handler) GetMatchHistory(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Year must be a number")
		return
	}
	q := r.URL.Query()
	req := models.HistoryRequest{
		PUUID:    chi.URLParam(r, "puuid"),
		Year:     year,
		Champion: q.Get("champion"),
		Role:     q.Get("role"),
		Result:   q.Get("result"),
		Sort:     q.Get("sort"),
	}
	if raw := q.Get("limit"); raw != "" {
		if req.Limit, err = strconv.Atoi(raw); err != nil {
			h.errorResponse(w, http.StatusBadRequest, "Limit must be a number")
			return
		}
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	matches, err := h.history.History(r.Context(), store.HistoryQuery{
		PUUID:    req.PUUID,
		Year:     req.Year,
		Champion: req.Champion,
		Role:     models.Role(req.Role),
		Result:   req.Result,
		Sort:     req.Sort,
		Limit:    req.Limit,
	})
	if err != nil {
		h.serviceError(w, err, "Failed to get match history", "puuid", req.PUUID, "year", req.Year)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.HistoryResponse{
		PlayerPUUID: req.PUUID,
		Year:        req.Year,
		Matches:     matches,
	})
}

func (h *Handler) seasonRequest(w http.ResponseWriter, r *http.Request) (models.SeasonRequest, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Year must be a number")
		return models.SeasonRequest{}, false
	}
	req := models.SeasonRequest{PUUID: chi.URLParam(r, "puuid"), Year: year}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return req, false
	}
	return req, true
}
