package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sells-group/geoassist/internal/model"
)

var errReportsDisabled = errors.New("report writer not configured")

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	cands, err := s.svc.Geocode(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": cands})
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := parseFloat(q.Get("lat"), "lat")
	if err != nil {
		writeError(w, r, err)
		return
	}
	lon, err := parseFloat(q.Get("lon"), "lon")
	if err != nil {
		writeError(w, r, err)
		return
	}
	zoom, err := parseZoom(q.Get("zoom"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	place, err := s.svc.Reverse(r.Context(), lat, lon, zoom)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cands, err := s.svc.Suggest(r.Context(), q.Get("query"), truthy(q.Get("cityOnly")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": cands})
}

func (s *Server) handleShelters(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Shelters(r.Context(), r.URL.Query().Get("bbox"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type factsResponse struct {
	Place model.ResolvedPlace `json:"place"`
	Facts model.FactRecord    `json:"facts"`
}

func (s *Server) handleFacts(w http.ResponseWriter, r *http.Request) {
	var q model.PlaceQuery
	if err := decodeBody(w, r, &q); err != nil {
		writeError(w, r, err)
		return
	}
	place, rec, err := s.svc.Facts(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, factsResponse{Place: place, Facts: rec})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CityA string `json:"cityA"`
		CityB string `json:"cityB"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Compare(r.Context(), body.CityA, body.CityB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, r, errReportsDisabled)
		return
	}
	var q model.PlaceQuery
	if err := decodeBody(w, r, &q); err != nil {
		writeError(w, r, err)
		return
	}
	place, rec, err := s.svc.Facts(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := s.reports.Write(r.Context(), place, rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		factsResponse
		Report string `json:"report"`
	}{factsResponse{Place: place, Facts: rec}, text})
}

func parseFloat(raw, field string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, &model.InvalidInputError{Field: field, Reason: "is required"}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &model.InvalidInputError{Field: field, Reason: "must be a number"}
	}
	return v, nil
}

// parseZoom reads an optional zoom, truncated and clamped to [0, MaxZoom].
func parseZoom(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, &model.InvalidInputError{Field: "zoom", Reason: "must be a number"}
	}
	z = math.Max(0, math.Min(z, model.MaxZoom))
	return int(z), nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
