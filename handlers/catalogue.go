package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/giygas/allergycheck-api/clinicalsync"
	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/logging"
	"github.com/go-chi/chi/v5"
)

const drugsPageSize = 20

type allergyResponse struct {
	entities.Allergy
	ConflictingDrugIDs []int `json:"conflicting_drug_ids"`
}

// ServeDrugs lists the drug catalogue, optionally filtered by ?search= and paged by ?page=
func (h *HTTPHandlerImpl) ServeDrugs(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			logging.Warn("Unusual user input", "page", raw)
			h.RespondWithError(w, http.StatusBadRequest, "Invalid page number")
			return
		}
		page = p
	}

	drugs := h.dataStore.GetDrugs()

	if search := r.URL.Query().Get("search"); search != "" {
		if err := h.validator.ValidateInput(search); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		term := clinicalsync.NormalizeSearch(search)
		matches := make([]entities.Drug, 0)
		for _, d := range drugs {
			haystack := d.SearchNormalized
			if haystack == "" {
				haystack = clinicalsync.NormalizeSearch(d.Name + " " + d.GenericName + " " + d.Category)
			}
			if strings.Contains(haystack, term) {
				matches = append(matches, d)
			}
		}
		drugs = matches
	}

	totalItems := len(drugs)
	maxPage := max((totalItems+drugsPageSize-1)/drugsPageSize, 1)

	if page > maxPage {
		h.RespondWithError(w, http.StatusNotFound, "Page not found")
		return
	}

	start := (page - 1) * drugsPageSize
	end := min(start+drugsPageSize, totalItems)

	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"data":       drugs[start:end],
		"page":       page,
		"pageSize":   drugsPageSize,
		"totalItems": totalItems,
		"maxPage":    maxPage,
	})
}

// FindDrugByID returns one drug with its allergy conflicts
func (h *HTTPHandlerImpl) FindDrugByID(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateID(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid drug ID")
		return
	}

	drug, ok := h.dataStore.GetDrugsMap()[id]
	if !ok {
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, drug)
}

// ServeAllergies returns the allergy reference list
func (h *HTTPHandlerImpl) ServeAllergies(w http.ResponseWriter, r *http.Request) {
	allergies := h.dataStore.GetAllergies()
	if allergies == nil {
		allergies = []entities.Allergy{}
	}
	h.RespondWithJSON(w, http.StatusOK, allergies)
}

// FindAllergyByID returns one allergy and the ids of the drugs that conflict with it
func (h *HTTPHandlerImpl) FindAllergyByID(w http.ResponseWriter, r *http.Request) {
	id, err := h.validator.ValidateID(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid allergy ID")
		return
	}

	allergy, ok := h.dataStore.GetAllergiesMap()[id]
	if !ok {
		h.RespondWithError(w, http.StatusNotFound, "Allergy not found")
		return
	}

	drugIDs := h.dataStore.GetConflictIndex()[id]
	if drugIDs == nil {
		drugIDs = []int{}
	}

	h.RespondWithJSON(w, http.StatusOK, allergyResponse{
		Allergy:            allergy,
		ConflictingDrugIDs: drugIDs,
	})
}
