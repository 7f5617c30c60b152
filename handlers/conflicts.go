package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/giygas/allergycheck-api/clinicalsync"
	"github.com/giygas/allergycheck-api/clinicalsync/entities"
	"github.com/giygas/allergycheck-api/conflicts"
	"github.com/giygas/allergycheck-api/logging"
	"github.com/giygas/allergycheck-api/metrics"
	"github.com/go-chi/chi/v5"
)

const maxDrugsPerRequest = 50

type evaluateRequest struct {
	Patient *entities.Patient `json:"patient"`
	Drug    *entities.Drug    `json:"drug"`
}

type evaluateManyRequest struct {
	Patient *entities.Patient `json:"patient"`
	Drugs   []*entities.Drug  `json:"drugs"`
}

type prescriptionRequest struct {
	Patient     int                           `json:"patient" validate:"required,gt=0"`
	Medications []entities.MedicationLineItem `json:"medications" validate:"required,min=1,max=50,dive"`
}

// evaluation is a conflict result with its rendered warning; Warning is null without conflict
type evaluation struct {
	conflicts.Result
	Warning *string `json:"warning"`
}

type patientConflictsResponse struct {
	PatientID      int          `json:"patient_id"`
	Results        []evaluation `json:"results"`
	UnknownDrugIDs []int        `json:"unknown_drug_ids"`
	HasConflict    bool         `json:"has_conflict"`
	Names          []string     `json:"names"`
	AllergyWarning *string      `json:"allergy_warning"`
}

type prescriptionResponse struct {
	PatientID int `json:"patient_id"`
	conflicts.PrescriptionResult
	AllergyWarning *string `json:"allergy_warning"`
}

func withWarning(result conflicts.Result) evaluation {
	e := evaluation{Result: result}
	if warning, ok := conflicts.FormatWarning(result); ok {
		e.Warning = &warning
	}
	return e
}

func prescriptionWarning(result conflicts.PrescriptionResult) *string {
	if warning, ok := conflicts.FormatPrescriptionWarning(result); ok {
		return &warning
	}
	return nil
}

// EvaluateConflict evaluates one inline patient snapshot against one inline drug
func (h *HTTPHandlerImpl) EvaluateConflict(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result := conflicts.EvaluateSingle(req.Patient, req.Drug)
	metrics.RecordEvaluation("evaluate", result.HasConflict)

	h.RespondWithJSON(w, http.StatusOK, withWarning(result))
}

// EvaluateConflicts evaluates one inline patient snapshot against several drugs, one result per drug
func (h *HTTPHandlerImpl) EvaluateConflicts(w http.ResponseWriter, r *http.Request) {
	var req evaluateManyRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if len(req.Drugs) > maxDrugsPerRequest {
		h.RespondWithError(w, http.StatusBadRequest, "Too many drugs in one request")
		return
	}

	results := conflicts.EvaluateMany(req.Patient, req.Drugs)
	out := make([]evaluation, len(results))
	for i, result := range results {
		metrics.RecordEvaluation("evaluate-many", result.HasConflict)
		out[i] = withWarning(result)
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]any{"results": out})
}

// PatientConflicts evaluates a backend patient against catalogue drugs listed in ?drugs=1,2
func (h *HTTPHandlerImpl) PatientConflicts(w http.ResponseWriter, r *http.Request) {
	patientID, err := h.validator.ValidateID(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid patient ID")
		return
	}

	drugIDs, err := h.parseDrugIDs(r.URL.Query().Get("drugs"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	patient, err := h.patients.FetchPatient(r.Context(), patientID)
	if err != nil {
		h.respondWithBackendError(w, err, "Patient not found")
		return
	}

	drugs := make([]*entities.Drug, 0, len(drugIDs))
	unknown := []int{}
	for _, id := range drugIDs {
		drug, ok := h.dataStore.FindDrug(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		drugs = append(drugs, drug)
	}

	results := conflicts.EvaluateMany(patient, drugs)
	out := make([]evaluation, len(results))
	for i, result := range results {
		metrics.RecordEvaluation("patient", result.HasConflict)
		out[i] = withWarning(result)
	}

	names := conflicts.MergeNames(results)
	aggregate := conflicts.PrescriptionResult{HasConflict: len(names) > 0, Names: names}

	h.RespondWithJSON(w, http.StatusOK, patientConflictsResponse{
		PatientID:      patientID,
		Results:        out,
		UnknownDrugIDs: unknown,
		HasConflict:    aggregate.HasConflict,
		Names:          names,
		AllergyWarning: prescriptionWarning(aggregate),
	})
}

// CheckPrescription evaluates every medication line of a prescription draft
// against the backend patient and returns the aggregated allergy_warning
func (h *HTTPHandlerImpl) CheckPrescription(w http.ResponseWriter, r *http.Request) {
	var req prescriptionRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	patient, err := h.patients.FetchPatient(r.Context(), req.Patient)
	if err != nil {
		h.respondWithBackendError(w, err, "Patient not found")
		return
	}

	result := conflicts.EvaluatePrescription(patient, req.Medications, h.dataStore.FindDrug)
	for _, line := range result.Lines {
		if line.DrugFound {
			metrics.RecordEvaluation("prescription", line.Result.HasConflict)
		}
	}

	h.RespondWithJSON(w, http.StatusOK, prescriptionResponse{
		PatientID:          req.Patient,
		PrescriptionResult: result,
		AllergyWarning:     prescriptionWarning(result),
	})
}

// parseDrugIDs parses a comma separated list of positive drug ids, keeping
// the first occurrence of each id.
func (h *HTTPHandlerImpl) parseDrugIDs(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("drugs query parameter is required")
	}

	parts := strings.Split(raw, ",")
	if len(parts) > maxDrugsPerRequest {
		return nil, errors.New("too many drugs in one request")
	}

	ids := make([]int, 0, len(parts))
	seen := make(map[int]struct{}, len(parts))
	for _, part := range parts {
		id, err := h.validator.ValidateID(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.New("invalid drug ID: " + part)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *HTTPHandlerImpl) respondWithBackendError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, clinicalsync.ErrNotFound):
		h.RespondWithError(w, http.StatusNotFound, notFound)
	case isTimeout(err):
		logging.Warn("Clinical backend timed out", "error", err)
		h.RespondWithError(w, http.StatusGatewayTimeout, "Clinical backend timed out")
	default:
		logging.Error("Clinical backend request failed", "error", err)
		h.RespondWithError(w, http.StatusBadGateway, "Clinical backend unavailable")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
