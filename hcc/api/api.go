package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/seenhealth/hccinfhir/hcc/constants"
	hccErrors "github.com/seenhealth/hccinfhir/hcc/errors"
	"github.com/seenhealth/hccinfhir/hcc/extract"
	"github.com/seenhealth/hccinfhir/hcc/models"
	"github.com/seenhealth/hccinfhir/hcc/raf"
	"github.com/seenhealth/hccinfhir/hcc/responseutils"
	"github.com/seenhealth/hccinfhir/hcc/tables"
	"github.com/seenhealth/hccinfhir/log"
)

// Handler serves the scoring endpoints. A single handler serves every
// supported model; each request names its own.
type Handler struct {
	calc       *raf.Calculator
	reg        *tables.Registry
	RespWriter responseutils.ResponseWriter
}

func NewHandler(reg *tables.Registry) *Handler {
	return &Handler{
		calc:       raf.New(reg),
		reg:        reg,
		RespWriter: responseutils.NewResponseWriter(),
	}
}

// ScoreRequest is the JSON body accepted by the scoring endpoints. Model
// falls back to CMS-HCC V28 when absent.
type ScoreRequest struct {
	DiagnosisCodes []string `json:"diagnosis_codes,omitempty"`
	Categories     []string `json:"categories,omitempty"`
	Model          string   `json:"model,omitempty"`
	MRN            string   `json:"mrn,omitempty"`
	Age            int      `json:"age,omitempty"`
	Sex            string   `json:"sex,omitempty"`
	DualCode       string   `json:"dual_elgbl_cd,omitempty"`
	OREC           string   `json:"orec,omitempty"`
	CREC           string   `json:"crec,omitempty"`
	NewEnrollee    bool     `json:"new_enrollee,omitempty"`
	SNP            bool     `json:"snp,omitempty"`
	LowIncome      bool     `json:"low_income,omitempty"`
	LTI            bool     `json:"lti,omitempty"`
	GraftMonths    int      `json:"graft_months,omitempty"`

	ReferenceCodes []string            `json:"reference_codes,omitempty"`
	Provenance     map[string][]string `json:"provenance,omitempty"`
}

func (req ScoreRequest) options() raf.ScoreOptions {
	opts := raf.ScoreOptions{
		ModelName:      req.Model,
		Age:            req.Age,
		Sex:            req.Sex,
		DualCode:       req.DualCode,
		OREC:           req.OREC,
		CREC:           req.CREC,
		NewEnrollee:    req.NewEnrollee,
		SNP:            req.SNP,
		LowIncome:      req.LowIncome,
		LTI:            req.LTI,
		GraftMonths:    req.GraftMonths,
		ReferenceCodes: req.ReferenceCodes,
		Provenance:     req.Provenance,
	}
	if req.Model == "" {
		opts.Model = models.CMSHCCV28
	}
	return opts
}

type ErrorResponse struct {
	Error           string   `json:"error"`
	Field           string   `json:"field,omitempty"`
	SupportedModels []string `json:"supported_models,omitempty"`
}

type ModelsResponse struct {
	Models []string `json:"models"`
}

// Score computes a risk score from raw diagnosis codes and demographics.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScoreRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.calc.Score(req.DiagnosisCodes, req.options())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// ScoreCategories scores an already-mapped category list, the
// counterfactual entry point for callers replaying or editing a mapping.
func (h *Handler) ScoreCategories(w http.ResponseWriter, r *http.Request) {
	req, err := decodeScoreRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.calc.ScoreFromCategories(req.Categories, req.options())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// ScoreClaims accepts a raw claims payload (FHIR EOB JSON, NDJSON, or an
// X12 837 transaction) in the request body, with the model and
// demographics as query parameters. Lines are filtered for eligibility
// before their diagnosis codes are scored.
func (h *Handler) ScoreClaims(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, r, errors.Wrap(err, "read claims payload"))
		return
	}

	lines, err := extract.Extract(data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.calc.ScoreServiceData(lines, scoreRequestFromQuery(r.URL.Query()).options())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Models lists the supported model names.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ModelsResponse{Models: models.SupportedModels()})
}

// RiskAssessment renders a scoring request as a FHIR R4 bundle of
// RiskAssessment resources. GET reads the request from query parameters,
// POST from the same JSON body the score endpoint accepts.
func (h *Handler) RiskAssessment(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if r.Method == http.MethodPost {
		var err error
		if req, err = decodeScoreRequest(r); err != nil {
			h.RespWriter.Exception(r.Context(), w, http.StatusBadRequest, responseutils.RequestErr, err.Error())
			return
		}
	} else {
		req = scoreRequestFromQuery(r.URL.Query())
	}

	result, err := h.calc.Score(req.DiagnosisCodes, req.options())
	if err != nil {
		h.fhirError(r.Context(), w, err)
		return
	}
	h.RespWriter.RiskBundle(r.Context(), w, result, req.MRN)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	m := make(map[string]string)
	if len(h.reg.For(models.CMSHCCV28).Diagnoses()) > 0 && h.reg.ProcedureCount() > 0 {
		m["tables"] = "ok"
		w.WriteHeader(http.StatusOK)
	} else {
		m["tables"] = "error"
		w.WriteHeader(http.StatusBadGateway)
	}
	render.JSON(w, r, m)
}

func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"version": constants.Version})
}

func decodeScoreRequest(r *http.Request) (ScoreRequest, error) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ScoreRequest{}, &hccErrors.ValidationError{Field: "body", Msg: "request body must be JSON"}
	}
	return req, nil
}

func scoreRequestFromQuery(q url.Values) ScoreRequest {
	age, _ := strconv.Atoi(q.Get("age"))
	graft, _ := strconv.Atoi(q.Get("graft_months"))
	return ScoreRequest{
		DiagnosisCodes: splitCodes(q["codes"]),
		Model:          q.Get("model"),
		MRN:            q.Get("mrn"),
		Age:            age,
		Sex:            q.Get("sex"),
		DualCode:       q.Get("dual_elgbl_cd"),
		OREC:           q.Get("orec"),
		CREC:           q.Get("crec"),
		NewEnrollee:    queryFlag(q.Get("new_enrollee")),
		SNP:            queryFlag(q.Get("snp")),
		LowIncome:      queryFlag(q.Get("low_income")),
		LTI:            queryFlag(q.Get("lti")),
		GraftMonths:    graft,
	}
}

func splitCodes(params []string) []string {
	var codes []string
	for _, param := range params {
		for _, code := range strings.Split(param, ",") {
			if code = strings.TrimSpace(code); code != "" {
				codes = append(codes, code)
			}
		}
	}
	return codes
}

func queryFlag(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var modelErr *hccErrors.UnsupportedModelError
	var validationErr *hccErrors.ValidationError

	switch {
	case errors.As(err, &modelErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: modelErr.Error(), SupportedModels: modelErr.Supported})
	case errors.As(err, &validationErr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: validationErr.Error(), Field: validationErr.Field})
	default:
		log.GetCtxLogger(r.Context()).Error(err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "internal error"})
	}
}

func (h *Handler) fhirError(ctx context.Context, w http.ResponseWriter, err error) {
	var modelErr *hccErrors.UnsupportedModelError
	var validationErr *hccErrors.ValidationError

	switch {
	case errors.As(err, &modelErr):
		h.RespWriter.Exception(ctx, w, http.StatusBadRequest, responseutils.ModelErr, err.Error())
	case errors.As(err, &validationErr):
		h.RespWriter.Exception(ctx, w, http.StatusBadRequest, responseutils.RequestErr, err.Error())
	default:
		log.GetCtxLogger(ctx).Error(err)
		h.RespWriter.Exception(ctx, w, http.StatusInternalServerError, responseutils.InternalErr, "")
	}
}
