package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/domain"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/response"
	"github.com/segyhp/lending-ledger/pkg/utils"
)

// LoanHandler serves the loan resource: simulation, creation, reads,
// recalculation and deletion.
type LoanHandler struct {
	loans           LoanService
	recalc          RecalculationService
	deletion        DeletionService
	validator       *validator.Validate
	logger          *zap.Logger
	defaultCurrency domain.Currency
}

func NewLoanHandler(
	loans LoanService,
	recalc RecalculationService,
	deletion DeletionService,
	defaultCurrency domain.Currency,
	logger *zap.Logger,
) *LoanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanHandler{
		loans:           loans,
		recalc:          recalc,
		deletion:        deletion,
		validator:       NewValidator(),
		logger:          logger,
		defaultCurrency: defaultCurrency,
	}
}

// Simulate handles POST /api/v1/simulations
func (h *LoanHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req domain.TermsRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	schedule, err := h.loans.Simulate(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, schedule)
}

// Create handles POST /api/v1/loans
func (h *LoanHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := domain.CreateLoanRequest{Currency: h.defaultCurrency}
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	detail, err := h.loans.Create(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, detail)
}

// List handles GET /api/v1/loans?client_id=&status=
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.LoanFilter{
		ClientID: r.URL.Query().Get("client_id"),
		Status:   domain.LoanStatus(r.URL.Query().Get("status")),
	}

	loans, err := h.loans.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, loans)
}

// Get handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	detail, err := h.loans.Get(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, detail)
}

// Update handles PATCH /api/v1/loans/{loanId}
func (h *LoanHandler) Update(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.UpdateLoanRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.loans.Update(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, loan)
}

// Cancel handles POST /api/v1/loans/{loanId}/cancel
func (h *LoanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	loan, err := h.loans.Cancel(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, loan)
}

// ExportSchedule handles GET /api/v1/loans/{loanId}/schedule/export
func (h *LoanHandler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rows, err := h.loans.ExportSchedule(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rows)
}

// Audit handles GET /api/v1/loans/{loanId}/audit
func (h *LoanHandler) Audit(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	audit, err := h.loans.Audit(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, audit)
}

// Overdue handles GET /api/v1/installments/overdue?as_of=YYYY-MM-DD
func (h *LoanHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			writeError(w, h.logger, customError.WrapValidation("as_of must be YYYY-MM-DD, got %q", raw))
			return
		}
		asOf = parsed
	}

	rows, err := h.loans.OverdueReport(r.Context(), asOf)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rows)
}

// PreviewRecalculation handles POST /api/v1/loans/{loanId}/recalculation/preview
func (h *LoanHandler) PreviewRecalculation(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.RecalculateRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	plan, err := h.recalc.Preview(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, plan)
}

// CommitRecalculation handles POST /api/v1/loans/{loanId}/recalculation/commit
func (h *LoanHandler) CommitRecalculation(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.CommitRecalculationRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	plan, err := h.recalc.Commit(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, plan)
}

// PreviewDeletion handles GET /api/v1/loans/{loanId}/deletion/preview
func (h *LoanHandler) PreviewDeletion(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	preview, err := h.deletion.Preview(r.Context(), loanID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, preview)
}

// Delete handles DELETE /api/v1/loans/{loanId}. Confirmation can come from the
// body or from ?confirmed=true.
func (h *LoanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.SoftDeleteRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if raw := r.URL.Query().Get("confirmed"); raw != "" {
		confirmed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, h.logger, customError.WrapValidation("confirmed must be a boolean, got %q", raw))
			return
		}
		req.Confirmed = req.Confirmed || confirmed
	}

	summary, err := h.deletion.SoftDelete(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, summary)
}
