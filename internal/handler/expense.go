package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/domain"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/response"
)

type ExpenseHandler struct {
	expenses  ExpenseService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewExpenseHandler(expenses ExpenseService, logger *zap.Logger) *ExpenseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseHandler{
		expenses:  expenses,
		validator: NewValidator(),
		logger:    logger,
	}
}

// Attach handles POST /api/v1/loans/{loanId}/expenses
func (h *ExpenseHandler) Attach(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.AttachExpenseRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	expense, err := h.expenses.Attach(r.Context(), loanID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, expense)
}

// Update handles PATCH /api/v1/expenses/{expenseId}
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathUUID(r, "expenseId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.UpdateExpenseRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	expense, err := h.expenses.Update(r.Context(), expenseID, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, expense)
}

// Remove handles DELETE /api/v1/expenses/{expenseId}?acknowledged=true
func (h *ExpenseHandler) Remove(w http.ResponseWriter, r *http.Request) {
	expenseID, err := pathUUID(r, "expenseId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	acknowledged := false
	if raw := r.URL.Query().Get("acknowledged"); raw != "" {
		acknowledged, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, h.logger, customError.WrapValidation("acknowledged must be a boolean, got %q", raw))
			return
		}
	}

	if err := h.expenses.Remove(r.Context(), expenseID, acknowledged); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.NoContent(w)
}
