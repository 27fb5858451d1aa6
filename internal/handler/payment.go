package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/domain"
	"github.com/segyhp/lending-ledger/pkg/response"
)

type PaymentHandler struct {
	payments  PaymentService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewPaymentHandler(payments PaymentService, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{
		payments:  payments,
		validator: NewValidator(),
		logger:    logger,
	}
}

// Pay handles POST /api/v1/installments/{installmentId}/payments
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	installmentID, err := pathUUID(r, "installmentId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req domain.PayRequest
	if err := decode(r, h.validator, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.InstallmentID = installmentID

	receipt, err := h.payments.Pay(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, receipt)
}
