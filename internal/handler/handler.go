package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/lending-ledger/internal/amortization"
	"github.com/segyhp/lending-ledger/internal/domain"
	customError "github.com/segyhp/lending-ledger/pkg/errors"
	"github.com/segyhp/lending-ledger/pkg/response"
)

type LoanService interface {
	Simulate(ctx context.Context, req *domain.TermsRequest) (*amortization.Schedule, error)
	Create(ctx context.Context, req *domain.CreateLoanRequest) (*domain.LoanDetail, error)
	Get(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetail, error)
	List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error)
	Update(ctx context.Context, loanID uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error)
	Cancel(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error)
	ExportSchedule(ctx context.Context, loanID uuid.UUID) ([]domain.ScheduleExportRow, error)
	Audit(ctx context.Context, loanID uuid.UUID) (*domain.LoanAudit, error)
	OverdueReport(ctx context.Context, asOf time.Time) ([]*domain.OverdueInstallment, error)
}

type ExpenseService interface {
	Attach(ctx context.Context, loanID uuid.UUID, req *domain.AttachExpenseRequest) (*domain.Expense, error)
	Update(ctx context.Context, expenseID uuid.UUID, req *domain.UpdateExpenseRequest) (*domain.Expense, error)
	Remove(ctx context.Context, expenseID uuid.UUID, acknowledged bool) error
}

type PaymentService interface {
	Pay(ctx context.Context, req *domain.PayRequest) (*domain.PaymentReceipt, error)
}

type RecalculationService interface {
	Preview(ctx context.Context, loanID uuid.UUID, req *domain.RecalculateRequest) (*domain.RecalculationPlan, error)
	Commit(ctx context.Context, loanID uuid.UUID, req *domain.CommitRecalculationRequest) (*domain.RecalculationPlan, error)
}

type DeletionService interface {
	Preview(ctx context.Context, loanID uuid.UUID) (*domain.DeletionPreview, error)
	SoftDelete(ctx context.Context, loanID uuid.UUID, req *domain.SoftDeleteRequest) (*domain.ReversalSummary, error)
}

// NewValidator returns a validator that understands decimal amounts.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. An empty body is
// accepted for requests whose fields are all optional.
func decode(r *http.Request, v *validator.Validate, dst interface{}) error {
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return customError.WrapValidation("invalid request body: %v", err)
		}
	}
	if err := v.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return customError.WrapValidation("%v", err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fe.Field()+" failed "+fe.Tag()+"="+fe.Param())
		} else {
			parts = append(parts, fe.Field()+" failed "+fe.Tag())
		}
	}
	return customError.WrapValidation("%s", strings.Join(parts, "; "))
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, customError.WrapValidation("%s must be a UUID, got %q", name, raw)
	}
	return id, nil
}

// statusFor maps business error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case customError.ErrCodeValidation:
		return http.StatusBadRequest
	case customError.ErrCodeLoanNotFound, customError.ErrCodeInstallmentNotFound, customError.ErrCodeExpenseNotFound:
		return http.StatusNotFound
	case customError.ErrCodeAlreadyPaid,
		customError.ErrCodeDuplicateExpenseKind,
		customError.ErrCodeExpenseLocked,
		customError.ErrCodeCurrencyLocked,
		customError.ErrCodeLoanNotActive,
		customError.ErrCodeConcurrentModification:
		return http.StatusConflict
	case customError.ErrCodeNothingToRecalculate:
		return http.StatusUnprocessableEntity
	case customError.ErrCodeConfirmationRequired:
		return http.StatusPreconditionRequired
	case customError.ErrCodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		logger.Error("unhandled error", zap.Error(err))
		response.InternalServerError(w, "Internal server error", nil)
		return
	}

	status := statusFor(be.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", be.Code), zap.Error(err))
	}
	response.Problem(w, status, be.Code, be.Message, be.Fields, be.Retryable)
}
