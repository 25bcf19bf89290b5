// Package movementdelivery manages delivery layer of movements.
package movementdelivery

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/middleware"
)

// Service provides service layer interface needed by movement delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package movementdelivery
type Service interface {
	SubmitTransfer(ctx context.Context, clientGUID string, t domain.Transfer) (domain.Movement, error)
	SubmitCardPayment(ctx context.Context, clientGUID string, p domain.CardPayment) (domain.Movement, error)
	SubmitPayrollDeposit(ctx context.Context, clientGUID string, p domain.PayrollDeposit) (domain.Movement, error)
	Get(ctx context.Context, id int64) (domain.Movement, error)
	GetByGUID(ctx context.Context, guid string) (domain.Movement, error)
	ListByClient(ctx context.Context, clientGUID string) ([]domain.Movement, error)
	SoftDelete(ctx context.Context, id int64) error
}

// Handler facilitates movement delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns movement handler.
func NewHandler(s Service) Handler {
	return Handler{service: s}
}

// Register mounts the movement routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/movements/transfers", h.CreateTransfer)
	r.POST("/movements/card-payments", h.CreateCardPayment)
	r.POST("/movements/payroll-deposits", h.CreatePayrollDeposit)
	r.GET("/movements", h.List)
	r.GET("/movements/:id", h.Get)
	r.GET("/movements/guid/:guid", h.GetByGUID)
	r.DELETE("/movements/:id", h.Delete)
}

type data struct {
	Movement domain.Movement `json:"movement"`
}

type dataMovements struct {
	Movements []domain.Movement `json:"movements"`
}

type response struct {
	Data any `json:"data,omitempty"`
}

type transferRequest struct {
	FromIBAN    string `json:"from_iban" binding:"required"`
	ToIBAN      string `json:"to_iban" binding:"required"`
	Amount      string `json:"amount" binding:"required,amount"`
	Beneficiary string `json:"beneficiary"`
}

// CreateTransfer handles http request to submit a transfer.
func (h *Handler) CreateTransfer(gctx *gin.Context) {
	var req transferRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	t := domain.Transfer{
		FromIBAN:    req.FromIBAN,
		ToIBAN:      req.ToIBAN,
		Amount:      amount,
		Beneficiary: req.Beneficiary,
	}

	mv, err := h.service.SubmitTransfer(gctx.Request.Context(), middleware.ClientGUID(gctx), t)
	h.respondMovement(gctx, mv, err)
}

type cardPaymentRequest struct {
	CardNumber string `json:"card_number" binding:"required"`
	Amount     string `json:"amount" binding:"required,amount"`
	Merchant   string `json:"merchant"`
}

// CreateCardPayment handles http request to submit a card payment.
func (h *Handler) CreateCardPayment(gctx *gin.Context) {
	var req cardPaymentRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	p := domain.CardPayment{
		CardNumber: req.CardNumber,
		Amount:     amount,
		Merchant:   req.Merchant,
	}

	mv, err := h.service.SubmitCardPayment(gctx.Request.Context(), middleware.ClientGUID(gctx), p)
	h.respondMovement(gctx, mv, err)
}

type payrollDepositRequest struct {
	FromIBAN     string `json:"from_iban" binding:"required"`
	ToIBAN       string `json:"to_iban" binding:"required"`
	Amount       string `json:"amount" binding:"required,amount"`
	Company      string `json:"company"`
	CompanyTaxID string `json:"company_tax_id"`
}

// CreatePayrollDeposit handles http request to submit a payroll deposit.
func (h *Handler) CreatePayrollDeposit(gctx *gin.Context) {
	var req payrollDepositRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	p := domain.PayrollDeposit{
		FromIBAN:     req.FromIBAN,
		ToIBAN:       req.ToIBAN,
		Amount:       amount,
		Company:      req.Company,
		CompanyTaxID: req.CompanyTaxID,
	}

	mv, err := h.service.SubmitPayrollDeposit(gctx.Request.Context(), middleware.ClientGUID(gctx), p)
	h.respondMovement(gctx, mv, err)
}

func (h *Handler) respondMovement(gctx *gin.Context, mv domain.Movement, err error) {
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{mv}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get one of the caller's movements.
func (h *Handler) Get(gctx *gin.Context) {
	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	mv, err := h.owned(gctx, strconv.FormatInt(req.ID, 10), func(ctx context.Context) (domain.Movement, error) {
		return h.service.Get(ctx, req.ID)
	})
	h.respondMovement(gctx, mv, err)
}

type getByGUIDRequest struct {
	GUID string `uri:"guid" binding:"required,uuid"`
}

// GetByGUID handles http request to get one of the caller's movements by guid.
func (h *Handler) GetByGUID(gctx *gin.Context) {
	var req getByGUIDRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	mv, err := h.owned(gctx, req.GUID, func(ctx context.Context) (domain.Movement, error) {
		return h.service.GetByGUID(ctx, req.GUID)
	})
	h.respondMovement(gctx, mv, err)
}

// List handles http request to list the caller's movements.
func (h *Handler) List(gctx *gin.Context) {
	movements, err := h.service.ListByClient(gctx.Request.Context(), middleware.ClientGUID(gctx))
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: dataMovements{movements}})
}

// Delete handles http request to soft delete one of the caller's movements.
func (h *Handler) Delete(gctx *gin.Context) {
	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	ctx := gctx.Request.Context()

	_, err := h.owned(gctx, strconv.FormatInt(req.ID, 10), func(ctx context.Context) (domain.Movement, error) {
		return h.service.Get(ctx, req.ID)
	})
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	if err := h.service.SoftDelete(ctx, req.ID); err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	gctx.Status(http.StatusNoContent)
}

// owned runs get and reports movements of other clients as not found under ref.
func (h *Handler) owned(
	gctx *gin.Context,
	ref string,
	get func(ctx context.Context) (domain.Movement, error),
) (domain.Movement, error) {
	mv, err := get(gctx.Request.Context())
	if err != nil {
		return domain.Movement{}, err
	}

	if mv.ClientGUID != middleware.ClientGUID(gctx) {
		return domain.Movement{}, domain.NewNotFoundError(domain.ErrMovementNotFound, ref)
	}

	return mv, nil
}
