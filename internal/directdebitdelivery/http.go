// Package directdebitdelivery manages delivery layer of direct debits.
package directdebitdelivery

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/middleware"
)

// Service provides service layer interface needed by direct debit delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package directdebitdelivery
type Service interface {
	Create(ctx context.Context, clientGUID string, arg domain.CreateDirectDebitParams) (domain.DirectDebit, error)
	Get(ctx context.Context, id int64) (domain.DirectDebit, error)
	ListByClient(ctx context.Context, clientGUID string) ([]domain.DirectDebit, error)
	Deactivate(ctx context.Context, clientGUID string, id int64) (domain.DirectDebit, error)
}

// Handler facilitates direct debit delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns direct debit handler.
func NewHandler(s Service) Handler {
	return Handler{service: s}
}

// Register mounts the direct debit routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/direct-debits", h.Create)
	r.GET("/direct-debits", h.List)
	r.GET("/direct-debits/:id", h.Get)
	r.DELETE("/direct-debits/:id", h.Deactivate)
}

type data struct {
	DirectDebit domain.DirectDebit `json:"direct_debit"`
}

type dataDirectDebits struct {
	DirectDebits []domain.DirectDebit `json:"direct_debits"`
}

type response struct {
	Data any `json:"data,omitempty"`
}

type createRequest struct {
	FromIBAN    string `json:"from_iban" binding:"required"`
	Creditor    string `json:"creditor" binding:"required"`
	Amount      string `json:"amount" binding:"required,amount"`
	Periodicity string `json:"periodicity" binding:"required,periodicity"`
}

// Create handles http request to create a direct debit.
func (h *Handler) Create(gctx *gin.Context) {
	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	amount, err := domain.ParseMoney(req.Amount)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	arg := domain.CreateDirectDebitParams{
		FromIBAN:    req.FromIBAN,
		Creditor:    req.Creditor,
		Amount:      amount,
		Periodicity: domain.Periodicity(req.Periodicity),
	}

	d, err := h.service.Create(gctx.Request.Context(), middleware.ClientGUID(gctx), arg)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{d}})
}

// List handles http request to list the caller's direct debits.
func (h *Handler) List(gctx *gin.Context) {
	directDebits, err := h.service.ListByClient(gctx.Request.Context(), middleware.ClientGUID(gctx))
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: dataDirectDebits{directDebits}})
}

type getRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get one of the caller's direct debits.
func (h *Handler) Get(gctx *gin.Context) {
	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	d, err := h.service.Get(gctx.Request.Context(), req.ID)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	if d.ClientGUID != middleware.ClientGUID(gctx) {
		middleware.RespondError(gctx, domain.NewNotFoundError(domain.ErrDirectDebitNotFound, strconv.FormatInt(req.ID, 10)))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{d}})
}

// Deactivate handles http request to deactivate one of the caller's direct debits.
func (h *Handler) Deactivate(gctx *gin.Context) {
	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	d, err := h.service.Deactivate(gctx.Request.Context(), middleware.ClientGUID(gctx), req.ID)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{d}})
}
