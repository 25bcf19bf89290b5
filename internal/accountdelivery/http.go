// Package accountdelivery exposes read-only views of the caller's accounts.
package accountdelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/internal/middleware"
)

// Directory provides the account lookups needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Directory interface {
	GetAccount(ctx context.Context, iban string) (domain.Account, error)
	ListAccountsByClient(ctx context.Context, clientGUID string) ([]domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	accounts Directory
}

// NewHandler returns account handler.
func NewHandler(accounts Directory) Handler {
	return Handler{accounts: accounts}
}

// Register mounts the account routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/accounts", h.List)
	r.GET("/accounts/:iban", h.Get)
}

type data struct {
	Account domain.Account `json:"account"`
}

type dataAccounts struct {
	Accounts []domain.Account `json:"accounts"`
}

type response struct {
	Data any `json:"data,omitempty"`
}

type getRequest struct {
	IBAN string `uri:"iban" binding:"required"`
}

// Get handles http request to get one of the caller's accounts with its current balance.
func (h *Handler) Get(gctx *gin.Context) {
	var req getRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		middleware.RespondBindError(gctx, err)
		return
	}

	acc, err := h.accounts.GetAccount(gctx.Request.Context(), req.IBAN)
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	if acc.ClientGUID != middleware.ClientGUID(gctx) {
		middleware.RespondError(gctx, domain.NewNotFoundError(domain.ErrAccountNotFound, req.IBAN))
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{acc}})
}

// List handles http request to list the caller's accounts.
func (h *Handler) List(gctx *gin.Context) {
	accounts, err := h.accounts.ListAccountsByClient(gctx.Request.Context(), middleware.ClientGUID(gctx))
	if err != nil {
		middleware.RespondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: dataAccounts{accounts}})
}
