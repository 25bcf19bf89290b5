package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-petr/movement-engine/pkg/errorspkg"
	"github.com/go-petr/movement-engine/pkg/web"
)

// ErrorStatus maps an error category to its HTTP status.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrContention):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// RespondError writes the error response for err. Internal failures are logged
// and reported with the generic internal message.
func RespondError(gctx *gin.Context, err error) {
	l := zerolog.Ctx(gctx.Request.Context())

	status := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		l.Error().Err(err).Send()
		gctx.JSON(status, web.Error(errorspkg.ErrInternal))

		return
	}

	l.Info().Err(err).Send()
	gctx.JSON(status, web.Error(err))
}

// RespondBindError writes the 400 response for a request that failed binding.
func RespondBindError(gctx *gin.Context, err error) {
	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
	gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})
}
