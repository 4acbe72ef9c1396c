package ingest

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"inlet/internal/logger"
	"inlet/pkg/errors"
)

type Handler struct {
	Service         *Service
	SignatureHeader string
	Logger          logger.Logger
}

func NewHandler(service *Service, signatureHeader string, log logger.Logger) *Handler {
	return &Handler{
		Service:         service,
		SignatureHeader: signatureHeader,
		Logger:          log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/webhook", h.ReceiveWebhook)
}

// ReceiveWebhook godoc
// @Summary      Ingest a webhook delivery
// @Description  Verify the HMAC signature over the raw body, validate the payload and store the message exactly once per id
// @Tags         webhook
// @Accept       json
// @Produce      json
// @Param        X-Signature  header    string          true  "Hex or base64 HMAC-SHA256 of the raw request body"
// @Param        payload      body      WebhookPayload  true  "Message payload"
// @Success      200          {object}  Receipt
// @Failure      401          {object}  errors.ErrorResponse
// @Failure      422          {object}  errors.ErrorResponse
// @Failure      429          {object}  errors.ErrorResponse
// @Failure      503          {object}  errors.ErrorResponse
// @Router       /webhook [post]
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.handleError(c, errors.ErrMalformedPayload.WithCause(err))
		return
	}

	receipt, err := h.Service.Process(
		c.Request.Context(),
		rawBody,
		c.GetHeader(h.SignatureHeader),
		c.ClientIP(),
	)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.Logger.WarnwCtx(c.Request.Context(), "Webhook rejected", "error", err, "client_ip", c.ClientIP())
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}
