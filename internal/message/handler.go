package message

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"inlet/internal/logger"
	"inlet/pkg/errors"
)

type BaseHandler struct {
	Service *QueryService
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service *QueryService, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	messages := router.Group("/messages")
	{
		messages.GET("", h.ListMessages)
		messages.GET("/:id", h.GetMessage)
	}
}

// ListMessages godoc
// @Summary      List stored messages
// @Description  Get a page of accepted messages ordered by receive time, with optional sender, since and substring filters
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        limit   query     int     false  "Page size (1-100)"  default(50)
// @Param        offset  query     int     false  "Rows to skip"       default(0)
// @Param        sender  query     string  false  "Exact sender match"
// @Param        since   query     string  false  "RFC3339 lower bound on receive time (inclusive)"
// @Param        q       query     string  false  "Case-insensitive substring match on body or sender"
// @Success      200     {object}  Page
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      503     {object}  errors.ErrorResponse
// @Router       /messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	limit, offset, err := ParseListParams(c.Query("limit"), c.Query("offset"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	filter, err := ParseFilter(c.Query("sender"), c.Query("since"), c.Query("q"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page, err := h.Service.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GetMessage godoc
// @Summary      Get a message by ID
// @Description  Get a single accepted message by its producer-assigned ID
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Message ID"
// @Success      200  {object}  Message
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /messages/{id} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, msg)
}
