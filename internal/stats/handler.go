package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inlet/internal/logger"
	"inlet/internal/message"
	"inlet/pkg/errors"
)

type Handler struct {
	Aggregator *Aggregator
	Logger     logger.Logger
}

func NewHandler(aggregator *Aggregator, log logger.Logger) *Handler {
	return &Handler{
		Aggregator: aggregator,
		Logger:     log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/stats", h.GetStats)
}

// GetStats godoc
// @Summary      Aggregate message statistics
// @Description  Get message totals, distinct sender count, top senders and boundary timestamps, optionally restricted by the same filters as the message list
// @Tags         stats
// @Accept       json
// @Produce      json
// @Param        sender  query     string  false  "Exact sender match"
// @Param        since   query     string  false  "RFC3339 lower bound on receive time (inclusive)"
// @Param        q       query     string  false  "Case-insensitive substring match on body or sender"
// @Success      200     {object}  Snapshot
// @Failure      400     {object}  errors.ErrorResponse
// @Failure      503     {object}  errors.ErrorResponse
// @Router       /stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	filter, err := message.ParseFilter(c.Query("sender"), c.Query("since"), c.Query("q"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	snap, err := h.Aggregator.Snapshot(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}
