package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/networth/internal/domain/dto"
	"github.com/guttosm/networth/internal/middleware"
	"github.com/guttosm/networth/internal/service"
)

// errNotionFallback is returned when an upstream error carries no message.
const errNotionFallback = "failed to query Notion"

// Handler provides HTTP handlers for the net worth endpoint.
//
// Responsibilities:
//   - Delegate the computation to the NetWorthService with the request context
//   - Translate the result into the response DTO
//   - Map any failure to a 500 with a JSON error body
type Handler struct {
	svc service.NetWorthService
}

// NewHandler constructs a new Handler instance.
//
// Parameters:
//   - svc (service.NetWorthService): computes the aggregate per request.
//
// Returns:
//   - *Handler: A handler ready to be registered with the router.
func NewHandler(svc service.NetWorthService) *Handler {
	return &Handler{svc: svc}
}

// GetNetWorth handles GET /api/networth requests.
//
// Responses:
//   - 200 OK: total and per-category subtotals over every database row.
//   - 500 Internal Server Error: any upstream failure; no partial result is returned.
//
// GetNetWorth godoc
// @Summary      Get net worth
// @Description  Walks every row of the configured Notion database and returns the total and per-account subtotals
// @Tags         networth
// @Produce      json
// @Success      200  {object}  dto.NetWorthResponse  "Success"
// @Failure      429  {object}  dto.ErrorResponse     "Too Many Requests"
// @Failure      500  {object}  dto.ErrorResponse     "Internal Error"
// @Router       /api/networth [get]
func (h *Handler) GetNetWorth(c *gin.Context) {
	nw, err := h.svc.GetNetWorth(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, http.StatusInternalServerError, errNotionFallback, err)
		return
	}

	resp := dto.NetWorthResponse{
		Total:  nw.Total,
		Groups: nw.Groups,
	}
	if resp.Groups == nil {
		resp.Groups = map[string]float64{}
	}

	c.JSON(http.StatusOK, resp)
}
