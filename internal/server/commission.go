package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type commissionPacketQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

func (s *Server) SettlePayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	result, err := s.commissionSvc.SettleForPayment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListCommissionEvents(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	events, err := s.commissionSvc.ListEventsByPayment(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

// CommissionPacketCSV exports events of payments posted in [from, to). A bare
// to date includes that whole day.
func (s *Server) CommissionPacketCSV(c *gin.Context) {
	var query commissionPacketQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	from, err := parseOptionalTime(query.From, false)
	if err != nil || from == nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil || to == nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	out, err := s.commissionSvc.PacketCSV(c.Request.Context(), *from, *to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="commission-packet.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}
