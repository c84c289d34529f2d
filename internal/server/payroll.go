package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GeneratePayrollPacket(c *gin.Context) {
	weekStart, err := parseDate(c.Param("week_start"))
	if err != nil {
		AbortWithError(c, newValidationError("week_start", "invalid_week_start", "week_start must be a Monday (YYYY-MM-DD)"))
		return
	}

	packet, err := s.payrollSvc.Generate(c.Request.Context(), weekStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": packet})
}

func (s *Server) GetPayrollPacket(c *gin.Context) {
	weekStart, err := parseDate(c.Param("week_start"))
	if err != nil {
		AbortWithError(c, newValidationError("week_start", "invalid_week_start", "week_start must be a Monday (YYYY-MM-DD)"))
		return
	}

	packet, err := s.payrollSvc.Get(c.Request.Context(), weekStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": packet})
}

func (s *Server) PayrollPacketCSV(c *gin.Context) {
	weekStart, err := parseDate(c.Param("week_start"))
	if err != nil {
		AbortWithError(c, newValidationError("week_start", "invalid_week_start", "week_start must be a Monday (YYYY-MM-DD)"))
		return
	}

	out, err := s.payrollSvc.CSV(c.Request.Context(), weekStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("payroll-%s.csv", weekStart.Format(dateOnlyLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}
