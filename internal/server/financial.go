package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	financialdomain "github.com/smallbiznis/laudo/internal/financial/domain"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

func (s *Server) GetFinancialSummary(c *gin.Context) {
	req, ok := summaryRequestFromQuery(c)
	if !ok {
		return
	}

	resp, err := s.financialSvc.GetSummary(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportFinancialSummary(c *gin.Context) {
	req, ok := summaryRequestFromQuery(c)
	if !ok {
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "xlsx")))

	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case "xlsx":
		body, err = s.financialSvc.ExportXLSX(c.Request.Context(), req)
		contentType = contentTypeXLSX
	case "pdf":
		body, err = s.financialSvc.ExportPDF(c.Request.Context(), req)
		contentType = contentTypePDF
	default:
		AbortWithError(c, financialdomain.ErrInvalidExportFormat)
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ref := req.Reference
	name := "resumo-financeiro"
	if !ref.IsZero() {
		name = fmt.Sprintf("%s-%s", name, ref.Format("2006-01"))
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	c.Data(http.StatusOK, contentType, body)
}

func summaryRequestFromQuery(c *gin.Context) (financialdomain.SummaryRequest, bool) {
	reference, err := parseOptionalTime(c.Query("reference"), false)
	if err != nil {
		AbortWithError(c, newValidationError("reference", "invalid_reference", "invalid reference"))
		return financialdomain.SummaryRequest{}, false
	}

	var req financialdomain.SummaryRequest
	if reference != nil {
		req.Reference = reference.UTC()
	}
	return req, true
}
