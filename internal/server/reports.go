package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	reportdomain "github.com/smallbiznis/laudo/internal/report/domain"
)

const payloadField = "payload"

// photoMeta describes one uploaded photo. File names the multipart field
// that carries its bytes.
type photoMeta struct {
	Section string `json:"section"`
	Caption string `json:"caption"`
	File    string `json:"file"`
}

// createReportPayload shadows emission_date so plain dates are accepted
// alongside RFC 3339 timestamps.
type createReportPayload struct {
	reportdomain.CreateReportRequest
	EmissionDate string      `json:"emission_date"`
	Photos       []photoMeta `json:"photos"`
}

func (s *Server) CreateReport(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	raw := form.Value[payloadField]
	if len(raw) == 0 || strings.TrimSpace(raw[0]) == "" {
		AbortWithError(c, newValidationError(payloadField, "required", "payload is required"))
		return
	}

	var payload createReportPayload
	if err := json.Unmarshal([]byte(raw[0]), &payload); err != nil {
		AbortWithError(c, newValidationError(payloadField, "invalid_json", "payload is not valid json"))
		return
	}

	req := payload.CreateReportRequest
	emission, err := parseOptionalTime(payload.EmissionDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("emission_date", "invalid_emission_date", "invalid emission_date"))
		return
	}
	req.EmissionDate = emission

	var opened []io.Closer
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for i, meta := range payload.Photos {
		field := fmt.Sprintf("photos[%d].file", i)
		files := form.File[strings.TrimSpace(meta.File)]
		if len(files) == 0 {
			AbortWithError(c, newValidationError(field, "required", "photo file is missing"))
			return
		}
		header := files[0]
		f, err := header.Open()
		if err != nil {
			AbortWithError(c, newValidationError(field, "unreadable", "photo file could not be read"))
			return
		}
		opened = append(opened, f)

		req.Photos = append(req.Photos, reportdomain.PhotoInput{
			Section:  strings.TrimSpace(meta.Section),
			Caption:  strings.TrimSpace(meta.Caption),
			FileName: header.Filename,
			Content:  f,
		})
	}

	id, err := s.reportSvc.CreateReport(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": id.String()}})
}

func (s *Server) GetReport(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	resp, err := s.reportSvc.GetAggregate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderReportDocument(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	fileName, err := s.reportSvc.RenderDocument(c.Request.Context(), id, reportdomain.Paths{})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"file_name": fileName}})
}

func (s *Server) SearchReports(c *gin.Context) {
	var query struct {
		Query    string `form:"q"`
		Page     int    `form:"page"`
		PageSize int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.Search(c.Request.Context(), reportdomain.SearchRequest{
		Query:    strings.TrimSpace(query.Query),
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
