package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// MIMEXLSX is the content type of the report export.
const MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportReport godoc
// @ID          exportContactLogReport
// @Summary     Export contact logs
// @Description Downloads every contact log, soft-deleted ones included, as an xlsx workbook.
// @Tags        Reports
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success     200  {file}   file "Workbook"
// @Header      200  {string} Content-Disposition "attachment; filename=contact-logs-YYYYMMDD.xlsx"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /contacts/report.xlsx [get]
func (h *Handlers) ExportReport(c *gin.Context) {
	buf, err := h.reportSvc.ExportXLSX(c.Request.Context())
	if err != nil {
		failErr(c, ErrCodeExportFailed, err)
		return
	}

	name := fmt.Sprintf("contact-logs-%s.xlsx", h.logSvc.Clock().In(h.logSvc.Location()).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, MIMEXLSX, buf.Bytes())
}
