package handlers

import (
	"net/http"
	"strconv"

	"civreg/internal/common"
	"civreg/internal/models"
	"civreg/internal/services"

	"github.com/labstack/echo/v4"
)

// AuditLogsHandlers handles audit log queries
type AuditLogsHandlers struct {
	auditLogsService services.AuditLogsService
}

func NewAuditLogsHandlers(auditLogsService services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditLogsService: auditLogsService}
}

type AuditLogsResponse struct {
	Data   []*models.AuditLog `json:"data"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// ListAuditLogs godoc
// @Summary  Audit trail (admin)
// @Tags     audit
// @Security BearerAuth
// @Param    entity   query string false "Entity type"
// @Param    recordId query string false "Record ID"
// @Param    action   query string false "Action"
// @Param    actorId  query string false "Actor user ID"
// @Param    limit    query int    false "Page size"
// @Param    offset   query int    false "Offset"
// @Success  200 {object} AuditLogsResponse
// @Router   /audit-logs [get]
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	filters := &models.AuditLogFilters{}
	if entity := c.QueryParam("entity"); entity != "" {
		filters.Entity = &entity
	}
	if recordID := c.QueryParam("recordId"); recordID != "" {
		filters.RecordID = &recordID
	}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if actorID := c.QueryParam("actorId"); actorID != "" {
		id, err := common.ValidateUUID(actorID, "actorId")
		if err != nil {
			return common.SendValidationError(c, "actorId", "must be a valid UUID")
		}
		filters.ActorID = &id
	}
	filters.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filters.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	logs, err := h.auditLogsService.ListAuditLogs(c.Request().Context(), caller, filters)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AuditLogsResponse{
		Data:   logs,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}
