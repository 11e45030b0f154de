package controllers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/vidana-academy/learning-hub/backend/admin"
	"github.com/vidana-academy/learning-hub/backend/catalog"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

type AdminController struct {
	Admin   *admin.Service
	Catalog *catalog.Service
	Log     *utils.Logger
	now     func() time.Time
}

func NewAdminController(adminService *admin.Service, catalogService *catalog.Service, log *utils.Logger) *AdminController {
	return &AdminController{Admin: adminService, Catalog: catalogService, Log: log.With("component", "admin"), now: time.Now}
}

func (ac *AdminController) Topics(c *fiber.Ctx) error {
	topics, err := ac.Catalog.ListTopics(c.UserContext())
	if err != nil {
		ac.Log.Error("list topics", "error", err)
		return utils.InternalServerError(c, "Failed to load topics.")
	}
	return utils.Success(c, fiber.StatusOK, topics)
}

// Students godoc
// @Summary Cohort overview
// @Description Every non-admin profile with per-topic completion. The summary covers the whole cohort, the rows honour ?search=
// @Tags admin
// @Produce json
// @Param search query string false "Name or email fragment"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/admin/students [get]
func (ac *AdminController) Students(c *fiber.Ctx) error {
	cohort, err := ac.Admin.Cohort(c.UserContext())
	if err != nil {
		ac.Log.Error("load cohort", "error", err)
		return utils.InternalServerError(c, "Failed to load students.")
	}
	return utils.Success(c, fiber.StatusOK, cohort.Filter(c.Query("search")), cohort.Summary())
}

// Export streams the cohort as a CSV attachment.
func (ac *AdminController) Export(c *fiber.Ctx) error {
	cohort, err := ac.Admin.Cohort(c.UserContext())
	if err != nil {
		ac.Log.Error("export cohort", "error", err)
		return utils.InternalServerError(c, "Failed to export students.")
	}

	var buf bytes.Buffer
	if err := admin.WriteCSV(&buf, cohort); err != nil {
		ac.Log.Error("write cohort csv", "error", err)
		return utils.InternalServerError(c, "Failed to export students.")
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(admin.ExportFilename(ac.now()))
	return c.Send(buf.Bytes())
}

func (ac *AdminController) Student(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid student id")
	}

	inspection, err := ac.Admin.Inspect(c.UserContext(), id, c.Query("topic"))
	if remote.IsNotFound(err) {
		return utils.NotFound(c, "Student not found")
	}
	if err != nil {
		ac.Log.Error("inspect student", "student_id", id, "error", err)
		return utils.InternalServerError(c, "Failed to load student.")
	}
	return utils.Success(c, fiber.StatusOK, inspection)
}
