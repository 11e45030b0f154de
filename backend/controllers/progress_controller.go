package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidana-academy/learning-hub/backend/catalog"
	"github.com/vidana-academy/learning-hub/backend/middleware"
	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/progress"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

const saveFailedMessage = "Failed to save progress."

type ProgressController struct {
	Catalog  *catalog.Service
	Progress *progress.Persister
	Log      *utils.Logger
}

func NewProgressController(catalogService *catalog.Service, persister *progress.Persister, log *utils.Logger) *ProgressController {
	return &ProgressController{Catalog: catalogService, Progress: persister, Log: log.With("component", "progress")}
}

// ListTopics godoc
// @Summary List learning topics
// @Tags topics
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /api/topics [get]
func (pc *ProgressController) ListTopics(c *fiber.Ctx) error {
	topics, err := pc.Catalog.ListTopics(c.UserContext())
	if err != nil {
		pc.Log.Error("list topics", "error", err)
		return utils.InternalServerError(c, "Failed to load topics.")
	}
	return utils.Success(c, fiber.StatusOK, topics)
}

// Dashboard godoc
// @Summary Learner dashboard
// @Description Every topic with the caller's completion, in-progress topics first
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /api/dashboard [get]
func (pc *ProgressController) Dashboard(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)

	topics, err := pc.Catalog.ListTopics(c.UserContext())
	if err != nil {
		pc.Log.Error("dashboard topics", "error", err)
		return utils.InternalServerError(c, "Failed to load topics.")
	}
	rows, err := pc.Progress.ListForUser(c.UserContext(), identity.ID)
	if err != nil {
		pc.Log.Error("dashboard progress", "user_id", identity.ID, "error", err)
		return utils.InternalServerError(c, "Failed to load progress.")
	}
	return utils.Success(c, fiber.StatusOK, progress.BuildDashboard(topics, rows))
}

// topic resolves the :slug parameter, seeding known topics on first use.
func (pc *ProgressController) topic(c *fiber.Ctx) (*models.Topic, error) {
	topic, err := pc.Catalog.EnsureTopic(c.UserContext(), c.Params("slug"))
	if remote.IsNotFound(err) {
		return nil, utils.NotFound(c, "Topic not found")
	}
	if err != nil {
		pc.Log.Error("load topic", "slug", c.Params("slug"), "error", err)
		return nil, utils.InternalServerError(c, "Failed to load topic.")
	}
	return topic, nil
}

func (pc *ProgressController) view(c *fiber.Ctx, topic *models.Topic, row *models.UserProgress) (*progress.TopicView, error) {
	modules, err := pc.Catalog.Curriculum(c.UserContext(), topic.Slug)
	if err != nil {
		return nil, err
	}
	resources, err := pc.Catalog.Resources(c.UserContext(), topic.Slug)
	if err != nil {
		// Resources are decoration; the page still renders without them.
		pc.Log.Warn("load resources", "slug", topic.Slug, "error", err)
	}
	v := progress.BuildTopicView(*topic, modules, row, resources, catalog.CoverImage)
	return &v, nil
}

// TopicView godoc
// @Summary Topic page
// @Description Curriculum, resources, notes and the caller's progress for one topic
// @Tags progress
// @Produce json
// @Param slug path string true "Topic slug"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/topics/{slug} [get]
func (pc *ProgressController) TopicView(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)
	topic, err := pc.topic(c)
	if topic == nil {
		return err
	}

	row, err := pc.Progress.Load(c.UserContext(), identity.ID, topic.Slug)
	if err != nil {
		pc.Log.Error("load progress", "user_id", identity.ID, "slug", topic.Slug, "error", err)
		return utils.InternalServerError(c, "Failed to load progress.")
	}
	v, err := pc.view(c, topic, row)
	if err != nil {
		pc.Log.Error("load curriculum", "slug", topic.Slug, "error", err)
		return utils.InternalServerError(c, "Failed to load topic.")
	}
	return utils.Success(c, fiber.StatusOK, v)
}

func (pc *ProgressController) saved(c *fiber.Ctx, topic *models.Topic, row *models.UserProgress, extra fiber.Map) error {
	v, err := pc.view(c, topic, row)
	if err != nil {
		pc.Log.Error("reload topic after save", "slug", topic.Slug, "error", err)
		return utils.InternalServerError(c, "Failed to load topic.")
	}
	data := fiber.Map{"view": v}
	for k, val := range extra {
		data[k] = val
	}
	return utils.Success(c, fiber.StatusOK, data)
}

type SaveProgressRequest struct {
	CompletedDays []int        `json:"completed_days" validate:"dive,min=1"`
	Notes         models.Notes `json:"notes"`
}

// SaveProgress replaces the caller's completed days and notes for a topic.
func (pc *ProgressController) SaveProgress(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)
	var input SaveProgressRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}
	topic, err := pc.topic(c)
	if topic == nil {
		return err
	}

	row, err := pc.Progress.Save(c.UserContext(), identity, topic.Slug, input.CompletedDays, input.Notes)
	if err != nil {
		return utils.InternalServerError(c, saveFailedMessage)
	}
	return pc.saved(c, topic, row, nil)
}

func (pc *ProgressController) ToggleDay(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)
	day, err := c.ParamsInt("day")
	if err != nil || day < 1 {
		return utils.BadRequest(c, "Invalid day")
	}
	topic, err := pc.topic(c)
	if topic == nil {
		return err
	}

	row, completed, err := pc.Progress.ToggleDay(c.UserContext(), identity, topic.Slug, day)
	if err != nil {
		return utils.InternalServerError(c, saveFailedMessage)
	}
	return pc.saved(c, topic, row, fiber.Map{"day": day, "completed": completed})
}

func (pc *ProgressController) SaveNotes(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)
	var input struct {
		Notes models.Notes `json:"notes"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	topic, err := pc.topic(c)
	if topic == nil {
		return err
	}

	row, err := pc.Progress.SaveNotes(c.UserContext(), identity, topic.Slug, input.Notes)
	if err != nil {
		return utils.InternalServerError(c, saveFailedMessage)
	}
	return pc.saved(c, topic, row, nil)
}

type DayNoteRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

func (pc *ProgressController) SaveDayNote(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)
	day, err := c.ParamsInt("day")
	if err != nil || day < 1 {
		return utils.BadRequest(c, "Invalid day")
	}
	var input DayNoteRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}
	topic, err := pc.topic(c)
	if topic == nil {
		return err
	}

	row, err := pc.Progress.SetDayNote(c.UserContext(), identity, topic.Slug, day, input.Text)
	if err != nil {
		return utils.InternalServerError(c, saveFailedMessage)
	}
	return pc.saved(c, topic, row, nil)
}

func (pc *ProgressController) ToggleChecklist(c *fiber.Ctx) error {
	identity, _ := middleware.CurrentIdentity(c)
	var input struct {
		Task string `json:"task" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return utils.ValidationError(c, errs)
	}
	topic, err := pc.topic(c)
	if topic == nil {
		return err
	}

	row, checked, err := pc.Progress.ToggleChecklist(c.UserContext(), identity, topic.Slug, input.Task)
	if err != nil {
		return utils.InternalServerError(c, saveFailedMessage)
	}
	return pc.saved(c, topic, row, fiber.Map{"task": input.Task, "checked": checked})
}
