package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/vidana-academy/learning-hub/backend/catalog"
	"github.com/vidana-academy/learning-hub/backend/remote"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

const defaultModuleTopic = "n8n"

// ModulesController backs the curriculum editor of the admin console.
type ModulesController struct {
	Catalog *catalog.Service
	Log     *utils.Logger
}

func NewModulesController(catalogService *catalog.Service, log *utils.Logger) *ModulesController {
	return &ModulesController{Catalog: catalogService, Log: log.With("component", "modules")}
}

// List godoc
// @Summary Modules of a topic
// @Tags admin
// @Produce json
// @Param topic query string false "Topic slug" default(n8n)
// @Param search query string false "Title or description fragment"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /api/admin/modules [get]
func (mc *ModulesController) List(c *fiber.Ctx) error {
	topic := c.Query("topic", defaultModuleTopic)
	modules, err := mc.Catalog.ListModules(c.UserContext(), topic, c.Query("search"))
	if err != nil {
		mc.Log.Error("list modules", "topic", topic, "error", err)
		return utils.InternalServerError(c, "Failed to load modules.")
	}
	return utils.Success(c, fiber.StatusOK, modules)
}

func (mc *ModulesController) NextDay(c *fiber.Ctx) error {
	topic := c.Query("topic", defaultModuleTopic)
	next, err := mc.Catalog.NextDayNumber(c.UserContext(), topic)
	if err != nil {
		mc.Log.Error("next day number", "topic", topic, "error", err)
		return utils.InternalServerError(c, "Failed to load modules.")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"topic_slug": topic, "day_number": next})
}

func (mc *ModulesController) parseInput(c *fiber.Ctx) (*catalog.ModuleInput, error) {
	var input catalog.ModuleInput
	if err := c.BodyParser(&input); err != nil {
		return nil, utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.Validate(input); errs != nil {
		return nil, utils.ValidationError(c, errs)
	}
	return &input, nil
}

// writeFailed maps editor write errors to responses; the message names the cause
// so the admin can act on it.
func (mc *ModulesController) writeFailed(c *fiber.Ctx, op string, err error) error {
	switch {
	case remote.IsUniqueViolation(err):
		return utils.Conflict(c, "A module with this day number already exists for the topic.")
	case remote.IsForeignKeyViolation(err):
		return utils.BadRequest(c, "Unknown topic.")
	case remote.IsNotFound(err), errors.Is(err, catalog.ErrNothingDeleted):
		return utils.NotFound(c, err.Error())
	}
	mc.Log.Error(op+" module", "error", err)
	return utils.InternalServerError(c, "Failed to "+op+" module: "+err.Error())
}

func (mc *ModulesController) Create(c *fiber.Ctx) error {
	input, err := mc.parseInput(c)
	if input == nil {
		return err
	}
	module, err := mc.Catalog.CreateModule(c.UserContext(), *input)
	if err != nil {
		return mc.writeFailed(c, "create", err)
	}
	return utils.Created(c, module)
}

func (mc *ModulesController) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module id")
	}
	input, err := mc.parseInput(c)
	if input == nil {
		return err
	}
	module, err := mc.Catalog.UpdateModule(c.UserContext(), id, *input)
	if err != nil {
		return mc.writeFailed(c, "update", err)
	}
	return utils.Success(c, fiber.StatusOK, module)
}

func (mc *ModulesController) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid module id")
	}
	if err := mc.Catalog.DeleteModule(c.UserContext(), id); err != nil {
		return mc.writeFailed(c, "delete", err)
	}
	return utils.NoContent(c)
}

// VerifyAccess checks whether the editor can write to the modules table.
func (mc *ModulesController) VerifyAccess(c *fiber.Ctx) error {
	topic := c.Query("topic", defaultModuleTopic)
	if err := mc.Catalog.VerifyWriteAccess(c.UserContext(), topic); err != nil {
		mc.Log.Warn("write access check failed", "topic", topic, "error", err)
		return utils.Error(c, fiber.StatusForbidden, err, fiber.Map{"writable": false})
	}
	return utils.SuccessMessage(c, "Write access verified", fiber.Map{"writable": true})
}
