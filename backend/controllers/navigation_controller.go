package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vidana-academy/learning-hub/backend/middleware"
	"github.com/vidana-academy/learning-hub/backend/models"
	"github.com/vidana-academy/learning-hub/backend/session"
	"github.com/vidana-academy/learning-hub/backend/utils"
)

type NavigationController struct {
	DB *gorm.DB
}

func NewNavigationController(db *gorm.DB) *NavigationController {
	return &NavigationController{DB: db}
}

// Navigate tells the client whether the caller may open ?path= and where to go instead.
func (nc *NavigationController) Navigate(c *fiber.Ctx) error {
	path := c.Query("path", "/")
	var identity *models.Identity
	if id, ok := middleware.CurrentIdentity(c); ok {
		identity = &id
	}

	redirect := session.Guard(path, identity)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"path":     path,
		"allowed":  redirect == "",
		"redirect": redirect,
	})
}

func (nc *NavigationController) Health(c *fiber.Ctx) error {
	sqlDB, err := nc.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.UserContext())
	}
	if err != nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, err, fiber.Map{"database": "down"})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"status": "ok", "database": "up"})
}
