package server

import (
	"photoshare/internal/models"

	"github.com/gofiber/fiber/v2"
)

const adminDashboard = "/admin/dashboard"

type roleRequest struct {
	Role string `json:"role" form:"role"`
}

type categoryRequest struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
}

// AdminDashboard handles GET /admin/dashboard
// @Summary Admin dashboard
// @Description All users, photos, comments and categories
// @Tags admin
// @Produce json
// @Success 200 {object} object{users=[]models.User,photos=[]models.Photo,comments=[]models.Comment,categories=[]models.Category}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/dashboard [get]
func (s *Server) AdminDashboard(c *fiber.Ctx) error {
	dash, err := s.userService.Dashboard(c.UserContext())
	if err != nil {
		return s.fail(c, err, "/")
	}
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.fail(c, err, "/")
	}
	return s.renderPage(c, "admin/dashboard", fiber.Map{
		"users":      dash.Users,
		"photos":     dash.Photos,
		"comments":   dash.Comments,
		"categories": categories,
	})
}

// AdminListUsers handles GET /admin/users?limit=&offset=
// @Summary List users
// @Tags admin
// @Produce json
// @Param limit query integer false "Page size"
// @Param offset query integer false "Offset"
// @Success 200 {object} object{users=[]models.User,limit=int,offset=int}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	users, err := s.userService.ListUsers(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return s.fail(c, err, adminDashboard)
	}
	return s.renderPage(c, "admin/users", fiber.Map{
		"users":  users,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

// AdminDeleteUser handles DELETE /admin/user/:id and POST /admin/user/:id/delete.
// @Summary Delete a user
// @Description Removes the user's photos, comments, likes and stored images
// @Tags admin
// @Produce json
// @Param id path integer true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/user/{id} [delete]
func (s *Server) AdminDeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.userService.DeleteUser(c.UserContext(), identity(c), id); err != nil {
		return s.fail(c, err, adminDashboard)
	}

	return s.succeed(c, fiber.StatusOK, fiber.Map{"message": "User removed successfully."},
		"User removed successfully.", adminDashboard)
}

// AdminSetRole handles PATCH /admin/user/:id/role and POST /admin/user/:id/role.
// @Summary Set a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Param id path integer true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/user/{id}/role [patch]
func (s *Server) AdminSetRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), adminDashboard)
	}

	user, err := s.userService.SetRole(c.UserContext(), identity(c), id, req.Role)
	if err != nil {
		return s.fail(c, err, adminDashboard)
	}

	return s.succeed(c, fiber.StatusOK, user, "Role updated.", adminDashboard)
}

// AdminCreateCategory handles POST /admin/categories
// @Summary Create a category
// @Tags admin
// @Accept json
// @Produce json
// @Param request body object{name=string,description=string} true "Category"
// @Success 201 {object} models.Category
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/categories [post]
func (s *Server) AdminCreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), adminDashboard)
	}

	category, err := s.categoryService.Create(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return s.fail(c, err, adminDashboard)
	}

	return s.succeed(c, fiber.StatusCreated, category, "Category created.", adminDashboard)
}

// AdminDeleteCategory handles DELETE /admin/categories/:id; its photos move to Uncategorized.
// @Summary Delete a category
// @Description Photos in the category move to Uncategorized
// @Tags admin
// @Produce json
// @Param id path integer true "Category ID"
// @Success 200 {object} object{message=string,photosMoved=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/categories/{id} [delete]
func (s *Server) AdminDeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	moved, err := s.categoryService.Delete(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err, adminDashboard)
	}

	return s.succeed(c, fiber.StatusOK, fiber.Map{
		"message":     "Category deleted.",
		"photosMoved": moved,
	}, "Category deleted.", adminDashboard)
}

// AdminReconcile handles POST /admin/reconcile and runs orphan cleanup on demand.
// @Summary Clean up orphans
// @Description Remove orphaned rows and unreferenced blobs
// @Tags admin
// @Produce json
// @Success 200 {object} service.ReconcileReport
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reconcile [post]
func (s *Server) AdminReconcile(c *fiber.Ctx) error {
	report, err := s.reconcileService.Run(c.UserContext())
	if err != nil {
		return s.fail(c, err, adminDashboard)
	}
	return s.succeed(c, fiber.StatusOK, report, "Orphan cleanup finished.", adminDashboard)
}
