package server

import (
	"fmt"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Text string `json:"text" form:"text"`
}

// CreateComment handles POST /photos/:id/comments
// @Summary Comment on a photo
// @Tags comments
// @Accept json
// @Produce json
// @Param id path integer true "Photo ID"
// @Param request body object{text=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /photos/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	photoID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	photoPage := fmt.Sprintf("/photos/%d", photoID)

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), photoPage)
	}

	comment, err := s.commentService.Create(c.UserContext(), identity(c), service.CreateCommentInput{
		PhotoID: photoID,
		Text:    req.Text,
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			photoPage = "/gallery"
		}
		return s.fail(c, err, photoPage)
	}

	return s.succeed(c, fiber.StatusCreated, comment, "Comment added!", photoPage)
}

// DeleteComment handles DELETE /comments/:id, POST /comments/:id/delete and the admin aliases.
// @Summary Delete a comment
// @Description Author or admin only
// @Tags comments
// @Produce json
// @Param id path integer true "Comment ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.Delete(c.UserContext(), identity(c), id)
	if err != nil {
		return s.fail(c, err, middleware.BackOr(c, "/gallery"))
	}

	redirectTo := fmt.Sprintf("/photos/%d", comment.PhotoID)
	if isAdminRoute(c) {
		redirectTo = "/admin/dashboard"
	}
	return s.succeed(c, fiber.StatusOK, fiber.Map{"message": "Comment deleted."}, "Comment deleted.", redirectTo)
}
