package server

import (
	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

const profilePhotoField = "profilePhoto"

type bioRequest struct {
	Bio string `json:"bio" form:"bio"`
}

// MyProfile handles GET /profile
// @Summary My profile
// @Tags users
// @Produce json
// @Success 200 {object} object{user=models.User,photos=[]models.Photo,avatarUrl=string,categories=[]models.Category,isOwner=bool}
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile [get]
func (s *Server) MyProfile(c *fiber.Ctx) error {
	me := identity(c)
	return s.renderProfile(c, me.UserID, me)
}

// UserProfile handles GET /user/:id
// @Summary User profile
// @Tags users
// @Produce json
// @Param id path integer true "User ID"
// @Success 200 {object} object{user=models.User,photos=[]models.Photo,avatarUrl=string,categories=[]models.Category,isOwner=bool}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /user/{id} [get]
func (s *Server) UserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	return s.renderProfile(c, id, identity(c))
}

func (s *Server) renderProfile(c *fiber.Ctx, userID uint, viewer middleware.Identity) error {
	profile, err := s.userService.Profile(c.UserContext(), userID, viewer.UserID)
	if err != nil {
		return s.fail(c, err, "/gallery")
	}
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.fail(c, err, "/gallery")
	}
	return s.renderPage(c, "profile", fiber.Map{
		"user":       profile.User,
		"photos":     profile.Photos,
		"avatarUrl":  profile.AvatarURL,
		"categories": categories,
		"isOwner":    profile.User.ID == viewer.UserID,
	})
}

// UpdateBio handles POST /profile/update-bio
// @Summary Update bio
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{bio=string} true "New bio"
// @Success 200 {object} object{bio=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/update-bio [post]
func (s *Server) UpdateBio(c *fiber.Ctx) error {
	var req bioRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/profile")
	}

	if err := s.userService.UpdateBio(c.UserContext(), identity(c), req.Bio); err != nil {
		return s.fail(c, err, "/profile")
	}

	return s.succeed(c, fiber.StatusOK, fiber.Map{"bio": req.Bio}, "Bio updated successfully!", "/profile")
}

// UpdateProfilePhoto handles POST /profile/profile-photo (multipart, field "profilePhoto").
// @Summary Update profile photo
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param profilePhoto formData file true "Image file"
// @Success 200 {object} object{user=models.User,avatarUrl=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/profile-photo [post]
func (s *Server) UpdateProfilePhoto(c *fiber.Ctx) error {
	file, err := readImageFile(c, profilePhotoField)
	if err != nil {
		return s.fail(c, err, "/profile")
	}

	user, err := s.userService.UpdateProfilePhoto(c.UserContext(), identity(c), file)
	if err != nil {
		return s.fail(c, err, "/profile")
	}

	return s.succeed(c, fiber.StatusOK, fiber.Map{
		"user":      user,
		"avatarUrl": service.AvatarURL(user),
	}, "Profile photo updated successfully!", "/profile")
}
