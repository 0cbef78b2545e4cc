package server

import (
	"photoshare/internal/models"
	"photoshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// photoForm is shared by upload and edit; the binary arrives in the "photo" multipart field.
type photoForm struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
	Tags        string `json:"tags" form:"tags"`
}

const photoFileField = "photo"

// Gallery handles GET / and /gallery
// @Summary Gallery
// @Description All photos newest first, with categories and hero photos
// @Tags photos
// @Produce json
// @Success 200 {object} object{photos=[]models.Photo,categories=[]models.Category,heroPhotos=[]models.Photo}
// @Router /gallery [get]
func (s *Server) Gallery(c *fiber.Ctx) error {
	gallery, err := s.photoService.Gallery(c.UserContext(), identity(c).UserID)
	if err != nil {
		return s.fail(c, err, "/auth/login")
	}
	return s.renderPage(c, "gallery", fiber.Map{
		"photos":     gallery.Photos,
		"categories": gallery.Categories,
		"heroPhotos": gallery.Hero,
	})
}

// CategoryPhotos handles GET /category/:category where the reference is an id or a name.
// @Summary Photos in a category
// @Description Reference is a category id or name
// @Tags photos
// @Produce json
// @Param category path string true "Category id or name"
// @Success 200 {object} object{category=models.Category,photos=[]models.Photo,categories=[]models.Category}
// @Failure 404 {object} models.ErrorResponse
// @Router /category/{category} [get]
func (s *Server) CategoryPhotos(c *fiber.Ctx) error {
	page, err := s.photoService.ByCategory(c.UserContext(), c.Params("category"), identity(c).UserID)
	if err != nil {
		return s.fail(c, err, "/gallery")
	}
	return s.renderPage(c, "category", fiber.Map{
		"category":   page.Category,
		"photos":     page.Photos,
		"categories": page.Categories,
	})
}

// ListCategories handles GET /categories
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {object} object{categories=[]models.Category}
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.fail(c, err, "/gallery")
	}
	return s.renderPage(c, "categories", fiber.Map{"categories": categories})
}

// GetPhoto handles GET /photos/:id with the uploader, comments and like state.
// @Summary Get a photo
// @Description Photo with uploader, comments and like state
// @Tags photos
// @Produce json
// @Param id path integer true "Photo ID"
// @Success 200 {object} object{photo=models.Photo,comments=[]models.Comment,canModify=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /photos/{id} [get]
func (s *Server) GetPhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewer := identity(c)
	photo, err := s.photoService.Get(c.UserContext(), id, viewer.UserID)
	if err != nil {
		return s.fail(c, err, "/gallery")
	}
	comments, err := s.commentService.ListByPhoto(c.UserContext(), id)
	if err != nil {
		return s.fail(c, err, "/gallery")
	}

	return s.renderPage(c, "photo", fiber.Map{
		"photo":     photo,
		"comments":  comments,
		"canModify": viewer.CanModify(photo.UploaderID),
	})
}

// PhotoImage handles GET /photos/:id/image. Blob keys are streamed, absolute URLs redirected.
// @Summary Photo image
// @Description Stream the stored image or redirect to an external URL
// @Tags photos
// @Produce octet-stream
// @Param id path integer true "Photo ID"
// @Success 200 {file} file
// @Failure 404 {object} models.ErrorResponse
// @Router /photos/{id}/image [get]
func (s *Server) PhotoImage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ref, err := s.photoService.ImageRef(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusCode(err), err)
	}
	if models.IsExternalURL(ref) {
		return c.Redirect(ref, fiber.StatusFound)
	}
	return s.streamBlob(c, ref)
}

// ServeImage handles GET /images/:filename and /profile/profile-photo/:filename
// @Summary Stored image
// @Description Stream a blob by key
// @Tags photos
// @Produce octet-stream
// @Param filename path string true "Blob key"
// @Success 200 {file} file
// @Failure 404 {object} models.ErrorResponse
// @Router /images/{filename} [get]
func (s *Server) ServeImage(c *fiber.Ctx) error {
	return s.streamBlob(c, c.Params("filename"))
}

func (s *Server) streamBlob(c *fiber.Ctx, key string) error {
	blob, err := service.ReadBlob(c.UserContext(), s.blobs, key)
	if err != nil {
		if !models.HasCode(err, models.CodeNotFound) {
			return s.fail(c, err, "")
		}
		return models.RespondWithError(c, fiber.StatusNotFound, err)
	}
	c.Set(fiber.HeaderContentType, blob.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// fasthttp closes the body once it has been written
	return c.SendStream(blob.Body)
}

// UploadPage handles GET /profile/upload-photo
func (s *Server) UploadPage(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.fail(c, err, "/profile")
	}
	return s.renderPage(c, "upload-photo", fiber.Map{"categories": categories})
}

// UploadPhoto handles POST /profile/upload-photo (multipart, field "photo").
// @Summary Upload a photo
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Image file"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param category formData string false "Category id or name"
// @Param tags formData string false "Comma separated tags"
// @Success 201 {object} models.Photo
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/upload-photo [post]
func (s *Server) UploadPhoto(c *fiber.Ctx) error {
	var form photoForm
	if err := c.BodyParser(&form); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/profile")
	}
	file, err := readImageFile(c, photoFileField)
	if err != nil {
		return s.fail(c, err, "/profile")
	}

	photo, err := s.photoService.Create(c.UserContext(), identity(c), service.CreatePhotoInput{
		Title:       form.Title,
		Description: form.Description,
		CategoryID:  parseFormID(form.Category),
		Tags:        form.Tags,
		File:        file,
	})
	if err != nil {
		return s.fail(c, err, "/profile")
	}

	return s.succeed(c, fiber.StatusCreated, photo, "Photo uploaded successfully!", "/profile")
}

// EditPhotoPage handles GET /profile/edit-photo/:id
func (s *Server) EditPhotoPage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	photo, err := s.photoService.Get(c.UserContext(), id, 0)
	if err != nil {
		return s.fail(c, err, "/profile")
	}
	if !identity(c).CanModify(photo.UploaderID) {
		return s.fail(c, models.NewForbiddenError("You are not allowed to edit this photo."), "/profile")
	}
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.fail(c, err, "/profile")
	}
	return s.renderPage(c, "edit-photo", fiber.Map{
		"photo":      photo,
		"categories": categories,
	})
}

// EditPhoto handles PATCH and POST /profile/photo/:id. Empty fields keep their value;
// a new "photo" file replaces the stored image.
// @Summary Edit a photo
// @Description Owner or admin only; a new file replaces the stored image
// @Tags photos
// @Accept multipart/form-data
// @Produce json
// @Param id path integer true "Photo ID"
// @Param photo formData file false "Replacement image"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param category formData string false "Category id or name"
// @Param tags formData string false "Comma separated tags"
// @Success 200 {object} models.Photo
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/photo/{id} [patch]
func (s *Server) EditPhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var form photoForm
	if err := c.BodyParser(&form); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/profile")
	}
	file, err := readImageFile(c, photoFileField)
	if err != nil {
		return s.fail(c, err, "/profile")
	}

	photo, err := s.photoService.Edit(c.UserContext(), identity(c), id, service.EditPhotoInput{
		Title:       form.Title,
		Description: form.Description,
		CategoryID:  parseFormID(form.Category),
		Tags:        form.Tags,
		File:        file,
	})
	if err != nil {
		return s.fail(c, err, "/profile")
	}

	return s.succeed(c, fiber.StatusOK, photo, "Photo updated successfully!", "/profile")
}

// DeletePhoto handles DELETE /photos/:id, POST /photos/:id/delete and the admin aliases.
// @Summary Delete a photo
// @Description Owner or admin only; removes comments, likes and the stored image
// @Tags photos
// @Produce json
// @Param id path integer true "Photo ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /photos/{id} [delete]
func (s *Server) DeletePhoto(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	redirectTo := "/gallery"
	if isAdminRoute(c) {
		redirectTo = "/admin/dashboard"
	}

	if _, err := s.photoService.Delete(c.UserContext(), identity(c), id); err != nil {
		return s.fail(c, err, redirectTo)
	}

	return s.succeed(c, fiber.StatusOK, fiber.Map{"message": "Photo removed successfully."},
		"Photo removed successfully.", redirectTo)
}

// ToggleLike handles POST /photos/:id/like and always answers JSON.
// @Summary Toggle like
// @Tags photos
// @Produce json
// @Param id path integer true "Photo ID"
// @Success 200 {object} models.LikeResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /photos/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.photoService.ToggleLike(c.UserContext(), identity(c), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusCode(err), err)
	}
	return c.JSON(fiber.Map{
		"liked":      result.Liked,
		"likesCount": result.LikesCount,
	})
}
