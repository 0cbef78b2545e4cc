package server

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/observability"
	"photoshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it answers with "Invalid <param>" and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = s.fail(c, models.NewValidationError("Invalid "+humanizeParam(param)), "")
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "commentId" -> "comment ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// identity returns the requester, or the zero Identity for guests.
func identity(c *fiber.Ctx) middleware.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}

func isAdminRoute(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.TrimPrefix(c.Path(), "/api"), "/admin/")
}

// fail answers err as JSON for API callers and as an error flash plus redirect for pages.
// Unexpected errors are logged; their details never reach the client.
func (s *Server) fail(c *fiber.Ctx, err error, redirectTo string) error {
	status := models.StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("method", c.Method()),
			slog.String("error", err.Error()),
		)
		observability.RecordErrorInContext(c.UserContext(), err)
	}
	if middleware.WantsJSON(c) {
		return models.RespondWithError(c, status, err)
	}
	if redirectTo == "" {
		redirectTo = middleware.BackOr(c, "/")
	}
	middleware.SetFlash(c, middleware.FlashError, models.PublicMessage(err))
	return c.Redirect(redirectTo, fiber.StatusFound)
}

// succeed answers data as JSON for API callers and as a success flash plus redirect for pages.
func (s *Server) succeed(c *fiber.Ctx, status int, data interface{}, message, redirectTo string) error {
	if middleware.WantsJSON(c) {
		return c.Status(status).JSON(data)
	}
	if message != "" {
		middleware.SetFlash(c, middleware.FlashSuccess, message)
	}
	return c.Redirect(redirectTo, fiber.StatusFound)
}

// renderPage answers a GET page with its view model. The current user and the
// flash messages of the previous request are added to every model.
func (s *Server) renderPage(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["view"] = view
	if id, ok := middleware.IdentityFrom(c); ok {
		data["currentUser"] = id
	} else {
		data["currentUser"] = nil
	}
	flash := middleware.FlashFrom(c)
	data["successMessage"] = flash.Success
	data["errorMessage"] = flash.Error
	return c.JSON(data)
}

// readImageFile loads an uploaded file from a multipart field. A request without
// the field yields nil so callers can treat the upload as optional.
func readImageFile(c *fiber.Ctx, field string) (*service.ImageFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	fh := headers[0]

	f, err := fh.Open()
	if err != nil {
		return nil, models.NewValidationError("Failed to read uploaded file")
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, models.NewValidationError("Failed to read uploaded file")
	}
	return &service.ImageFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// parseFormID parses an optional numeric form or JSON value; anything else is 0.
func parseFormID(raw string) uint {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
