package server

import (
	"log/slog"

	"photoshare/internal/middleware"
	"photoshare/internal/models"
	"photoshare/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Email    string `json:"email" form:"email"`
	Token    string `json:"token" form:"token"`
	Password string `json:"password" form:"password"`
}

// forgotPasswordMessage is returned whether or not the email belongs to an account.
const forgotPasswordMessage = "If an account exists for that email, a reset link has been sent."

func (s *Server) RegisterPage(c *fiber.Ctx) error {
	return s.renderPage(c, "auth/register", nil)
}

func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.renderPage(c, "auth/login", nil)
}

func (s *Server) ForgotPasswordPage(c *fiber.Ctx) error {
	return s.renderPage(c, "auth/forgot-password", nil)
}

// Register handles POST /auth/register
// @Summary Register
// @Description Create a user account with the user role
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string} true "Registration request"
// @Success 201 {object} object{user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/auth/register")
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.fail(c, err, "/auth/register")
	}

	return s.succeed(c, fiber.StatusCreated, fiber.Map{"user": user},
		"Registration successful. Please log in.", "/auth/login")
}

// Login handles POST /auth/login. The session token is set as the jwt cookie
// and also returned to JSON callers for Bearer use.
// @Summary Log in
// @Description Verify credentials, set the jwt cookie and return the session token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,expires_at=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/auth/login")
	}

	session, err := s.authService.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return s.fail(c, err, "/auth/login")
	}

	middleware.SetSessionCookie(c, session.Token, session.ExpiresAt)

	redirectTo := "/gallery"
	if session.User.IsAdmin() {
		redirectTo = "/admin/dashboard"
	}
	return s.succeed(c, fiber.StatusOK, fiber.Map{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	}, "Logged in successfully.", redirectTo)
}

// Logout handles GET and POST /auth/logout. It always succeeds.
// @Summary Log out
// @Description Revoke the session token and clear the jwt cookie
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), middleware.SessionToken(c)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session token", slog.String("error", err.Error()))
	}
	middleware.ClearSessionCookie(c)
	return s.succeed(c, fiber.StatusOK, fiber.Map{"message": "Logged out successfully."},
		"Logged out successfully.", "/auth/login")
}

// ForgotPassword handles POST /auth/forgot-password
// @Summary Request a password reset
// @Description Mail a reset link; the response is the same for unknown addresses
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string} true "Account email"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /auth/forgot-password [post]
func (s *Server) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/auth/forgot-password")
	}

	if err := s.resetService.RequestReset(c.UserContext(), req.Email); err != nil {
		return s.fail(c, err, "/auth/forgot-password")
	}

	return s.succeed(c, fiber.StatusOK, fiber.Map{"message": forgotPasswordMessage},
		forgotPasswordMessage, "/auth/login")
}

// ResetPasswordPage handles GET /auth/reset-password?email=&token=
// @Summary Check a reset link
// @Description Verify an emailed reset token before showing the reset form
// @Tags auth
// @Produce json
// @Param email query string true "Account email"
// @Param token query string true "Reset token"
// @Success 200 {object} object{email=string,token=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [get]
func (s *Server) ResetPasswordPage(c *fiber.Ctx) error {
	email, token := c.Query("email"), c.Query("token")
	if err := s.resetService.VerifyReset(c.UserContext(), email, token); err != nil {
		return s.fail(c, err, "/auth/forgot-password")
	}
	return s.renderPage(c, "auth/reset-password", fiber.Map{
		"email": email,
		"token": token,
	})
}

// ResetPassword handles POST /auth/reset-password
// @Summary Reset a password
// @Description Set a new password with a live reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,token=string,password=string} true "Reset request"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/reset-password [post]
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, models.NewValidationError("Invalid request body"), "/auth/forgot-password")
	}

	if err := s.resetService.CompleteReset(c.UserContext(), req.Email, req.Token, req.Password); err != nil {
		return s.fail(c, err, "/auth/forgot-password")
	}

	return s.succeed(c, fiber.StatusOK, fiber.Map{"message": "Password has been reset. Please log in."},
		"Password has been reset. Please log in.", "/auth/login")
}
