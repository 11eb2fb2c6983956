package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/intercitygo/route-booking-backend/internal/config"
	"github.com/intercitygo/route-booking-backend/internal/database"
	"github.com/intercitygo/route-booking-backend/internal/models"
	"github.com/intercitygo/route-booking-backend/internal/services"
	"github.com/intercitygo/route-booking-backend/pkg/jwt"
	"github.com/intercitygo/route-booking-backend/pkg/mailer"
)

// AuthHandler handles registration, email verification and login
type AuthHandler struct {
	jwtService          *jwt.Service
	verificationService *services.VerificationService
	userRepo            *database.UserRepository
	mailSender          mailer.Sender
	config              *config.Config
	logger              *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	jwtService *jwt.Service,
	verificationService *services.VerificationService,
	userRepo *database.UserRepository,
	mailSender mailer.Sender,
	cfg *config.Config,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		jwtService:          jwtService,
		verificationService: verificationService,
		userRepo:            userRepo,
		mailSender:          mailSender,
		config:              cfg,
		logger:              logger,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ResendRequest asks for a fresh verification code
type ResendRequest struct {
	Login string `json:"login" binding:"required"`
}

// Register handles POST /api/v1/auth/register
// Creates an unverified account and emails a 6-digit verification code.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	taken, err := h.userRepo.LoginTaken(req.Login)
	if err != nil {
		h.logger.WithError(err).Error("Failed to check login availability")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process registration",
		})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "login_taken",
			Message: "This login is already registered",
			Code:    "LOGIN_TAKEN",
		})
		return
	}

	taken, err = h.userRepo.EmailTaken(req.Email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to check email availability")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process registration",
		})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "email_taken",
			Message: "This email is already registered",
			Code:    "EMAIL_TAKEN",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.config.Security.BcryptCost)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process registration",
		})
		return
	}

	code, expiresAt, err := h.verificationService.GenerateCode()
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate verification code")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process registration",
		})
		return
	}

	user, err := h.userRepo.CreateUnverified(req.Login, req.Email, string(hash), code, expiresAt)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process registration",
		})
		return
	}

	if err := h.sendVerificationEmail(user.Email, code); err != nil {
		// Account exists; the user can request a resend.
		h.logger.WithError(err).WithField("login", user.Login).
			Error("Failed to send verification email")
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"login":   user.Login,
	}).Info("User registered, verification pending")

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Registration successful. Check your email for the verification code.",
		"login":      user.Login,
		"expires_at": expiresAt,
	})
}

// Verify handles POST /api/v1/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	err := h.verificationService.Confirm(req.Login, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoPendingVerification):
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No pending verification for this login",
				Code:    "NO_PENDING_VERIFICATION",
			})
		case errors.Is(err, services.ErrAlreadyVerified):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "already_verified",
				Message: "This account is already verified",
				Code:    "ALREADY_VERIFIED",
			})
		case errors.Is(err, services.ErrCodeExpired):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "code_expired",
				Message: "The verification code has expired. Request a new one.",
				Code:    "CODE_EXPIRED",
			})
		case errors.Is(err, services.ErrMaxAttemptsExceeded):
			c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "too_many_attempts",
				Message: "Too many failed attempts. Request a new code.",
				Code:    "MAX_ATTEMPTS_EXCEEDED",
			})
		case errors.Is(err, services.ErrCodeInvalid):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_code",
				Message: "The verification code is incorrect",
				Code:    "INVALID_CODE",
			})
		default:
			h.logger.WithError(err).Error("Verification failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "Failed to verify account",
			})
		}
		return
	}

	h.logger.WithField("login", req.Login).Info("Account verified")

	c.JSON(http.StatusOK, gin.H{
		"message": "Account verified. You can now log in.",
	})
}

// ResendCode handles POST /api/v1/auth/resend
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	user, err := h.verificationService.PendingUser(req.Login)
	if err != nil {
		if errors.Is(err, services.ErrNoPendingVerification) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "No pending verification for this login",
				Code:    "NO_PENDING_VERIFICATION",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to look up pending user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to resend code",
		})
		return
	}

	code, err := h.verificationService.Renew(req.Login)
	if err != nil {
		h.logger.WithError(err).WithField("login", req.Login).Error("Failed to renew verification code")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to resend code",
		})
		return
	}

	if err := h.sendVerificationEmail(user.Email, code); err != nil {
		h.logger.WithError(err).WithField("login", req.Login).Error("Failed to send verification email")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "delivery_failed",
			Message: "Failed to send the verification email",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "A new verification code has been sent to your email",
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	user, err := h.userRepo.GetByLogin(req.Login)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get user for login")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to log in",
		})
		return
	}

	// Same response for unknown login and wrong password
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid login or password",
			Code:    "INVALID_CREDENTIALS",
		})
		return
	}

	if !user.Verified() {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "not_verified",
			Message: "Verify your email before logging in",
			Code:    "NOT_VERIFIED",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Login, user.Roles)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to log in",
		})
		return
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.Login)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to log in",
		})
		return
	}

	// Session trace for security review, best effort
	ua := user_agent.New(c.Request.UserAgent())
	browser, _ := ua.Browser()
	if err := h.userRepo.RecordLogin(user.ID, c.ClientIP(), browser, ua.Platform()); err != nil {
		h.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to record login session")
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"login":   user.Login,
	}).Info("User logged in")

	c.JSON(http.StatusOK, models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		UserID:       user.ID,
		Login:        user.Login,
		Roles:        user.Roles,
	})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired refresh token",
			Code:    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	// Roles may have changed since the refresh token was issued
	user, err := h.userRepo.GetByLogin(claims.Login)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Account no longer exists",
			Code:    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.Login, user.Roles)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to refresh token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
	})
}

func (h *AuthHandler) sendVerificationEmail(email, code string) error {
	subject := "Your verification code"
	body := fmt.Sprintf(
		"Your verification code is %s.\n\nIt expires in %d minutes. If you did not request this, ignore this message.",
		code,
		int(h.config.Verification.CodeTTL.Minutes()),
	)
	return h.mailSender.Send(email, subject, body)
}
