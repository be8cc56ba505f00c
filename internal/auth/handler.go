package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/middleware"
	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
	"github.com/ecohaven/backend/pkg/utils"
)

// AccountStore is the account persistence used by the handlers.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByLogin(ctx context.Context, login string) (*models.Account, error)
	List(ctx context.Context) ([]models.AccountPublic, error)
	Create(ctx context.Context, a *models.Account) error
	UpdateProfile(ctx context.Context, id uuid.UUID, name, username, phone string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Generate(accountID uuid.UUID, email, role string) (string, error)
}

// RegisterRequest is the body for POST /auth/register and POST /accounts/staff.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Phone    string `json:"phone" binding:"required,digits8"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"` // only honoured by CreateStaff
}

// LoginRequest is the body for POST /auth/login. Login is an email or username.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the body for PUT /account/me.
type UpdateProfileRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Phone    string `json:"phone" binding:"required,digits8"`
}

// ChangePasswordRequest is the body for PUT /account/me/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// SetStatusRequest is the body for PATCH /accounts/:id/status.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Active Inactive"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token   string               `json:"token"`
	Account models.AccountPublic `json:"account"`
}

// Handler handles account and auth HTTP endpoints.
type Handler struct {
	repo   AccountStore
	jwt    TokenIssuer
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo AccountStore, jwt TokenIssuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register. Public sign-up always creates a user account.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	acc, ok := h.create(c, req, models.RoleUser)
	if !ok {
		return
	}
	token, err := h.jwt.Generate(acc.ID, acc.Email, string(acc.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, Account: acc.ToPublic()})
}

// CreateStaff handles POST /accounts/staff (admin only).
func (h *Handler) CreateStaff(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.RoleStaff
	switch req.Role {
	case "", string(models.RoleStaff):
	case string(models.RoleAdmin):
		role = models.RoleAdmin
	default:
		response.BadRequest(c, "invalid role")
		return
	}
	acc, ok := h.create(c, req, role)
	if !ok {
		return
	}
	h.logger.Info("staff account created", zap.String("account_id", acc.ID.String()), zap.String("role", string(role)))
	response.Created(c, acc.ToPublic())
}

func (h *Handler) create(c *gin.Context, req RegisterRequest, role models.Role) (*models.Account, bool) {
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return nil, false
	}
	acc := &models.Account{
		Name:         req.Name,
		Username:     req.Username,
		Phone:        req.Phone,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.AccountActive,
	}
	if err := h.repo.Create(c.Request.Context(), acc); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
			response.Conflict(c, err.Error())
		default:
			h.logger.Error("create account failed", zap.Error(err))
			response.Internal(c, "failed to create account")
		}
		return nil, false
	}
	return acc, true
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	acc, err := h.repo.GetByLogin(c.Request.Context(), req.Login)
	if err != nil {
		response.Unauthorized(c, "invalid login or password")
		return
	}
	if !utils.CheckPassword(req.Password, acc.PasswordHash) {
		response.Unauthorized(c, "invalid login or password")
		return
	}
	if acc.Status != models.AccountActive {
		response.ForbiddenCode(c, middleware.CodeAccountInactive, "account is inactive")
		return
	}

	token, err := h.jwt.Generate(acc.ID, acc.Email, string(acc.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, Account: acc.ToPublic()})
}

// Me handles GET /account/me.
func (h *Handler) Me(c *gin.Context) {
	s := middleware.CurrentSession(c)
	acc, err := h.repo.GetByID(c.Request.Context(), s.AccountID)
	if err != nil {
		response.NotFound(c, "account not found")
		return
	}
	response.OK(c, acc.ToPublic())
}

// UpdateMe handles PUT /account/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	if err := h.repo.UpdateProfile(c.Request.Context(), s.AccountID, req.Name, req.Username, req.Phone); err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrAccountNotFound):
			response.NotFound(c, "account not found")
		default:
			response.Internal(c, "failed to update profile")
		}
		return
	}
	h.Me(c)
}

// ChangePassword handles PUT /account/me/password.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	acc, err := h.repo.GetByID(c.Request.Context(), s.AccountID)
	if err != nil {
		response.NotFound(c, "account not found")
		return
	}
	if !utils.CheckPassword(req.CurrentPassword, acc.PasswordHash) {
		response.Unauthorized(c, "current password is incorrect")
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), acc.ID, hash); err != nil {
		response.Internal(c, "failed to update password")
		return
	}
	response.NoContent(c)
}

// List handles GET /accounts (staff).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list accounts")
		return
	}
	response.OK(c, list)
}

// SetStatus handles PATCH /accounts/:id/status (admin). Admins cannot disable themselves.
func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id")
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	s := middleware.CurrentSession(c)
	status := models.AccountStatus(req.Status)
	if id == s.AccountID && status == models.AccountInactive {
		response.BadRequest(c, "cannot deactivate your own account")
		return
	}
	if err := h.repo.SetStatus(c.Request.Context(), id, status); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(c, "account not found")
			return
		}
		response.Internal(c, "failed to update status")
		return
	}
	h.logger.Info("account status changed", zap.String("account_id", id.String()), zap.String("status", req.Status), zap.String("by", s.AccountID.String()))
	response.OK(c, gin.H{"id": id, "status": status})
}
