package auth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/queue"
	"github.com/ecohaven/backend/pkg/response"
	"github.com/ecohaven/backend/pkg/utils"
)

var (
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

const (
	resetCodeDigits  = 6
	resetTokenLength = 32
	// maxCodeAttempts wrong guesses invalidate a reset code.
	maxCodeAttempts = 5
)

// Flow is one password reset flow. Users and staff reset through separate endpoints
// and a flow only accepts accounts whose role belongs to it.
type Flow struct {
	Name  string
	Allow func(models.Role) bool
}

var (
	UserFlow  = Flow{Name: "user", Allow: func(r models.Role) bool { return r == models.RoleUser }}
	StaffFlow = Flow{Name: "staff", Allow: func(r models.Role) bool { return r.IsStaff() }}
)

// ResetStore keeps short-lived reset codes and reset tokens.
type ResetStore interface {
	// SaveCode stores code and clears earlier failed attempts.
	SaveCode(ctx context.Context, flow, email, code string, ttl time.Duration) error
	// ConsumeCode atomically deletes the code and returns true only if it matches.
	ConsumeCode(ctx context.Context, flow, email, code string) (bool, error)
	// RecordFailure counts a wrong guess and returns the number of failures so far.
	RecordFailure(ctx context.Context, flow, email string, ttl time.Duration) (int, error)
	// DropCode deletes the code and its failure count.
	DropCode(ctx context.Context, flow, email string) error
	SaveToken(ctx context.Context, flow, token string, accountID uuid.UUID, ttl time.Duration) error
	// TakeToken returns the account for token and deletes it.
	TakeToken(ctx context.Context, flow, token string) (uuid.UUID, error)
}

// EmailQueue enqueues transactional emails.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// RedisResetStore stores codes under reset:<flow>:code:<email>, failed guesses under
// reset:<flow>:attempts:<email> and tokens under reset:<flow>:token:<token>.
type RedisResetStore struct {
	client *redis.Client
}

// NewRedisResetStore creates a Redis-backed reset store.
func NewRedisResetStore(client *redis.Client) *RedisResetStore {
	return &RedisResetStore{client: client}
}

func codeKey(flow, email string) string { return "reset:" + flow + ":code:" + email }
func tokenKey(flow, token string) string { return "reset:" + flow + ":token:" + token }
func attemptsKey(flow, email string) string { return "reset:" + flow + ":attempts:" + email }

// consumeCodeScript deletes the code and its attempts only when ARGV[1] matches.
var consumeCodeScript = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if stored and stored == ARGV[1] then
	redis.call('DEL', KEYS[1], KEYS[2])
	return 1
end
return 0
`)

func (s *RedisResetStore) SaveCode(ctx context.Context, flow, email, code string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey(flow, email), code, ttl)
		pipe.Del(ctx, attemptsKey(flow, email))
		return nil
	})
	return err
}

func (s *RedisResetStore) ConsumeCode(ctx context.Context, flow, email, code string) (bool, error) {
	n, err := consumeCodeScript.Run(ctx, s.client, []string{codeKey(flow, email), attemptsKey(flow, email)}, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisResetStore) RecordFailure(ctx context.Context, flow, email string, ttl time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, attemptsKey(flow, email))
		pipe.Expire(ctx, attemptsKey(flow, email), ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(incr.Val()), nil
}

func (s *RedisResetStore) DropCode(ctx context.Context, flow, email string) error {
	return s.client.Del(ctx, codeKey(flow, email), attemptsKey(flow, email)).Err()
}

func (s *RedisResetStore) SaveToken(ctx context.Context, flow, token string, accountID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, tokenKey(flow, token), accountID.String(), ttl).Err()
}

func (s *RedisResetStore) TakeToken(ctx context.Context, flow, token string) (uuid.UUID, error) {
	v, err := s.client.GetDel(ctx, tokenKey(flow, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrInvalidResetToken
		}
		return uuid.Nil, err
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, ErrInvalidResetToken
	}
	return id, nil
}

// ResetService runs the forgot / verify / reset sequence.
type ResetService struct {
	accounts AccountStore
	store    ResetStore
	emails   EmailQueue
	ttl      time.Duration
	logger   *zap.Logger
}

// NewResetService creates a password reset service. ttl bounds both codes and reset tokens.
func NewResetService(accounts AccountStore, store ResetStore, emails EmailQueue, ttl time.Duration, logger *zap.Logger) *ResetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResetService{accounts: accounts, store: store, emails: emails, ttl: ttl, logger: logger}
}

// Forgot emails a reset code. Unknown emails and accounts outside the flow return nil.
func (s *ResetService) Forgot(ctx context.Context, flow Flow, email string) error {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil
		}
		return err
	}
	if !flow.Allow(acc.Role) || acc.Status != models.AccountActive {
		s.logger.Info("password reset ignored", zap.String("flow", flow.Name), zap.String("account_id", acc.ID.String()))
		return nil
	}
	code, err := utils.RandomDigits(resetCodeDigits)
	if err != nil {
		return err
	}
	if err := s.store.SaveCode(ctx, flow.Name, acc.Email, code, s.ttl); err != nil {
		return fmt.Errorf("save reset code: %w", err)
	}
	body := fmt.Sprintf(`<p>Hi %s,</p><p>Your EcoHaven password reset code is <strong>%s</strong>. It expires in %d minutes.</p>`,
		html.EscapeString(acc.Name), code, int(s.ttl.Minutes()))
	if err := s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypePasswordReset,
		Reference:      acc.ID.String(),
		RecipientEmail: acc.Email,
		Subject:        "Your EcoHaven password reset code",
		BodyHTML:       body,
	}); err != nil {
		s.logger.Warn("enqueue password reset email failed",
			zap.String("flow", flow.Name), zap.String("account_id", acc.ID.String()), zap.Error(err))
	}
	return nil
}

// Verify exchanges email and code for a one-time reset token. After maxCodeAttempts
// wrong guesses the code is dropped and a new one must be requested.
func (s *ResetService) Verify(ctx context.Context, flow Flow, email, code string) (string, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return "", ErrInvalidCode
		}
		return "", err
	}
	if !flow.Allow(acc.Role) {
		return "", ErrInvalidCode
	}
	ok, err := s.store.ConsumeCode(ctx, flow.Name, acc.Email, code)
	if err != nil {
		return "", err
	}
	if !ok {
		s.recordFailure(ctx, flow, acc)
		return "", ErrInvalidCode
	}
	token, err := utils.RandomHex(resetTokenLength / 2)
	if err != nil {
		return "", err
	}
	if err := s.store.SaveToken(ctx, flow.Name, token, acc.ID, s.ttl); err != nil {
		return "", fmt.Errorf("save reset token: %w", err)
	}
	return token, nil
}

func (s *ResetService) recordFailure(ctx context.Context, flow Flow, acc *models.Account) {
	n, err := s.store.RecordFailure(ctx, flow.Name, acc.Email, s.ttl)
	if err != nil {
		s.logger.Warn("record reset code failure", zap.String("flow", flow.Name), zap.Error(err))
		return
	}
	if n < maxCodeAttempts {
		return
	}
	if err := s.store.DropCode(ctx, flow.Name, acc.Email); err != nil {
		s.logger.Error("drop reset code failed", zap.String("flow", flow.Name), zap.String("account_id", acc.ID.String()), zap.Error(err))
		return
	}
	s.logger.Warn("reset code invalidated after failed attempts",
		zap.String("flow", flow.Name), zap.String("account_id", acc.ID.String()), zap.Int("attempts", n))
}

// Reset sets a new password for the account the token was issued to.
func (s *ResetService) Reset(ctx context.Context, flow Flow, token, password string) error {
	id, err := s.store.TakeToken(ctx, flow.Name, token)
	if err != nil {
		return err
	}
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !flow.Allow(acc.Role) {
		return ErrInvalidResetToken
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("flow", flow.Name), zap.String("account_id", id.String()))
	return nil
}

// ForgotRequest is the body for POST .../password/forgot.
type ForgotRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyRequest is the body for POST .../password/verify.
type VerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,digits6"`
}

// ResetRequest is the body for POST .../password/reset.
type ResetRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ResetHandler exposes a ResetService for one flow.
type ResetHandler struct {
	svc  *ResetService
	flow Flow
}

// NewResetHandler creates reset handlers bound to flow.
func NewResetHandler(svc *ResetService, flow Flow) *ResetHandler {
	return &ResetHandler{svc: svc, flow: flow}
}

// Forgot handles POST .../password/forgot. The response does not reveal whether the email exists.
func (h *ResetHandler) Forgot(c *gin.Context) {
	var req ForgotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.Forgot(c.Request.Context(), h.flow, req.Email); err != nil {
		h.svc.logger.Error("password forgot failed", zap.String("flow", h.flow.Name), zap.Error(err))
		response.Internal(c, "failed to start password reset")
		return
	}
	response.OK(c, gin.H{"message": "if the email is registered, a reset code has been sent"})
}

// Verify handles POST .../password/verify.
func (h *ResetHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	token, err := h.svc.Verify(c.Request.Context(), h.flow, req.Email, req.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, "failed to verify code")
		return
	}
	response.OK(c, gin.H{"token": token})
}

// Reset handles POST .../password/reset.
func (h *ResetHandler) Reset(c *gin.Context) {
	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.svc.Reset(c.Request.Context(), h.flow, req.Token, req.Password); err != nil {
		if errors.Is(err, ErrInvalidResetToken) || errors.Is(err, ErrAccountNotFound) {
			response.BadRequest(c, ErrInvalidResetToken.Error())
			return
		}
		response.Internal(c, "failed to reset password")
		return
	}
	response.NoContent(c)
}
