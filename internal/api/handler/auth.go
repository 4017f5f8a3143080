package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/careroster/careroster/internal/api/models"
	"github.com/careroster/careroster/internal/api/response"
	"github.com/careroster/careroster/internal/auth"
)

// AuthHandler handles authentication endpoints. Staff identity lives in the
// agency's HR system; this handler only exchanges a provisioning secret for
// a short-lived role-carrying access token.
type AuthHandler struct {
	jwtService *auth.JWTService
	secret     string
	logger     zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(jwtService *auth.JWTService, provisioningSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		secret:     provisioningSecret,
		logger:     logger.With().Str("handler", "auth").Logger(),
	}
}

// Token handles POST /v1/auth/token - mint a staff access token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var input models.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if input.StaffID == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "staffId", Message: "is required"})
	}
	if !auth.ValidRole(input.Role) {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "role", Message: "must be coordinator or carer"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation error", fieldErrors)
		return
	}

	if subtle.ConstantTimeCompare([]byte(input.Secret), []byte(h.secret)) != 1 {
		h.logger.Warn().Str("staff_id", input.StaffID).Msg("token request with bad secret")
		response.Unauthorized(w, r, "invalid provisioning secret")
		return
	}

	token, expiresAt, err := h.jwtService.GenerateAccessToken(input.StaffID, input.Role)
	if err != nil {
		h.logger.Error().Err(err).Msg("token generation failed")
		response.InternalError(w, r, "token generation failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   models.Timestamp(expiresAt),
	})
}
