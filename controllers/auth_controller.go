package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"gorm.io/gorm"

	"github.com/akulikov/bloghub/cache"
	"github.com/akulikov/bloghub/config"
	"github.com/akulikov/bloghub/middleware"
	"github.com/akulikov/bloghub/models"
	"github.com/akulikov/bloghub/utils"
)

const (
	tokenTTL         = 24 * time.Hour
	oauthStatePrefix = "auth:oauth:state:"
	oauthStateTTL    = 10 * time.Minute
)

// AuthController is the identity provider: registration, login, GitHub
// OAuth and token revocation. Content code never touches credentials; it
// only sees the (id, username) identity the middleware extracts from a token.
type AuthController struct {
	db    *gorm.DB
	store cache.Store
	cfg   config.AppConfig
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(db *gorm.DB, store cache.Store, cfg config.AppConfig) *AuthController {
	return &AuthController{db: db, store: store, cfg: cfg}
}

// Register creates a local account and returns a fresh token.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	fields := map[string]string{}
	username := strings.TrimSpace(req.Username)
	if l := len(username); l < 3 || l > 64 {
		fields["username"] = "username must be between 3 and 64 characters"
	}
	if len(req.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if len(fields) > 0 {
		utils.FieldErrors(ctx, 40051, fields)
		return
	}

	var count int64
	if err := a.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		logError("failed to check username", err)
		utils.Error(ctx, http.StatusInternalServerError, 50050, "registration failed")
		return
	}
	if count > 0 {
		utils.FieldErrors(ctx, 40052, map[string]string{"username": "username is already taken"})
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		logError("failed to hash password", err)
		utils.Error(ctx, http.StatusInternalServerError, 50051, "registration failed")
		return
	}

	user := models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		logError("failed to create user", err)
		utils.Error(ctx, http.StatusInternalServerError, 50052, "registration failed")
		return
	}

	a.respondWithToken(ctx, user)
}

// Login verifies credentials and returns a fresh token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40053, "invalid request payload")
		return
	}

	var user models.User
	err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		// One message for both unknown user and wrong password.
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid username or password")
		return
	}

	a.respondWithToken(ctx, user)
}

// Me returns the authenticated caller's public profile.
func (a *AuthController) Me(ctx *gin.Context) {
	caller, ok := getCaller(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40121, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, caller.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "not found")
			return
		}
		logError("failed to load user", err)
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to load user")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40054, "invalid authorization header")
		return
	}
	tokenString := strings.TrimSpace(parts[1])

	claims, err := utils.ParseToken(a.cfg.JWTSecret, tokenString)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40122, "invalid token")
		return
	}

	ttl := tokenTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl > 0 {
		a.store.SetBytes(middleware.RevokedTokenPrefix+tokenString, []byte("1"), ttl)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// OAuthRedirect sends the browser to GitHub with a one-time state nonce.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	conf := a.githubConfig()
	if conf.ClientID == "" {
		utils.Error(ctx, http.StatusNotFound, 40451, "oauth provider not configured")
		return
	}

	state := uuid.NewString()
	a.store.SetBytes(oauthStatePrefix+state, []byte("1"), oauthStateTTL)
	ctx.Redirect(http.StatusFound, conf.AuthCodeURL(state))
}

// OAuthCallback exchanges the code, provisions the user on first login and
// returns a token.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	if _, ok := a.store.GetBytes(oauthStatePrefix + state); !ok {
		utils.Error(ctx, http.StatusBadRequest, 40055, "invalid oauth state")
		return
	}
	a.store.Delete(oauthStatePrefix + state)

	conf := a.githubConfig()
	token, err := conf.Exchange(ctx.Request.Context(), ctx.Query("code"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40056, "oauth exchange failed")
		return
	}

	profile, err := fetchGitHubProfile(ctx.Request.Context(), conf, token)
	if err != nil {
		logError("failed to fetch oauth profile", err)
		utils.Error(ctx, http.StatusBadGateway, 50054, "failed to fetch oauth profile")
		return
	}

	var user models.User
	err = a.db.Where("provider = ? AND provider_id = ?", "github", profile.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Username:   a.uniqueUsername(profile.Login),
			Email:      profile.Email,
			Provider:   "github",
			ProviderID: profile.ID,
		}
		err = a.db.Create(&user).Error
	}
	if err != nil {
		logError("failed to provision oauth user", err)
		utils.Error(ctx, http.StatusInternalServerError, 50055, "login failed")
		return
	}

	a.respondWithToken(ctx, user)
}

func (a *AuthController) respondWithToken(ctx *gin.Context, user models.User) {
	token, err := utils.GenerateToken(a.cfg.JWTSecret, user.ID, user.Username, tokenTTL)
	if err != nil {
		logError("failed to issue token", err)
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to issue token")
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": user})
}

func (a *AuthController) githubConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.cfg.GitHubClientID,
		ClientSecret: a.cfg.GitHubClientSecret,
		Endpoint:     github.Endpoint,
		RedirectURL:  a.cfg.OAuthRedirectBase + "/api/v1/auth/oauth/github/callback",
		Scopes:       []string{"read:user", "user:email"},
	}
}

// uniqueUsername suffixes the preferred name until it is free.
func (a *AuthController) uniqueUsername(preferred string) string {
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		preferred = "user"
	}
	candidate := preferred
	for i := 1; ; i++ {
		var count int64
		if err := a.db.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil || count == 0 {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", preferred, i)
	}
}

type githubProfile struct {
	ID    string
	Login string
	Email string
}

func fetchGitHubProfile(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (githubProfile, error) {
	client := conf.Client(ctx, token)
	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return githubProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return githubProfile{}, fmt.Errorf("github profile request returned %d", resp.StatusCode)
	}

	var raw struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return githubProfile{}, err
	}
	return githubProfile{
		ID:    fmt.Sprintf("%d", raw.ID),
		Login: raw.Login,
		Email: raw.Email,
	}, nil
}
