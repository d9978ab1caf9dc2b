package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/akulikov/bloghub/services"
	"github.com/akulikov/bloghub/utils"
)

// GroupController serves group lookups and the admin-only group creation.
type GroupController struct {
	svc    *services.ContentService
	admins []string
}

// NewGroupController creates a new GroupController instance.
func NewGroupController(svc *services.ContentService, admins []string) *GroupController {
	return &GroupController{svc: svc, admins: admins}
}

// ListGroups returns every community.
func (g *GroupController) ListGroups(ctx *gin.Context) {
	groups, err := g.svc.ListGroups(ctx.Request.Context())
	if err != nil {
		logError("failed to list groups", err)
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list groups")
		return
	}
	utils.Success(ctx, gin.H{"groups": groups})
}

// GetGroup returns one community by slug.
func (g *GroupController) GetGroup(ctx *gin.Context) {
	group, err := g.svc.GetGroup(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "not found")
			return
		}
		logError("failed to load group", err)
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load group")
		return
	}
	utils.Success(ctx, gin.H{"group": group})
}

// CreateGroup lets an admin create a community. Everyone else sees the route
// as missing.
func (g *GroupController) CreateGroup(ctx *gin.Context) {
	caller, ok := getCaller(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40140, "unauthorized")
		return
	}
	if !g.isAdmin(caller.Username) {
		utils.Error(ctx, http.StatusNotFound, 40441, "not found")
		return
	}

	var req struct {
		Title       string `json:"title"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	group, err := g.svc.CreateGroup(ctx.Request.Context(), req.Title, req.Slug, req.Description)
	if err != nil {
		var fieldErrs services.ValidationErrors
		if errors.As(err, &fieldErrs) {
			utils.FieldErrors(ctx, 40041, fieldErrs)
			return
		}
		logError("failed to create group", err)
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to create group")
		return
	}
	utils.Success(ctx, gin.H{"group": group})
}

func (g *GroupController) isAdmin(username string) bool {
	for _, admin := range g.admins {
		if strings.EqualFold(strings.TrimSpace(admin), username) {
			return true
		}
	}
	return false
}
