package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/akulikov/bloghub/middleware"
	"github.com/akulikov/bloghub/services"
	"github.com/akulikov/bloghub/utils"
)

// PostController exposes listings, post detail, create/edit and comments.
type PostController struct {
	svc      *services.ContentService
	mediaDir string
}

// NewPostController creates a new PostController instance.
func NewPostController(svc *services.ContentService, mediaDir string) *PostController {
	return &PostController{svc: svc, mediaDir: mediaDir}
}

// Index returns the paginated listing of all posts, newest first. Served
// through the listing cache, so a just-published post may lag behind for the
// configured staleness window.
func (p *PostController) Index(ctx *gin.Context) {
	page, err := p.svc.ListPosts(ctx.Request.Context(), services.AllPosts(), parsePage(ctx.Query("page")))
	if err != nil {
		logError("failed to list posts", err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"posts": page})
}

// GroupPosts lists the posts of one group.
func (p *PostController) GroupPosts(ctx *gin.Context) {
	slug := ctx.Param("slug")
	page, err := p.svc.ListPosts(ctx.Request.Context(), services.PostsByGroup(slug), parsePage(ctx.Query("page")))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "not found")
			return
		}
		logError("failed to list group posts", err)
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to list group posts")
		return
	}
	utils.Success(ctx, gin.H{"posts": page})
}

// AuthorPosts lists the posts of one author, the profile page data.
func (p *PostController) AuthorPosts(ctx *gin.Context) {
	username := ctx.Param("username")
	page, err := p.svc.ListPosts(ctx.Request.Context(), services.PostsByAuthor(username), parsePage(ctx.Query("page")))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "not found")
			return
		}
		logError("failed to list author posts", err)
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to list author posts")
		return
	}
	utils.Success(ctx, gin.H{"posts": page})
}

// GetPost returns one post with its comments. The post's canonical address
// embeds the author's username; a mismatch is answered exactly like a
// missing post.
func (p *PostController) GetPost(ctx *gin.Context) {
	username := ctx.Param("username")
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40412, "not found")
		return
	}

	post, err := p.svc.GetPost(ctx.Request.Context(), username, postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40412, "not found")
			return
		}
		logError("failed to load post", err)
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load post")
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// CreatePost publishes a new post authored by the caller.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Text      string `json:"text"`
		GroupSlug string `json:"group"`
		Image     string `json:"image"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	caller, ok := getCaller(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	post, err := p.svc.CreatePost(ctx.Request.Context(), caller, services.PostInput{
		Text:      req.Text,
		GroupSlug: req.GroupSlug,
		Image:     req.Image,
	})
	if err != nil {
		var fieldErrs services.ValidationErrors
		if errors.As(err, &fieldErrs) {
			utils.FieldErrors(ctx, 40021, fieldErrs)
			return
		}
		logError("failed to create post", err)
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to create post")
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost edits a post. Only the author's edits take effect; anyone else
// gets the unchanged post back with no error, as if nothing was submitted.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Text      *string `json:"text"`
		GroupSlug *string `json:"group"`
		Image     *string `json:"image"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40413, "not found")
		return
	}

	caller, ok := getCaller(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	post, err := p.svc.UpdatePost(ctx.Request.Context(), caller, postID, services.PostUpdate{
		Text:      req.Text,
		GroupSlug: req.GroupSlug,
		Image:     req.Image,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, 40413, "not found")
		case errors.Is(err, services.ErrNotAuthor):
			// Deliberate non-disclosure: respond as a successful fetch of
			// the untouched post.
			utils.Success(ctx, gin.H{"post": post})
		default:
			var fieldErrs services.ValidationErrors
			if errors.As(err, &fieldErrs) {
				utils.FieldErrors(ctx, 40023, fieldErrs)
				return
			}
			logError("failed to update post", err)
			utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to update post")
		}
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// AddComment appends a comment to a post on behalf of the caller.
func (p *PostController) AddComment(ctx *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40414, "not found")
		return
	}

	caller, ok := getCaller(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	comment, err := p.svc.AddComment(ctx.Request.Context(), caller, postID, req.Text)
	if err != nil {
		var fieldErrs services.ValidationErrors
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, 40414, "not found")
		case errors.As(err, &fieldErrs):
			utils.FieldErrors(ctx, 40025, fieldErrs)
		default:
			logError("failed to add comment", err)
			utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to add comment")
		}
		return
	}
	utils.Success(ctx, gin.H{"comment": comment})
}

const maxImageSize = 10 * 1024 * 1024 // 10MB

// UploadImage stores an uploaded image under the media directory and returns
// the reference to put into a post.
func (p *PostController) UploadImage(ctx *gin.Context) {
	if _, ok := getCaller(ctx); !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		utils.Error(ctx, http.StatusBadRequest, 40031, "file size exceeds 10MB")
		return
	}

	now := time.Now()
	relDir := filepath.Join(now.Format("2006"), now.Format("01"), now.Format("02"))
	baseDir := filepath.Join(p.mediaDir, relDir)
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		logError("failed to create media directory", err)
		utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to store file")
		return
	}

	ext := filepath.Ext(header.Filename)
	name := uuid.NewString() + ext
	dstPath := filepath.Join(baseDir, name)

	out, err := os.Create(dstPath)
	if err != nil {
		logError("failed to create media file", err)
		utils.Error(ctx, http.StatusInternalServerError, 50018, "failed to store file")
		return
	}
	defer out.Close()

	written, err := io.Copy(out, &io.LimitedReader{R: file, N: maxImageSize + 1})
	if err != nil || written > maxImageSize {
		_ = os.Remove(dstPath)
		utils.Error(ctx, http.StatusBadRequest, 40031, "file size exceeds 10MB")
		return
	}

	utils.Success(ctx, gin.H{"url": fmt.Sprintf("/media/%s/%s", filepath.ToSlash(relDir), name)})
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return page
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func getCaller(ctx *gin.Context) (services.Identity, bool) {
	idVal, okID := ctx.Get(middleware.ContextUserIDKey)
	nameVal, okName := ctx.Get(middleware.ContextUsernameKey)
	if !okID || !okName {
		return services.Identity{}, false
	}
	id, ok := idVal.(uint)
	if !ok {
		return services.Identity{}, false
	}
	name, ok := nameVal.(string)
	if !ok {
		return services.Identity{}, false
	}
	return services.Identity{UserID: id, Username: name}, true
}

func logError(msg string, err error) {
	if utils.Sugar != nil {
		utils.Sugar.Errorf("%s: %v", msg, err)
	}
}
