package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"wikishelf/internal/service"
)

// ArticleHandler handles saved-article endpoints.
type ArticleHandler struct {
	svc    service.ArticleService
	logger *zap.Logger
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(svc service.ArticleService, logger *zap.Logger) *ArticleHandler {
	return &ArticleHandler{svc: svc, logger: logger}
}

// DownloadRequest asks for a Wikipedia page to be saved.
type DownloadRequest struct {
	Title     string `json:"title" validate:"required,max=255"`
	Lang      string `json:"lang" validate:"omitempty,max=16"`
	Overwrite bool   `json:"overwrite"`
}

// CheckRequest asks whether a title is already saved.
type CheckRequest struct {
	Title string `json:"title" validate:"required"`
}

// CheckResponse answers a CheckRequest.
type CheckResponse struct {
	Exists bool `json:"exists"`
}

// UpdateArticleRequest edits a saved article. At least one field is required.
type UpdateArticleRequest struct {
	Title   *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Content *string `json:"content,omitempty"`
}

// Search godoc
// @Summary Search Wikipedia
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param query query string true "Search terms"
// @Param lang query string false "Language edition" default(en)
// @Success 200 {array} wikipedia.SearchResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /articles/search [get]
func (h *ArticleHandler) Search(c echo.Context) error {
	results, err := h.svc.Search(c.Request().Context(), c.QueryParam("query"), c.QueryParam("lang"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, results)
}

// Download godoc
// @Summary Save a Wikipedia page
// @Description Creates the article (201) or, with overwrite, replaces the saved copy (200).
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DownloadRequest true "Page to save"
// @Success 200 {object} model.Article
// @Success 201 {object} model.Article
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 502 {object} errors.ErrorResponse
// @Router /articles/download [post]
func (h *ArticleHandler) Download(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req DownloadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	article, created, err := h.svc.Download(c.Request().Context(), userID, req.Title, req.Lang, req.Overwrite)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, article)
}

// Check godoc
// @Summary Check whether a title is saved
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckRequest true "Title"
// @Success 200 {object} CheckResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /articles/check [post]
func (h *ArticleHandler) Check(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req CheckRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	exists, err := h.svc.CheckExistence(c.Request().Context(), userID, req.Title)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, CheckResponse{Exists: exists})
}

// List godoc
// @Summary List saved articles
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Article
// @Router /articles [get]
func (h *ArticleHandler) List(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	articles, err := h.svc.List(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, articles)
}

// Random godoc
// @Summary Pick a random saved article
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Article
// @Router /articles/random [get]
func (h *ArticleHandler) Random(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	article, found, err := h.svc.Random(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if !found {
		return c.JSON(http.StatusOK, MessageResponse{Message: "No articles found"})
	}
	return c.JSON(http.StatusOK, article)
}

// Get godoc
// @Summary Get a saved article
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article ID"
// @Success 200 {object} model.Article
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /articles/{id} [get]
func (h *ArticleHandler) Get(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	article, err := h.svc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, article)
}

// Update godoc
// @Summary Edit a saved article
// @Description The previous title and content are kept in the article history.
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article ID"
// @Param request body UpdateArticleRequest true "Fields to change"
// @Success 200 {object} model.Article
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /articles/{id} [put]
func (h *ArticleHandler) Update(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req UpdateArticleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	article, err := h.svc.Update(c.Request().Context(), userID, id, service.ArticleUpdate{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, article)
}

// Delete godoc
// @Summary Delete a saved article
// @Tags articles
// @Security BearerAuth
// @Param id path string true "Article ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /articles/{id} [delete]
func (h *ArticleHandler) Delete(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), userID, id); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// History godoc
// @Summary List earlier versions of a saved article
// @Tags articles
// @Produce json
// @Security BearerAuth
// @Param articleId path string true "Article ID"
// @Success 200 {array} model.ArticleHistory
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /articles/history/{articleId} [get]
func (h *ArticleHandler) History(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "articleId")
	if err != nil {
		return err
	}

	entries, err := h.svc.History(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, entries)
}
