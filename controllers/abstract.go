package controllers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"conference-abstracts-api/models"
	"conference-abstracts-api/services"

	"github.com/gin-gonic/gin"
)

type CreateAbstractRequest struct {
	Title           string                  `json:"title" binding:"required"`
	Track           string                  `json:"track" binding:"required"`
	Category        *string                 `json:"category"`
	Subcategory     *string                 `json:"subcategory"`
	Authors         []models.AbstractAuthor `json:"authors" binding:"required,min=1"`
	Keywords        []string                `json:"keywords"`
	RegistrationRef *string                 `json:"registration_ref"`
}

// CreateAbstract POST /abstracts
func CreateAbstract(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateAbstractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	abstract, err := getServices().Abstracts.Create(c.Request.Context(), actor, services.CreateAbstractInput{
		Title:           req.Title,
		Track:           req.Track,
		Category:        req.Category,
		Subcategory:     req.Subcategory,
		Authors:         req.Authors,
		Keywords:        req.Keywords,
		RegistrationRef: req.RegistrationRef,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Abstract submitted successfully",
		"abstract": abstract,
	})
}

// GetMyAbstracts GET /abstracts
func GetMyAbstracts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	abstracts, err := getServices().Abstracts.ListOwned(c.Request.Context(), actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "abstracts": abstracts, "total": len(abstracts)})
}

// GetAbstract GET /abstracts/:code
func GetAbstract(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	abstract, err := getServices().Abstracts.Get(c.Request.Context(), actor, c.Param("code"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "abstract": abstract})
}

// UploadAbstractFile POST /abstracts/:code/file
func UploadAbstractFile(c *gin.Context) {
	uploadStage(c, false)
}

// SubmitFinalAbstract POST /abstracts/:code/final
func SubmitFinalAbstract(c *gin.Context) {
	uploadStage(c, true)
}

func uploadStage(c *gin.Context, final bool) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unable to read uploaded file"})
		return
	}
	defer file.Close()

	input := services.FileInput{
		Name:     header.Filename,
		Size:     header.Size,
		MimeType: uploadMimeType(header.Header.Get("Content-Type"), header.Filename),
		Content:  file,
	}

	svc := getServices().Abstracts
	var abstract *models.AbstractSubmission
	if final {
		abstract, err = svc.SubmitFinal(c.Request.Context(), actor, c.Param("code"), input)
	} else {
		abstract, err = svc.UploadInitialFile(c.Request.Context(), actor, c.Param("code"), input)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "File uploaded successfully"
	if final {
		message = "Final submission received"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message, "abstract": abstract})
}

// uploadMimeType prefers the part's declared type and falls back to the file extension.
func uploadMimeType(declared, filename string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

// GetPublicAbstractSettings GET /abstracts/settings/public
func GetPublicAbstractSettings(c *gin.Context) {
	settings, err := getServices().Settings.GetPublicSettings(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}
