package handlers

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// AssetHandler serves the page shell and static assets from an fs.FS.
type AssetHandler struct {
	files fs.FS
}

func NewAssetHandler(files fs.FS) *AssetHandler {
	return &AssetHandler{files: files}
}

// Register mounts "/" and every top-level file of the asset FS.
func (h *AssetHandler) Register(router gin.IRoutes) error {
	entries, err := fs.ReadDir(h.files, ".")
	if err != nil {
		return err
	}
	router.GET("/", h.Serve)
	router.HEAD("/", h.Serve)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		router.GET("/"+entry.Name(), h.Serve)
		router.HEAD("/"+entry.Name(), h.Serve)
	}
	return nil
}

func (h *AssetHandler) Serve(c *gin.Context) {
	name := strings.TrimPrefix(path.Clean(c.Request.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	data, err := fs.ReadFile(h.files, name)
	if errors.Is(err, fs.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read asset", "details": err.Error()})
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if name == "manifest.json" {
		contentType = "application/manifest+json"
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, contentType, data)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
