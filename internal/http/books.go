package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/lumina/internal/library"
)

const epubContentType = "application/epub+zip"

// BooksController serves the library and the renderer's position events.
type BooksController struct {
	library   Library
	downloads DownloadQueue
	folder    func() string
	logger    zerolog.Logger
}

// NewBooksController creates a BooksController. downloads may be nil, in
// which case downloads run within the request.
func NewBooksController(lib Library, downloads DownloadQueue, folder func() string, logger zerolog.Logger) *BooksController {
	if folder == nil {
		folder = func() string { return "" }
	}
	return &BooksController{
		library:   lib,
		downloads: downloads,
		folder:    folder,
		logger:    logger,
	}
}

// PositionRequest is the body of PUT /api/books/:id/position.
type PositionRequest struct {
	Locator string `json:"locator" binding:"required"`
}

// PositionResponse reports the stored reading position of a book.
type PositionResponse struct {
	BookID  string `json:"book_id"`
	Locator string `json:"locator"`
}

// ListBooks handles GET /api/books
func (bc *BooksController) ListBooks(c *gin.Context) {
	books, err := bc.library.List()
	if err != nil {
		respondFailure(c, bc.logger, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "total": len(books)})
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	book, err := bc.library.Get(c.Param("id"))
	if err != nil {
		respondFailure(c, bc.logger, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// GetPosition handles GET /api/books/:id/position
func (bc *BooksController) GetPosition(c *gin.Context) {
	id := c.Param("id")
	locator, err := bc.library.CurrentLocator(id)
	if err != nil {
		respondFailure(c, bc.logger, err, "get position")
		return
	}
	c.JSON(http.StatusOK, PositionResponse{BookID: id, Locator: locator})
}

// UpdatePosition handles PUT /api/books/:id/position
// Called by the renderer on every relocation.
func (bc *BooksController) UpdatePosition(c *gin.Context) {
	var req PositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "locator is required")
		return
	}

	locator := library.NormalizeLocator(req.Locator)
	if !library.IsEPUBCFI(locator) {
		respondBadRequest(c, "locator must be an epubcfi(...) expression")
		return
	}

	id := c.Param("id")
	if err := bc.library.RecordProgress(id, locator); err != nil {
		respondFailure(c, bc.logger, err, "record position")
		return
	}
	c.JSON(http.StatusOK, PositionResponse{BookID: id, Locator: locator})
}

// DownloadBook handles POST /api/books/:id/download
// Enqueues a background download, or downloads inline when no queue is
// configured. A book that is already cached is returned as is.
func (bc *BooksController) DownloadBook(c *gin.Context) {
	id := c.Param("id")
	book, err := bc.library.Get(id)
	if err != nil {
		respondFailure(c, bc.logger, err, "download book")
		return
	}
	if book.IsReady() {
		c.JSON(http.StatusOK, book)
		return
	}

	if bc.downloads == nil {
		book, err = bc.library.Download(c.Request.Context(), id)
		if err != nil {
			respondFailure(c, bc.logger, err, "download book")
			return
		}
		c.JSON(http.StatusOK, book)
		return
	}

	taskID, err := bc.downloads.EnqueueDownload(id)
	if err != nil {
		respondFailure(c, bc.logger, err, "enqueue download")
		return
	}
	respondAccepted(c, "download enqueued", gin.H{"task_id": taskID, "book_id": id})
}

// GetContent handles GET /api/books/:id/content
// Serves the cached EPUB bytes to the renderer.
func (bc *BooksController) GetContent(c *gin.Context) {
	data, err := bc.library.Open(c.Param("id"))
	if err != nil {
		respondFailure(c, bc.logger, err, "open content")
		return
	}
	c.Data(http.StatusOK, epubContentType, data)
}

// EvictContent handles DELETE /api/books/:id/content
func (bc *BooksController) EvictContent(c *gin.Context) {
	if err := bc.library.EvictContent(c.Param("id")); err != nil {
		respondFailure(c, bc.logger, err, "evict content")
		return
	}
	c.Status(http.StatusNoContent)
}

// RefreshLibrary handles POST /api/library/refresh
// Re-reads the Drive listing for the configured folder.
func (bc *BooksController) RefreshLibrary(c *gin.Context) {
	folder := bc.folder()
	count, err := bc.library.RefreshFromRemote(c.Request.Context(), folder)
	if err != nil {
		respondFailure(c, bc.logger, err, "refresh library")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": count, "folder_id": folder})
}
