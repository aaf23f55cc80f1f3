package api

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"manualqa/loader"
	"manualqa/qa"
	"manualqa/store"
	"manualqa/types"
)

const defaultTopK = 4

// AskHandler serves /ask through the answer engine.
type AskHandler struct {
	engine *qa.Engine
}

func NewAskHandler(engine *qa.Engine) *AskHandler {
	return &AskHandler{engine: engine}
}

func (h *AskHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}
	if params.TopK == 0 {
		params.TopK = defaultTopK
	}

	resp := h.engine.Ask(c.Context(), params.Query, params.TopK)
	return c.JSON(resp)
}

// IngestHandler serves the two ingestion endpoints, feeding the shared
// corpus. Format errors are request-scoped and never touch existing state.
type IngestHandler struct {
	corpus *store.Corpus
}

func NewIngestHandler(corpus *store.Corpus) *IngestHandler {
	return &IngestHandler{corpus: corpus}
}

// HandleIngest accepts a multipart title + UTF-8 text file.
func (h *IngestHandler) HandleIngest(c *fiber.Ctx) error {
	title, data, err := readUpload(c)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return ErrUnsupportedDocument("file is not valid UTF-8 text")
	}

	added, err := h.corpus.Ingest(c.Context(), title, string(data))
	if err != nil {
		return fmt.Errorf("ingest %q: %w", title, err)
	}
	return c.JSON(h.response(c, added))
}

// HandleIngestPDF accepts a multipart title + PDF file and ingests the
// extracted per-page text.
func (h *IngestHandler) HandleIngestPDF(c *fiber.Ctx) error {
	title, data, err := readUpload(c)
	if err != nil {
		return err
	}

	pages, err := loader.ExtractPages(data)
	if err != nil {
		return ErrUnsupportedDocument(fmt.Sprintf("PDF 열기 실패: %v", err))
	}

	added, err := h.corpus.IngestPages(c.Context(), title, pages)
	if err != nil {
		return fmt.Errorf("ingest pdf %q: %w", title, err)
	}
	return c.JSON(h.response(c, added))
}

func (h *IngestHandler) response(c *fiber.Ctx, added int) types.IngestResponse {
	return types.IngestResponse{
		OK:         true,
		DocID:      uuid.New().String(),
		Added:      added,
		TotalDocs:  h.corpus.Len(),
		VectorRows: h.corpus.VectorRows(c.Context()),
	}
}

func readUpload(c *fiber.Ctx) (string, []byte, error) {
	title := c.FormValue("title")
	if title == "" {
		return "", nil, ErrUnsupportedDocument("title is required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, ErrBadRequest()
	}
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return title, data, nil
}
