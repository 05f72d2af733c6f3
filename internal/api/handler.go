package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/upi-statement-extractor/internal/extractor"
	"github.com/insightdelivered/upi-statement-extractor/internal/logger"
	"github.com/insightdelivered/upi-statement-extractor/internal/models"
	"github.com/insightdelivered/upi-statement-extractor/internal/parser"
	"github.com/insightdelivered/upi-statement-extractor/internal/writer"
)

// pageBreak separates pages in client-side extracted text.
const pageBreak = "\n---PAGE_BREAK---\n"

// ExtractResponse is the JSON response from the /api/extract endpoint.
type ExtractResponse struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error,omitempty"`
	RunID        string               `json:"runId,omitempty"`
	Provider     models.Provider      `json:"provider,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
	TotalIncome  decimal.Decimal      `json:"totalIncome"`
	TotalExpense decimal.Decimal      `json:"totalExpense"`
	CSV          string               `json:"csv,omitempty"`
	DebugLines   []models.BlockTrace  `json:"debugLines,omitempty"`
	Version      string               `json:"version,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Engine  *parser.Engine
	Log     zerolog.Logger
	Version string
}

// NewApp builds a fiber app with CORS, panic recovery, request logging and
// JSON error responses, and registers the API routes.
func NewApp(h *Handler, bodyLimitMB int) *fiber.App {
	if bodyLimitMB < 1 {
		bodyLimitMB = 4
	}
	app := fiber.New(fiber.Config{
		AppName:               "upi-statement-extractor",
		BodyLimit:             bodyLimitMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(h.requestLogger)
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the API routes.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Get("/api/health", h.HandleHealth)
	r.Post("/api/extract", h.HandleExtract)
}

// requestLogger stores a request-scoped logger in the user context.
func (h *Handler) requestLogger(c *fiber.Ctx) error {
	log := h.Log.With().Str("method", c.Method()).Str("path", c.Path()).Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), log))
	err := c.Next()
	log.Debug().Int("status", c.Response().StatusCode()).Msg("request served")
	return err
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

// HandleExtract accepts a PDF or text upload and returns the transactions
// found in it.
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	runID := uuid.NewString()
	log := logger.FromContext(c.UserContext()).With().Str("run_id", runID).Logger()

	pages, status, err := readInput(c)
	if err != nil {
		log.Warn().Err(err).Int("status", status).Msg("rejected input")
		return writeError(c, status, err.Error())
	}

	info, err := h.Engine.Parse(pages)
	if err != nil {
		if errors.Is(err, parser.ErrEmptyInput) {
			return writeError(c, fiber.StatusUnprocessableEntity, "The statement contains no extractable text.")
		}
		return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("Parsing failed: %v", err))
	}

	// nil marshals to JSON null, not []
	txns := info.Transactions
	if txns == nil {
		txns = []models.Transaction{}
	}
	income, expense := info.Totals()

	resp := ExtractResponse{
		Success:      true,
		RunID:        runID,
		Provider:     info.Provider,
		Transactions: txns,
		Count:        len(txns),
		TotalIncome:  income,
		TotalExpense: expense,
		Version:      h.Version,
	}

	if boolParam(c, "csv") {
		var buf bytes.Buffer
		w := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
		if err := w.Write(&buf, info); err != nil {
			return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
		}
		resp.CSV = buf.String()
	}
	if boolParam(c, "debug") {
		resp.DebugLines = info.DebugLines
	}

	log.Info().
		Str("provider", string(info.Provider)).
		Int("transactions", len(txns)).
		Msg("statement extracted")
	return c.JSON(resp)
}

// readInput returns the statement pages from the request. Text fields win
// over the uploaded file unless they are blank.
func readInput(c *fiber.Ctx) ([]string, int, error) {
	text, hasText := formField(c, "extractedText")
	if !hasText {
		text, hasText = formField(c, "text")
	}
	if pages := splitPages(text); len(pages) > 0 {
		return pages, 0, nil
	}

	if fh, err := c.FormFile("file"); err == nil {
		pages, err := readFile(fh)
		if err != nil {
			return nil, fiber.StatusUnprocessableEntity, err
		}
		return pages, 0, nil
	}

	if hasText {
		// Blank text still goes to the engine, which reports it as empty.
		return []string{text}, 0, nil
	}
	return nil, fiber.StatusBadRequest, errors.New("No input. Upload a PDF as 'file' or send text as 'text'.")
}

func readFile(fh *multipart.FileHeader) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".pdf" && ext != ".txt" {
		return nil, fmt.Errorf("unsupported file type %q: upload a .pdf or .txt file", ext)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	defer f.Close()

	if ext == ".txt" {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return []string{string(data)}, nil
	}

	pages, err := extractor.ExtractReader(f, fh.Size)
	if err != nil {
		return nil, fmt.Errorf("PDF extraction failed: %w", err)
	}
	return pages, nil
}

// formField reports the value of a form field and whether it was sent at all.
func formField(c *fiber.Ctx, key string) (string, bool) {
	if form, err := c.MultipartForm(); err == nil {
		if vals := form.Value[key]; len(vals) > 0 {
			return vals[0], true
		}
		return "", false
	}
	args := c.Request().PostArgs()
	if args.Has(key) {
		return string(args.Peek(key)), true
	}
	return "", false
}

func splitPages(text string) []string {
	var pages []string
	for _, page := range strings.Split(text, pageBreak) {
		if strings.TrimSpace(page) != "" {
			pages = append(pages, page)
		}
	}
	return pages
}

func boolParam(c *fiber.Ctx, key string) bool {
	return c.Query(key) == "true" || c.FormValue(key) == "true"
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := fmt.Sprintf("Internal server error: %v", err)
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code, msg = fe.Code, fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Msg("request failed")
	}
	return writeError(c, code, msg)
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ExtractResponse{
		Success: false,
		Error:   msg,
	})
}
