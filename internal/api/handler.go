// Package api exposes the statement engine over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/insightdelivered/statement-engine/internal/engine"
	"github.com/insightdelivered/statement-engine/internal/extractor"
	"github.com/insightdelivered/statement-engine/internal/metrics"
	"github.com/insightdelivered/statement-engine/internal/models"
	"github.com/insightdelivered/statement-engine/internal/writer"
)

// pageBreak separates pages in text extracted client-side by pdf.js.
const pageBreak = "\n---PAGE_BREAK---\n"

// Response is the JSON envelope of every parse endpoint.
type Response struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Kind    models.IssueKind `json:"kind,omitempty"`
	Result  *engine.Result   `json:"result,omitempty"`
	CSV     string           `json:"csv,omitempty"`
	RawText string           `json:"rawText,omitempty"`
	Version string           `json:"version,omitempty"`
}

// ParseRequest is the body of /api/parse and /api/detect.
type ParseRequest struct {
	Pages    []string                   `json:"pages"`
	Bank     string                     `json:"bank"`
	Filename string                     `json:"filename"`
	Prior    []models.ParsedTransaction `json:"prior"`
}

// DuplicatesRequest is the body of /api/duplicates.
type DuplicatesRequest struct {
	Transactions []models.ParsedTransaction `json:"transactions"`
	Prior        []models.ParsedTransaction `json:"prior"`
}

// BankInfo describes one supported bank.
type BankInfo struct {
	ID       models.BankID `json:"id"`
	Name     string        `json:"name"`
	Currency string        `json:"currency"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Engine    *engine.Engine
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	StaticDir string
	Version   string
}

// NewApp returns a fiber app with middleware and all routes registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statement-engine",
		BodyLimit:             32 << 20,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Get("/api/banks", h.handleBanks)
	app.Post("/api/detect", h.handleDetect)
	app.Post("/api/parse", h.handleParse)
	app.Post("/api/convert", h.HandleConvert)
	app.Post("/api/stats", h.handleStats)
	app.Post("/api/duplicates", h.handleDuplicates)
	if h.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.Metrics.Handler()))
	}

	// Serve the SPA: unknown non-API paths fall back to index.html.
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			if strings.HasPrefix(c.Path(), "/api/") {
				return fiber.ErrNotFound
			}
			return c.SendFile(filepath.Join(h.StaticDir, "index.html"))
		})
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

func (h *Handler) handleBanks(c *fiber.Ctx) error {
	cfgs := h.Engine.Registry().All()
	out := make([]BankInfo, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, BankInfo{ID: cfg.ID, Name: cfg.DisplayName, Currency: cfg.Currency})
	}
	return c.JSON(out)
}

func (h *Handler) handleDetect(c *fiber.Ctx) error {
	var req ParseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	hint, err := h.Engine.Registry().ParseBankID(req.Bank)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(h.Engine.DetectBank(req.Pages, hint))
}

func (h *Handler) handleParse(c *fiber.Ctx) error {
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return h.HandleConvert(c)
	}

	var req ParseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	hint, err := h.Engine.Registry().ParseBankID(req.Bank)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := h.parse(c.UserContext(), req.Pages, engine.ParseOptions{
		Hint:     hint,
		Filename: req.Filename,
		Prior:    req.Prior,
	})
	if err != nil {
		return h.writeFailure(c, res, err)
	}

	if c.Query("format") == "csv" {
		var buf bytes.Buffer
		w := &writer.CSVWriter{IncludeHeader: c.Query("header") != "false"}
		if err := w.Write(&buf, res); err != nil {
			return fmt.Errorf("CSV generation failed: %w", err)
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	}
	return c.JSON(Response{Success: true, Result: res, Version: h.Version})
}

// HandleConvert accepts a multipart upload of a PDF or text statement and
// returns the parse result with a CSV rendering.
func (h *Handler) HandleConvert(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".pdf" && ext != ".txt" {
		return fiber.NewError(fiber.StatusBadRequest, "Only PDF and text files are supported.")
	}

	hint, err := h.Engine.Registry().ParseBankID(c.FormValue("bank"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	includeHeader := c.FormValue("header") != "false"

	var doc *extractor.Document
	// Pre-extracted text from client-side pdf.js takes precedence.
	if text := c.FormValue("extractedText"); strings.TrimSpace(text) != "" {
		pages := strings.Split(text, pageBreak)
		doc = &extractor.Document{Pages: pages, PageCount: len(pages)}
	} else if ext == ".txt" {
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("failed to read uploaded file: %w", err)
		}
		defer f.Close()
		if doc, err = extractor.ReadText(f); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	} else {
		tmp, err := os.CreateTemp("", "statement-*.pdf")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if err := c.SaveFile(fh, tmp.Name()); err != nil {
			return fmt.Errorf("failed to save uploaded file: %w", err)
		}
		if doc, err = extractor.ExtractText(tmp.Name()); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("PDF extraction failed: %v", err))
		}
	}

	res, err := h.parse(c.UserContext(), doc.Pages, engine.ParseOptions{
		Hint:              hint,
		Filename:          fh.Filename,
		ExpectedPageCount: doc.PageCount,
	})
	if err != nil {
		return h.writeFailure(c, res, err)
	}

	var csvBuf bytes.Buffer
	w := &writer.CSVWriter{IncludeHeader: includeHeader}
	if err := w.Write(&csvBuf, res); err != nil {
		return fmt.Errorf("CSV generation failed: %w", err)
	}

	return c.JSON(Response{
		Success: true,
		Result:  res,
		CSV:     csvBuf.String(),
		RawText: strings.Join(doc.Pages, "\n--- PAGE BREAK ---\n"),
		Version: h.Version,
	})
}

func (h *Handler) handleStats(c *fiber.Ctx) error {
	var stmt models.ParsedStatement
	if err := c.BodyParser(&stmt); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid statement: %v", err))
	}
	return c.JSON(h.Engine.ComputeStats(&stmt))
}

func (h *Handler) handleDuplicates(c *fiber.Ctx) error {
	var req DuplicatesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	txns := h.Engine.MarkDuplicates(req.Transactions, req.Prior)
	if txns == nil {
		txns = []models.ParsedTransaction{}
	}
	return c.JSON(txns)
}

func (h *Handler) parse(ctx context.Context, pages []string, opts engine.ParseOptions) (*engine.Result, error) {
	start := time.Now()
	res, err := h.Engine.ParseStatement(ctx, pages, opts)
	if h.Metrics != nil {
		h.Metrics.Observe(res, err, time.Since(start))
	}
	return res, err
}

func (h *Handler) writeFailure(c *fiber.Ctx, res *engine.Result, err error) error {
	if errors.Is(err, engine.ErrNoPages) {
		return fiber.NewError(fiber.StatusBadRequest, "no pages supplied")
	}
	status := fiber.StatusUnprocessableEntity
	if errors.Is(err, engine.ErrCancelled) {
		status = fiber.StatusRequestTimeout
	}
	if h.Logger != nil {
		h.Logger.Info("parse rejected", "kind", engine.KindOf(err), "error", err)
	}
	return c.Status(status).JSON(Response{
		Success: false,
		Error:   err.Error(),
		Kind:    engine.KindOf(err),
		Result:  res,
		Version: h.Version,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(Response{Success: false, Error: err.Error()})
}
