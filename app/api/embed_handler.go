package api

import (
	"encoding/base64"
	"io"
	"mime/multipart"

	"ragchat/ingest"
	"ragchat/types"

	"github.com/gofiber/fiber/v2"
)

const defaultURLNamespace = "website"

type EmbedHandler struct {
	engine *ingest.Engine
}

func NewEmbedHandler(engine *ingest.Engine) *EmbedHandler {
	return &EmbedHandler{engine: engine}
}

// HandleEmbed ingests uploaded documents. Two request shapes are accepted:
// multipart form data with one or more "file" parts and a "namespace" field,
// or a JSON body with a base64-encoded file.
func (h *EmbedHandler) HandleEmbed(c *fiber.Ctx) error {
	if form, err := c.MultipartForm(); err == nil && form != nil && len(form.File["file"]) > 0 {
		return h.embedMultipart(c, form.Value, form.File["file"])
	}
	return h.embedJSON(c)
}

func (h *EmbedHandler) embedMultipart(c *fiber.Ctx, values map[string][]string, files []*multipart.FileHeader) error {
	namespace := ""
	if ns := values["namespace"]; len(ns) > 0 {
		namespace = ns[0]
	}
	if namespace == "" {
		return NewValidationError(map[string]string{"namespace": "failed on 'required' tag"})
	}

	var uploads []ingest.Upload
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return err
		}
		uploads = append(uploads, ingest.Upload{Name: fh.Filename, Data: data})
	}

	report := h.engine.IngestFiles(c.Context(), namespace, uploads)
	return c.JSON(report)
}

func (h *EmbedHandler) embedJSON(c *fiber.Ctx) error {
	var params types.EmbedParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}
	if params.FileBase64 == "" {
		return NewValidationError(map[string]string{"file": "either a multipart 'file' or 'fileBase64' is required"})
	}

	data, err := base64.StdEncoding.DecodeString(params.FileBase64)
	if err != nil {
		return NewValidationError(map[string]string{"fileBase64": "invalid base64 payload"})
	}

	name := params.FileName
	if name == "" {
		name = "upload.pdf"
	}

	report := h.engine.IngestFiles(c.Context(), params.Namespace, []ingest.Upload{{Name: name, Data: data}})
	return c.JSON(report)
}

// HandleEmbedURL ingests one or more web pages. Only absolute http/https
// URLs survive validation; a request with none is rejected before any
// fetching happens.
func (h *EmbedHandler) HandleEmbedURL(c *fiber.Ctx) error {
	var params types.URLEmbedParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	raw := params.URLs
	if params.URL != "" {
		raw = append([]string{params.URL}, raw...)
	}
	urls := ingest.ValidateURLs(raw)
	if len(urls) == 0 {
		return NewValidationError(map[string]string{"url": "no valid http(s) url supplied"})
	}

	namespace := params.Namespace
	if namespace == "" {
		namespace = defaultURLNamespace
	}

	report := h.engine.IngestURLs(c.Context(), namespace, urls)
	return c.JSON(report)
}
