package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"quotadrop/internal/domain"
	"quotadrop/internal/service"
)

type LinkHandler struct {
	ingestion      *service.IngestionService
	resolution     *service.ResolutionService
	redemption     *service.RedemptionService
	defaultLimit   int
	defaultTTL     time.Duration
	maxUploadBytes int64
}

type uploadedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type uploadResponse struct {
	LinkID    string         `json:"link_id"`
	Files     []uploadedFile `json:"files"`
	Limit     int            `json:"limit"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

func NewLinkHandler(
	ingestion *service.IngestionService,
	resolution *service.ResolutionService,
	redemption *service.RedemptionService,
	defaultLimit int,
	defaultTTL time.Duration,
	maxUploadBytes int64,
) *LinkHandler {
	return &LinkHandler{
		ingestion:      ingestion,
		resolution:     resolution,
		redemption:     redemption,
		defaultLimit:   defaultLimit,
		defaultTTL:     defaultTTL,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload обрабатывает POST /upload: multipart с полями files, limit, expires_in
func (h *LinkHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "bad_request", "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts := service.UploadOptions{Limit: h.defaultLimit, TTL: h.defaultTTL}
	if s := r.FormValue("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid limit")
			return
		}
		opts.Limit = limit
	}
	if s := r.FormValue("expires_in"); s != "" {
		seconds, err := strconv.ParseInt(s, 10, 64)
		if err != nil || seconds < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid expires_in")
			return
		}
		opts.TTL = time.Duration(seconds) * time.Second
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", "No files uploaded")
		return
	}

	uploads := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Failed to read "+fh.Filename)
			return
		}
		defer f.Close()

		uploads = append(uploads, domain.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	link, err := h.ingestion.Upload(r.Context(), uploads, opts)
	if err != nil {
		log.Printf("[Upload] Failed: %v", err)
		writeDomainError(w, err)
		return
	}

	resp := uploadResponse{
		LinkID:    link.ID,
		Files:     make([]uploadedFile, 0, len(link.Files)),
		Limit:     link.Limit,
		ExpiresAt: link.Expiry,
	}
	for _, m := range link.Files {
		resp.Files = append(resp.Files, uploadedFile{ID: m.ID, Name: m.Name})
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetLink обрабатывает GET /link/{linkId}
func (h *LinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkId")

	manifest, err := h.resolution.Resolve(r.Context(), linkID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, manifest)
}

// Download обрабатывает GET /download/{linkId}/{fileId}
func (h *LinkHandler) Download(w http.ResponseWriter, r *http.Request) {
	linkID := chi.URLParam(r, "linkId")
	fileID := chi.URLParam(r, "fileId")

	grant, err := h.redemption.Redeem(r.Context(), linkID, fileID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

// Routes регистрирует маршруты ссылок
func (h *LinkHandler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Get("/link/{linkId}", h.GetLink)
	r.Get("/download/{linkId}/{fileId}", h.Download)
}

// Health — проверка живости, с опциональной проверкой хранилища
func Health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
