package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/glimpse/internal/domain"
	"github.com/MrSnakeDoc/glimpse/internal/flow"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/mw"
	"github.com/MrSnakeDoc/glimpse/internal/identify"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/utils"
)

type identifyRequest struct {
	ImageData string `json:"imageData"`
}

type identifyResponse struct {
	ID       string               `json:"id"`
	Redirect string               `json:"redirect"`
	Artwork  domain.ArtworkRecord `json:"artwork"`
}

// multipartOverhead leaves room for form boundaries and headers.
const multipartOverhead = 1 << 20

// Identify accepts an image as JSON {"imageData": "<base64 or data URL>"} or
// as a multipart "file" field, identifies it and hands the result off to the
// session.
func Identify(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageData, err := readImage(w, r, d.MaxImageBytes)
		if err != nil {
			writeError(w, identifyStatus(err), err.Error())
			return
		}

		out, err := d.Flow.Submit(r.Context(), mw.SessionID(r.Context()), handoffFor(r, d), imageData)
		if err != nil {
			status := identifyStatus(err)
			if status == http.StatusInternalServerError {
				d.Logger.Error("identification failed", logger.Error(err))
			}
			writeError(w, status, err.Error())
			return
		}

		w.Header().Set("Location", out.Redirect)
		writeJSON(w, http.StatusCreated, identifyResponse{
			ID:       out.ID,
			Redirect: out.Redirect,
			Artwork:  out.Record,
		})
	}
}

// readImage returns the upload as a validated data URL or base64 string.
func readImage(w http.ResponseWriter, r *http.Request, maxBytes int) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return readMultipartImage(w, r, maxBytes)
	}

	// base64 inflates by 4/3
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes)/3*4+multipartOverhead)

	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", &identify.InvalidImageError{Reason: "image is too large"}
		}
		return "", &identify.InvalidImageError{Reason: "expected a JSON body with imageData"}
	}
	if _, err := identify.ValidateImage(req.ImageData, maxBytes); err != nil {
		return "", err
	}
	return req.ImageData, nil
}

func readMultipartImage(w http.ResponseWriter, r *http.Request, maxBytes int) (string, error) {
	limit := int64(maxBytes) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > limit {
			return "", &identify.InvalidImageError{Reason: "image is too large"}
		}
		return "", &identify.InvalidImageError{Reason: "missing file field"}
	}
	defer utils.Close(file)

	raw, err := io.ReadAll(io.LimitReader(file, int64(maxBytes)+1))
	if err != nil {
		return "", &identify.InvalidImageError{Reason: "failed to read upload"}
	}

	contentType, err := identify.ValidateImageBytes(raw, maxBytes)
	if err != nil {
		return "", err
	}
	return identify.EncodeDataURL(contentType, raw), nil
}

// identifyStatus maps identification errors to HTTP statuses.
func identifyStatus(err error) int {
	var (
		cfgErr       *identify.ConfigurationError
		invalidErr   *identify.InvalidImageError
		httpErr      *identify.HTTPError
		malformedErr *identify.MalformedResponseError
		transportErr *identify.TransportError
	)

	switch {
	case errors.Is(err, flow.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &invalidErr):
		return http.StatusBadRequest
	case errors.As(err, &httpErr),
		errors.Is(err, identify.ErrEmptyResponse),
		errors.As(err, &malformedErr),
		errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
