package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"podpal/internal/api/middleware"
	"podpal/internal/app/service"
	"podpal/internal/common"
)

// multipartMemory is how much of a form is buffered before spilling to disk.
const multipartMemory = 32 << 20

type PodcastHandler struct {
	podcastService *service.PodcastService
	maxBodyBytes   int64
}

// NewPodcastHandler caps whole upload requests at maxBodyBytes. Per-file
// limits are enforced by the service.
func NewPodcastHandler(ps *service.PodcastService, maxBodyBytes int64) *PodcastHandler {
	return &PodcastHandler{podcastService: ps, maxBodyBytes: maxBodyBytes}
}

func (h *PodcastHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{podcastID}", h.getPodcast)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.upload)
		authed.Post("/{podcastID}/save", h.save)
		authed.Post("/{podcastID}/like", h.like)
		authed.Post("/{podcastID}/play", h.play)
	})
}

func (h *PodcastHandler) upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondWithError(w, http.StatusRequestEntityTooLarge, "Upload is too large")
			return
		}
		common.RespondWithError(w, http.StatusBadRequest, "Expected a multipart form upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	audio, closeAudio, err := formFile(r, "audio")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Could not read audio file")
		return
	}
	defer closeAudio()
	cover, closeCover, err := formFile(r, "cover")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Could not read cover image")
		return
	}
	defer closeCover()

	podcast, err := h.podcastService.Upload(r.Context(), identity.Subject, service.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Audio:       audio,
		Cover:       cover,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, podcast)
}

// formFile returns a nil input when the field was not sent. The returned
// close func is always safe to call.
func formFile(r *http.Request, field string) (*service.FileInput, func(), error) {
	noop := func() {}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, err
	}
	return &service.FileInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, func() { file.Close() }, nil
}

func (h *PodcastHandler) getPodcast(w http.ResponseWriter, r *http.Request) {
	podcast, err := h.podcastService.Get(r.Context(), chi.URLParam(r, "podcastID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, podcast)
}

func (h *PodcastHandler) save(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.podcastService.Save, "Podcast saved")
}

func (h *PodcastHandler) like(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.podcastService.Like, "Podcast liked")
}

func (h *PodcastHandler) play(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.podcastService.Play, "Play recorded")
}

func (h *PodcastHandler) userAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, userID, podcastID string) error, message string) {
	identity, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	if err := action(r.Context(), identity.Subject, chi.URLParam(r, "podcastID")); err != nil {
		respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": message})
}
