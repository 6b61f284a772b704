package handlers

import (
	"net/http"

	"github.com/dom/outsider-party/internal/service"
)

type WordHandler struct {
	wordService *service.WordService
}

func NewWordHandler(wordService *service.WordService) *WordHandler {
	return &WordHandler{wordService: wordService}
}

func (h *WordHandler) Themes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.wordService.Themes(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themes)
}
