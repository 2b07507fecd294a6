package handler

import (
	"fmt"
	"net/http"

	"github.com/sandeepkv93/cms-admin-backend/internal/service"
)

type DashboardHandler struct {
	dashboard service.DashboardServiceInterface
	pages     *Pages
}

func NewDashboardHandler(dashboard service.DashboardServiceInterface, pages *Pages) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, pages: pages}
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		h.pages.ServerError(w, r, fmt.Errorf("dashboard summary: %w", err))
		return
	}
	h.pages.Render(w, r, "Dashboard", summary)
}
