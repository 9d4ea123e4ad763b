package httpd

import (
	"net/http"
)

func (h *Handler) GetConsistencyReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.GetConsistencyReport(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, nil)
		return
	}

	writeSuccess(w, report)
}
