package http

import (
	"net/http"
)

// CreateQuote prices one booking. POST /api/v1/quotes
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	quoteReq, err := req.toService()
	if err != nil {
		writeError(w, r, err)
		return
	}

	cost, err := h.quotes.Quote(r.Context(), quoteReq)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tag := h.formatter.TagFor(r)
	writeJSON(w, http.StatusOK, toQuoteResponse(quoteReq.SpotID, cost, h.formatter, tag))
}
