package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"fsaeinventory/internal/export"
	"fsaeinventory/internal/models"
	"fsaeinventory/internal/service"
)

type mutationResponse struct {
	Item    models.Item `json:"item"`
	Saved   bool        `json:"saved"`
	Warning string      `json:"warning,omitempty"`
}

func newMutationResponse(res service.MutationResult) mutationResponse {
	resp := mutationResponse{Item: res.Item, Saved: res.Saved()}
	if res.SaveErr != nil {
		resp.Warning = res.SaveErr.Error()
	}
	return resp
}

type quantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *HTTPServer) handleListItems(w http.ResponseWriter, r *http.Request) {
	items := s.inventory.Filter(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   items,
		"count":   len(items),
		"loading": s.inventory.Loading(),
		"source":  s.inventory.Source(),
	})
}

func (s *HTTPServer) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if !decodeBody(w, r, &draft) {
		return
	}

	res, err := s.inventory.Add(r.Context(), draft)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMutationResponse(res))
}

func (s *HTTPServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body quantityRequest
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := s.inventory.Withdraw(r.Context(), id, body.Quantity)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(res))
}

func (s *HTTPServer) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body quantityRequest
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := s.inventory.Return(r.Context(), id, body.Quantity)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(res))
}

func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	res, err := s.inventory.Delete(r.Context(), id, confirmed)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(res))
}

func (s *HTTPServer) handleRequestDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	pending, err := s.inventory.RequestDelete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pending)
}

func (s *HTTPServer) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.inventory.ConfirmDelete(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(res))
}

func (s *HTTPServer) handleCancelDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.inventory.CancelDelete(r.Context(), r.PathValue("token")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	res, err := s.inventory.Load(r.Context())
	resp := map[string]any{"source": res.Source, "count": res.Count}
	if err != nil {
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.inventory.Transactions(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load transactions")
		writeError(w, http.StatusBadGateway, "transactions are unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *HTTPServer) handleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.inventory.Export(r.URL.Query().Get("q"), format)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", doc.ContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc.Data)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"loading": s.inventory.Loading(),
		"source":  s.inventory.Source(),
	})
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("Inventory operation failed")
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return 0, false
	}
	return id, true
}
