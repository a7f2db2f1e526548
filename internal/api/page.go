package api

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fsaeinventory/internal/domain"
	"fsaeinventory/internal/models"
	"fsaeinventory/internal/service"
)

//go:embed templates/*
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.gohtml").
	Funcs(template.FuncMap{"statusClass": statusClass}).
	ParseFS(templateFS, "templates/index.gohtml"))

type pageData struct {
	Items   []models.Item
	Term    string
	Notice  string
	Alert   string
	Loading bool
	Pending *domain.PendingDeletion
	Draft   models.Draft
}

func statusClass(s models.Status) string {
	return "status-" + strings.ReplaceAll(strings.ToLower(string(s)), " ", "-")
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		Items:   s.inventory.Filter(q.Get("q")),
		Term:    q.Get("q"),
		Notice:  q.Get("notice"),
		Alert:   q.Get("alert"),
		Loading: s.inventory.Loading(),
		Draft:   models.NewDraft(),
	}
	if token := q.Get("pending"); token != "" {
		if id, err := strconv.ParseInt(q.Get("item"), 10, 64); err == nil {
			data.Pending = &domain.PendingDeletion{Token: token, ItemID: id}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render inventory page")
	}
}

func (s *HTTPServer) handleFormAdd(w http.ResponseWriter, r *http.Request) {
	quantity, err1 := formInt(r, "quantity")
	minStock, err2 := formInt(r, "minStock")
	if err1 != nil || err2 != nil {
		redirectHome(w, r, url.Values{"alert": {service.ErrInvalidQuantity.Error()}})
		return
	}

	draft := models.Draft{
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
		Quantity: quantity,
		MinStock: minStock,
		Unit:     r.FormValue("unit"),
		Location: r.FormValue("location"),
	}
	res, err := s.inventory.Add(r.Context(), draft)
	redirectHome(w, r, mutationValues(res, err, "Added "+strings.TrimSpace(draft.Name)))
}

func (s *HTTPServer) handleFormWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleFormAdjust(w, r, s.inventory.Withdraw, "Withdrew")
}

func (s *HTTPServer) handleFormReturn(w http.ResponseWriter, r *http.Request) {
	s.handleFormAdjust(w, r, s.inventory.Return, "Returned")
}

func (s *HTTPServer) handleFormAdjust(
	w http.ResponseWriter, r *http.Request,
	adjust func(ctx context.Context, id, quantity int64) (service.MutationResult, error),
	verb string,
) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		redirectHome(w, r, url.Values{"alert": {service.ErrItemNotFound.Error()}})
		return
	}
	quantity, err := formInt(r, "quantity")
	if err != nil {
		redirectHome(w, r, url.Values{"alert": {service.ErrInvalidQuantity.Error()}})
		return
	}

	res, err := adjust(r.Context(), id, quantity)
	redirectHome(w, r, mutationValues(res, err,
		fmt.Sprintf("%s %d %s of %s", verb, quantity, res.Item.Unit, res.Item.Name)))
}

func (s *HTTPServer) handleFormRequestDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		redirectHome(w, r, url.Values{"alert": {service.ErrItemNotFound.Error()}})
		return
	}

	pending, err := s.inventory.RequestDelete(r.Context(), id)
	if err != nil {
		redirectHome(w, r, url.Values{"alert": {err.Error()}})
		return
	}
	redirectHome(w, r, url.Values{
		"pending": {pending.Token},
		"item":    {strconv.FormatInt(pending.ItemID, 10)},
	})
}

func (s *HTTPServer) handleFormConfirmDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.inventory.ConfirmDelete(r.Context(), r.PathValue("token"))
	redirectHome(w, r, mutationValues(res, err, "Deleted "+res.Item.Name))
}

func (s *HTTPServer) handleFormCancelDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.inventory.CancelDelete(r.Context(), r.PathValue("token")); err != nil {
		redirectHome(w, r, url.Values{"alert": {err.Error()}})
		return
	}
	redirectHome(w, r, nil)
}

// mutationValues turns a mutation outcome into page messages. A failed save
// is an alert even though the change was applied.
func mutationValues(res service.MutationResult, err error, notice string) url.Values {
	switch {
	case err != nil:
		return url.Values{"alert": {err.Error()}}
	case res.SaveErr != nil:
		return url.Values{"alert": {res.SaveErr.Error()}}
	default:
		return url.Values{"notice": {notice}}
	}
}

// formInt parses an integer form field; an empty field is zero.
func formInt(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// redirectHome sends the browser back to the list, keeping the search term.
func redirectHome(w http.ResponseWriter, r *http.Request, values url.Values) {
	if values == nil {
		values = url.Values{}
	}
	if term := r.FormValue("q"); term != "" {
		values.Set("q", term)
	}
	target := "/"
	if len(values) > 0 {
		target += "?" + values.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
