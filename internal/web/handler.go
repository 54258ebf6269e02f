package web

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"noticeboard/internal/notice/model"
	"noticeboard/pkg/logger"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

const (
	flashFetchListFailed = "Failed to fetch notices"
	flashBoardDeleted    = "Deleted Successfully"
	flashBoardDeleteFail = "Failed to delete note"
	flashDeleteFailed    = "Failed to delete Notice!"
	flashCreateBlank     = "Please fill in all fields"
	flashCreated         = "Notice created successfully"
	flashCreateFailed    = "Error creating Notice"
	flashFetchFailed     = "Failed to fetch Notice!"
	flashUpdateBlank     = "Title and Content are required!"
	flashUpdated         = "Notice updated successfully!"
	flashUpdateFailed    = "Failed to update Notice!"
	flashDetailDeleted   = "Notice deleted successfully!"
)

// NoticeAPI is the subset of the REST client the views need.
type NoticeAPI interface {
	ListNotices(ctx context.Context) ([]model.Notice, error)
	GetNotice(ctx context.Context, id string) (model.Notice, error)
	CreateNotice(ctx context.Context, req model.NoticeRequest) (model.Notice, error)
	UpdateNotice(ctx context.Context, id string, req model.NoticeRequest) (model.Notice, error)
	DeleteNotice(ctx context.Context, id string) (model.Notice, error)
}

type Options struct {
	// LiveURL is the websocket address of the API's board event stream.
	// Empty disables live reload on the board.
	LiveURL   string
	CookieKey []byte
	Secure    bool
}

type Handler struct {
	API     NoticeAPI
	Flash   *FlashStore
	LiveURL string

	templates map[string]*template.Template
}

func NewHandler(api NoticeAPI, opts Options) (*Handler, error) {
	md := goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()))
	templates, err := parseTemplates(md)
	if err != nil {
		return nil, err
	}
	return &Handler{
		API:       api,
		Flash:     NewFlashStore(opts.CookieKey, opts.Secure),
		LiveURL:   opts.LiveURL,
		templates: templates,
	}, nil
}

// Routes returns the UI router without CSRF protection; wrap it with Protect.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Board).Methods(http.MethodGet)
	r.HandleFunc("/create", h.NewNotice).Methods(http.MethodGet)
	r.HandleFunc("/create", h.CreateNotice).Methods(http.MethodPost)
	r.HandleFunc("/note/{id}", h.Detail).Methods(http.MethodGet)
	r.HandleFunc("/note/{id}", h.SaveNotice).Methods(http.MethodPost)
	r.HandleFunc("/note/{id}/delete", h.DeleteNotice).Methods(http.MethodPost)
	return r
}

// Protect wraps next with CSRF protection for every unsafe method.
// When secure is false the UI is served over plain HTTP and the
// referer check is relaxed accordingly.
func Protect(next http.Handler, key []byte, secure bool) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)(next)
	if secure {
		return protect
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protect.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	logger.Sugar.Warnf("Rejected %s %s: %v", r.Method, r.URL.Path, csrf.FailureReason(r))
	http.Error(w, "Forbidden", http.StatusForbidden)
}

func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	flash := h.Flash.Pop(w, r)
	notices, err := h.API.ListNotices(r.Context())
	if err != nil {
		logger.Sugar.Errorf("Failed to fetch notices: %v", err)
		notices = nil
		flash = &Flash{Kind: FlashError, Message: flashFetchListFailed}
	}
	h.render(w, r, http.StatusOK, "board", pageData{
		Title:   "Notice Board",
		Flash:   flash,
		Notices: notices,
	})
}

func (h *Handler) NewNotice(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "create", pageData{
		Title: "New Notice",
		Flash: h.Flash.Pop(w, r),
	})
}

func (h *Handler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	form := readForm(r)
	if form.blank() {
		h.render(w, r, http.StatusUnprocessableEntity, "create", pageData{
			Title: "New Notice",
			Form:  form,
			Error: flashCreateBlank,
		})
		return
	}

	_, err := h.API.CreateNotice(r.Context(), form.request())
	if err != nil {
		logger.Sugar.Errorf("Failed to create notice: %v", err)
		h.render(w, r, http.StatusBadGateway, "create", pageData{
			Title: "New Notice",
			Form:  form,
			Error: flashCreateFailed,
		})
		return
	}

	h.Flash.Set(w, Flash{Kind: FlashSuccess, Message: flashCreated})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	n, err := h.API.GetNotice(r.Context(), id)
	if err != nil {
		logger.Sugar.Errorf("Failed to fetch notice %s: %v", id, err)
		h.Flash.Set(w, Flash{Kind: FlashError, Message: flashFetchFailed})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "detail", pageData{
		Title:  n.Title,
		Flash:  h.Flash.Pop(w, r),
		Notice: n,
		Form:   formValues{Title: n.Title, Content: n.Content},
	})
}

func (h *Handler) SaveNotice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	form := readForm(r)
	if form.blank() {
		h.render(w, r, http.StatusUnprocessableEntity, "detail", pageData{
			Title:  "Edit Notice",
			Notice: model.Notice{ID: id},
			Form:   form,
			Error:  flashUpdateBlank,
		})
		return
	}

	if _, err := h.API.UpdateNotice(r.Context(), id, form.request()); err != nil {
		logger.Sugar.Errorf("Failed to update notice %s: %v", id, err)
		h.Flash.Set(w, Flash{Kind: FlashError, Message: flashUpdateFailed})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.Flash.Set(w, Flash{Kind: FlashSuccess, Message: flashUpdated})
	http.Redirect(w, r, notePath(id), http.StatusSeeOther)
}

// DeleteNotice serves both the board cards and the detail page; the
// hidden return_to field tells them apart.
func (h *Handler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	returnTo := safeReturn(r.PostFormValue("return_to"))

	if _, err := h.API.DeleteNotice(r.Context(), id); err != nil {
		logger.Sugar.Errorf("Failed to delete notice %s: %v", id, err)
		msg := flashDeleteFailed
		if returnTo == "/" {
			msg = flashBoardDeleteFail
		}
		h.Flash.Set(w, Flash{Kind: FlashError, Message: msg})
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
		return
	}

	msg := flashBoardDeleted
	if returnTo != "/" {
		msg = flashDetailDeleted
	}
	h.Flash.Set(w, Flash{Kind: FlashSuccess, Message: msg})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func readForm(r *http.Request) formValues {
	return formValues{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}
}

func (f formValues) blank() bool {
	return strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Content) == ""
}

func (f formValues) request() model.NoticeRequest {
	return model.NoticeRequest{Title: f.Title, Content: f.Content}
}

func notePath(id string) string {
	return "/note/" + url.PathEscape(id)
}

// safeReturn only allows local absolute paths.
func safeReturn(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
