package router

import (
	"net/http"
	"strings"

	handler "noticeboard/internal/notice"
	"noticeboard/middleware"
	"noticeboard/socket"

	"github.com/gorilla/mux"
)

const DefaultPrefix = "/api/notes"

type Options struct {
	Prefix         string
	AllowedOrigins []string
}

func Setup(h *handler.NoticeHandler, hub *socket.Hub, opts Options) http.Handler {
	prefix := strings.TrimRight(opts.Prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}

	r := mux.NewRouter()

	// Board events
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	})
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	// REST API
	for _, p := range []string{prefix, prefix + "/"} {
		r.HandleFunc(p, h.GetNotices).Methods(http.MethodGet)
		r.HandleFunc(p, h.CreateNotice).Methods(http.MethodPost)
	}
	r.HandleFunc(prefix+"/{id}", h.GetNotice).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/{id}", h.UpdateNotice).Methods(http.MethodPut)
	r.HandleFunc(prefix+"/{id}", h.DeleteNotice).Methods(http.MethodDelete)

	return middleware.Chain(r,
		middleware.RequestLogger,
		middleware.CORS(opts.AllowedOrigins),
	)
}
