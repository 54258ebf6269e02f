package web

import (
	"net/http"

	"noticeboard/pkg/logger"

	"github.com/gorilla/securecookie"
)

const flashCookie = "noticeboard_flash"

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type FlashStore struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewFlashStore signs flash cookies with hashKey (32 or 64 bytes).
func NewFlashStore(hashKey []byte, secure bool) *FlashStore {
	codec := securecookie.New(hashKey, nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(300)
	return &FlashStore{codec: codec, secure: secure}
}

func (s *FlashStore) Set(w http.ResponseWriter, f Flash) {
	encoded, err := s.codec.Encode(flashCookie, f)
	if err != nil {
		logger.Sugar.Errorf("Failed to encode flash: %v", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending flash, if any, and clears it.
func (s *FlashStore) Pop(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	var f Flash
	if err := s.codec.Decode(flashCookie, c.Value, &f); err != nil {
		logger.Sugar.Warnf("Discarding invalid flash cookie: %v", err)
		return nil
	}
	return &f
}
