package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/xtding233/coinmerge/internal/session"
)

const maxTickBody = 1 << 20

type errResp struct {
	Err string `json:"err"`
}

type startResp struct {
	Snapshot
	Started bool `json:"started"`
}

type createReq struct {
	Profile string `json:"profile"`
}

// Handler routes the JSON API onto hub.
func Handler(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req createReq
		if r.ContentLength != 0 {
			if err := json.NewDecoder(io.LimitReader(r.Body, maxTickBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				writeErr(w, http.StatusBadRequest, "invalid body")
				return
			}
		}
		if p := r.URL.Query().Get("profile"); p != "" {
			req.Profile = p
		}
		snap, err := hub.Create(req.Profile)
		if err != nil {
			writeHubErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	})
	mux.HandleFunc("GET /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		reply(w)(hub.Get(r.PathValue("id")))
	})
	mux.HandleFunc("DELETE /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Delete(r.PathValue("id")); err != nil {
			writeHubErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /sessions/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		snap, ok, err := hub.Start(r.PathValue("id"))
		if err != nil {
			writeHubErr(w, err)
			return
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusConflict
		}
		writeJSON(w, status, startResp{Snapshot: snap, Started: ok})
	})
	mux.HandleFunc("POST /sessions/{id}/restart", func(w http.ResponseWriter, r *http.Request) {
		reply(w)(hub.Restart(r.PathValue("id")))
	})
	mux.HandleFunc("POST /sessions/{id}/preview", func(w http.ResponseWriter, r *http.Request) {
		x, ok, msg := parseFloat(r, "x")
		if msg != "" {
			writeErr(w, http.StatusBadRequest, msg)
			return
		}
		if !ok {
			writeErr(w, http.StatusBadRequest, "missing param x")
			return
		}
		reply(w)(hub.Preview(r.PathValue("id"), x))
	})
	mux.HandleFunc("POST /sessions/{id}/drop", func(w http.ResponseWriter, r *http.Request) {
		x, ok, msg := parseFloat(r, "x")
		if msg != "" {
			writeErr(w, http.StatusBadRequest, msg)
			return
		}
		if !ok {
			writeErr(w, http.StatusBadRequest, "missing param x")
			return
		}
		y, hasY, msg := parseFloat(r, "y")
		if msg != "" {
			writeErr(w, http.StatusBadRequest, msg)
			return
		}
		var yp *float64
		if hasY {
			yp = &y
		}
		reply(w)(hub.Drop(r.PathValue("id"), x, yp))
	})
	mux.HandleFunc("POST /sessions/{id}/tick", func(w http.ResponseWriter, r *http.Request) {
		var req TickRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxTickBody)).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid tick body")
			return
		}
		reply(w)(hub.Tick(r.PathValue("id"), req))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"sessions": len(hub.IDs())})
	})
	return mux
}

func reply(w http.ResponseWriter) func(Snapshot, error) {
	return func(snap Snapshot, err error) {
		if err != nil {
			writeHubErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func parseFloat(r *http.Request, key string) (float64, bool, string) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, false, ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, "invalid " + key
	}
	return v, true, ""
}

func writeHubErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrBadRequest), errors.Is(err, session.ErrConfiguration):
		writeErr(w, http.StatusBadRequest, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, err.Error())
	}
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Err: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
