package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"go.miragespace.co/nskv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var jsonNull = []byte("null")

type setRequest struct {
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
}

type delRequest struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

func (g *Gateway) set(resolve storeResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setRequest
		if !g.decode(w, r, &req) {
			return
		}

		if req.Key == "" || len(req.Value) == 0 || bytes.Equal(req.Value, jsonNull) {
			g.fail(w, http.StatusBadRequest, msgMissingKeyOrValue)
			return
		}

		store, ok := g.resolve(w, r, resolve)
		if !ok {
			return
		}

		res := store.Set(r.Context(), nskv.Ref{
			Namespace: g.namespace(req.Namespace),
			Key:       req.Key,
		}, req.Value)
		if !res.OK {
			g.fail(w, http.StatusInternalServerError, msgSetFailed)
			return
		}

		g.ok(w)
	}
}

func (g *Gateway) get(resolve storeResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		key := query.Get("key")
		if key == "" {
			g.fail(w, http.StatusBadRequest, msgMissingKey)
			return
		}

		store, ok := g.resolve(w, r, resolve)
		if !ok {
			return
		}

		res := store.Get(r.Context(), nskv.Ref{
			Namespace: g.namespace(query.Get("namespace")),
			Key:       key,
		})
		if !res.OK {
			g.fail(w, http.StatusInternalServerError, msgGetFailed)
			return
		}

		g.writeJSON(w, http.StatusOK, response{
			Success: true,
			Data:    dataValue(res.Value),
		})
	}
}

func (g *Gateway) del(resolve storeResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req delRequest
		if !g.decode(w, r, &req) {
			return
		}

		if req.Key == "" {
			g.fail(w, http.StatusBadRequest, msgMissingKey)
			return
		}

		store, ok := g.resolve(w, r, resolve)
		if !ok {
			return
		}

		res := store.Del(r.Context(), nskv.Ref{
			Namespace: g.namespace(req.Namespace),
			Key:       req.Key,
		})
		if !res.OK {
			g.fail(w, http.StatusInternalServerError, msgDeleteFailed)
			return
		}

		g.ok(w)
	}
}

func (g *Gateway) destroy(resolve storeResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := g.resolve(w, r, resolve)
		if !ok {
			return
		}

		res := store.Destroy(r.Context(), chi.URLParam(r, "namespace"))
		if !res.OK {
			g.fail(w, http.StatusInternalServerError, msgDestroyFailed)
			return
		}

		g.ok(w)
	}
}

func (g *Gateway) healthz(w http.ResponseWriter, r *http.Request) {
	for _, name := range g.manager.Names() {
		store, err := g.manager.Store(name)
		if err == nil {
			err = store.Ping(r.Context())
		}
		if err != nil {
			g.logger.Warn("Store failed health check", zap.String("store", name), zap.Error(err))
			g.fail(w, http.StatusServiceUnavailable, msgStoreUnavailable)
			return
		}
	}

	g.ok(w)
}

func (g *Gateway) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := decodeBody(r.Body, g.cfg.MaxBodyBytes, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errBodyTooLarge):
		g.fail(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	default:
		g.fail(w, http.StatusBadRequest, msgInvalidBody)
	}
	return false
}

func (g *Gateway) resolve(w http.ResponseWriter, r *http.Request, resolve storeResolver) (*nskv.Store, bool) {
	store, err := resolve(r)
	if err != nil {
		g.fail(w, http.StatusNotFound, msgStoreNotFound)
		return nil, false
	}
	return store, true
}
