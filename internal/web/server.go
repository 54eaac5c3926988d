// Package web exposes the drivers over a small JSON API. The solenoid core
// itself owns no network surface; this is daemon plumbing over the Switch
// interface.
package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"solenoid-ac/internal/solenoid"
)

// SwitchStore is the registry view the handlers need.
type SwitchStore interface {
	Get(name string) (solenoid.Switch, bool)
	List() []solenoid.Switch
}

type switchView struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Position  int    `json:"position"`
	Positions int    `json:"positions"`
}

// positionPayload is the strict POST schema. The field is required so an
// empty body cannot silently mean "off".
type positionPayload struct {
	Position *int `json:"position"`
}

func Handler(store SwitchStore) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/switches", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		views := make([]switchView, 0)
		for _, sw := range store.List() {
			v, err := viewOf(r, sw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			views = append(views, v)
		}
		writeJSON(w, views)
	})

	mux.HandleFunc("/api/switches/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/switches/")
		name, action, _ := strings.Cut(rest, "/")
		if name == "" {
			http.NotFound(w, r)
			return
		}
		sw, ok := store.Get(name)
		if !ok {
			http.Error(w, fmt.Sprintf("no switch %q", name), http.StatusNotFound)
			return
		}

		switch action {
		case "":
			if r.Method != http.MethodGet {
				w.Header().Set("Allow", http.MethodGet)
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			v, err := viewOf(r, sw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, v)
		case "position":
			handlePosition(w, r, sw)
		case "do":
			handleDo(w, r, sw)
		default:
			http.NotFound(w, r)
		}
	})

	return mux
}

func handlePosition(w http.ResponseWriter, r *http.Request, sw solenoid.Switch) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var payload positionPayload
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if payload.Position == nil {
		http.Error(w, "position is required", http.StatusBadRequest)
		return
	}

	if err := sw.SetPosition(r.Context(), *payload.Position); err != nil {
		if errors.Is(err, solenoid.ErrInvalidPosition) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// Hardware failure surfaces as a gateway-style error.
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	v, err := viewOf(r, sw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, v)
}

func handleDo(w http.ResponseWriter, r *http.Request, sw solenoid.Switch) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	cmd := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &cmd); err != nil {
			http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
			return
		}
	}
	res, err := sw.DoCommand(r.Context(), cmd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if res == nil {
		res = map[string]any{}
	}
	writeJSON(w, res)
}

func viewOf(r *http.Request, sw solenoid.Switch) (switchView, error) {
	pos, err := sw.GetPosition(r.Context())
	if err != nil {
		return switchView{}, err
	}
	n, err := sw.NumberOfPositions(r.Context())
	if err != nil {
		return switchView{}, err
	}
	return switchView{Name: sw.Name(), Model: sw.Model(), Position: pos, Positions: n}, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}
