package service

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RegisterHTTPHandlers mounts the read-only component endpoints on mux:
//
//	GET {prefix}components         status of every component
//	GET {prefix}components/{name}  status of one component
//	GET {prefix}flow/validation    flow connectivity analysis
func (cm *ComponentManager) RegisterHTTPHandlers(prefix string, mux interface {
	Handle(pattern string, handler http.Handler)
}) {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	mux.Handle("GET "+prefix+"components", http.HandlerFunc(cm.handleComponentsList))
	mux.Handle("GET "+prefix+"components/{name}", http.HandlerFunc(cm.handleComponentStatus))
	mux.Handle("GET "+prefix+"flow/validation", http.HandlerFunc(cm.handleFlowValidation))

	cm.logger.Debug("ComponentManager HTTP handlers registered", "prefix", prefix)
}

func (cm *ComponentManager) handleComponentsList(w http.ResponseWriter, _ *http.Request) {
	statuses := cm.GetComponentStatus()
	list := make([]ComponentStatus, 0, len(statuses))
	for _, name := range sortedNames(statuses) {
		list = append(list, statuses[name])
	}
	writeJSON(w, http.StatusOK, list)
}

func (cm *ComponentManager) handleComponentStatus(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	status, ok := cm.GetComponentStatus()[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "component not found: " + name})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (cm *ComponentManager) handleFlowValidation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cm.ValidateFlowConnectivity())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
