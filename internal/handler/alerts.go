package handler

import (
	"encoding/json"
	"net/http"

	"github.com/web3-frozen/crypto-alert/internal/alert"
)

type alertView struct {
	alert.Record
	Stage string `json:"stage"`
}

// ListAlerts dumps the in-memory alert sessions.
func ListAlerts(reg *alert.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		records := reg.Snapshot()
		out := make([]alertView, 0, len(records))
		for _, rec := range records {
			out = append(out, alertView{Record: rec, Stage: rec.Stage().String()})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
