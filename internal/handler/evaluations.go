package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/web3-frozen/crypto-alert/internal/store"
)

type EvaluationLister interface {
	ListEvaluations(ctx context.Context, symbol string, limit int) ([]store.Evaluation, error)
}

func ListEvaluations(s EvaluationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
		if symbol != "" && !validSymbol(symbol) {
			http.Error(w, `{"error":"invalid symbol"}`, http.StatusBadRequest)
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= 100 {
				limit = l
			}
		}

		evals, err := s.ListEvaluations(r.Context(), symbol, limit)
		if err != nil {
			http.Error(w, `{"error":"failed to list evaluations"}`, http.StatusInternalServerError)
			return
		}
		if evals == nil {
			evals = []store.Evaluation{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(evals)
	}
}
