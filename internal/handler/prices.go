package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/web3-frozen/crypto-alert/internal/price"
)

type Evaluator interface {
	Evaluate(ctx context.Context, symbol string) (price.Evaluation, error)
}

type priceView struct {
	price.Evaluation
	Message string `json:"message"`
}

// GetPrice evaluates a symbol on demand without posting anything.
func GetPrice(ev Evaluator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.ToUpper(chi.URLParam(r, "symbol"))
		if !validSymbol(symbol) {
			http.Error(w, `{"error":"invalid symbol"}`, http.StatusBadRequest)
			return
		}

		e, err := ev.Evaluate(r.Context(), symbol)
		if err != nil {
			if errors.Is(err, price.ErrUpstreamUnavailable) {
				http.Error(w, `{"error":"price provider unavailable"}`, http.StatusBadGateway)
				return
			}
			http.Error(w, `{"error":"evaluation failed"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(priceView{Evaluation: e, Message: e.Text()})
	}
}

func validSymbol(s string) bool {
	if s == "" || len(s) > 10 {
		return false
	}
	for _, c := range s {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
