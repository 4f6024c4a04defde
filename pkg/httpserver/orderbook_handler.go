package httpserver

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/RishabSBanthiya/prediction-market-data-services/internal/ingest"
	"github.com/RishabSBanthiya/prediction-market-data-services/pkg/types"
)

// OrderbookHandler serves the latest normalized snapshot the ingestion
// pipeline has recorded for a token, read straight from the in-memory
// BookView rather than persistence — this is a debug/inspection endpoint,
// not the replay read path (that goes through internal/replay).
type OrderbookHandler struct {
	books  *ingest.BookView
	logger *zap.Logger
}

// NewOrderbookHandler creates a new orderbook handler.
func NewOrderbookHandler(books *ingest.BookView, logger *zap.Logger) *OrderbookHandler {
	return &OrderbookHandler{books: books, logger: logger}
}

// PriceLevelJSON is the wire shape for a single book level.
type PriceLevelJSON struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// OrderbookResponse is the JSON response for GET /api/orderbook.
type OrderbookResponse struct {
	AssetID         string           `json:"asset_id"`
	MarketID        string           `json:"market_id"`
	Question        string           `json:"question,omitempty"`
	Timestamp       int64            `json:"timestamp_ms"`
	Bids            []PriceLevelJSON `json:"bids"`
	Asks            []PriceLevelJSON `json:"asks"`
	IsForwardFilled bool             `json:"is_forward_filled"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrderbook handles GET /api/orderbook?asset_id=<token-id> requests.
func (h *OrderbookHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	assetID := r.URL.Query().Get("asset_id")
	if assetID == "" {
		h.writeError(w, "missing required query parameter: asset_id", http.StatusBadRequest)
		return
	}

	snapshot, found := h.books.GetSnapshot(assetID)
	if !found {
		h.writeError(w, "no snapshot recorded for asset_id", http.StatusNotFound)
		return
	}

	question := ""
	if market, ok := h.books.GetMarket(assetID); ok {
		question = market.Question
	}

	response := OrderbookResponse{
		AssetID:         snapshot.AssetID,
		MarketID:        snapshot.MarketID,
		Question:        question,
		Timestamp:       snapshot.Timestamp,
		Bids:            toPriceLevelJSON(snapshot.Bids),
		Asks:            toPriceLevelJSON(snapshot.Asks),
		IsForwardFilled: snapshot.IsForwardFilled,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func toPriceLevelJSON(levels []types.PriceLevel) []PriceLevelJSON {
	out := make([]PriceLevelJSON, len(levels))
	for i, l := range levels {
		out[i] = PriceLevelJSON{Price: l.Price.String(), Size: l.Size.String()}
	}
	return out
}

func (h *OrderbookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
