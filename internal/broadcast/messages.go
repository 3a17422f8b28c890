package broadcast

// Wire messages fanned to subscribers. Timestamps are unix
// nanoseconds; a nil best quote serialises as null.

type tradeMessage struct {
	Type          string  `json:"type"`
	TransactionID string  `json:"transaction_id"`
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	Timestamp     int64   `json:"timestamp"`
}

type bookMessage struct {
	Type      string   `json:"type"`
	Symbol    string   `json:"symbol"`
	BestBid   *float64 `json:"best_bid"`
	BestAsk   *float64 `json:"best_ask"`
	Timestamp int64    `json:"timestamp"`
}
