package model

import "time"

// AssetKind distinguishes the two market tabs.
type AssetKind string

const (
	KindCrypto AssetKind = "crypto"
	KindStock  AssetKind = "stock"
)

// ParseAssetKind accepts "crypto"/"cryptos" and "stock"/"stocks". Empty means crypto.
func ParseAssetKind(s string) (AssetKind, bool) {
	switch s {
	case "crypto", "cryptos", "":
		return KindCrypto, true
	case "stock", "stocks", "equity":
		return KindStock, true
	}
	return "", false
}

// Quote is one row of a market table. Snapshots are replaced wholesale on every fetch.
type Quote struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Kind      AssetKind `json:"kind"`
	Currency  Currency  `json:"currency"`
	Price     float64   `json:"current_price"`
	Change24h float64   `json:"price_change_percentage_24h"`
	MarketCap float64   `json:"market_cap"`
	Volume24h float64   `json:"total_volume"`
	Rank      int       `json:"market_cap_rank,omitempty"`
}

// Point is a single sample of a price series.
type Point struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// SeriesStats summarises a price series over the selected window.
type SeriesStats struct {
	Current    float64 `json:"current"`
	Change     float64 `json:"change"`
	Percentage float64 `json:"percentage"`
	Lowest     float64 `json:"lowest"`
	Highest    float64 `json:"highest"`
	IsUp       bool    `json:"is_up"`
}

// ChartWidget describes the embedded third-party chart for one symbol.
type ChartWidget struct {
	Symbol      string `json:"symbol"`
	ContainerID string `json:"container_id"`
	Interval    string `json:"interval"`
	Timezone    string `json:"timezone"`
	Theme       string `json:"theme"`
	IsStock     bool   `json:"is_stock"`
}
