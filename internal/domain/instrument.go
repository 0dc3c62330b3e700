package domain

import "time"

// Instrument describes the contract the engine trades. Factor converts a
// one-point price move on one contract into currency.
type Instrument struct {
	Symbol   string  `json:"symbol"`
	Factor   float64 `json:"factor"`
	TickSize float64 `json:"tick_size"`
}

// Bar is one completed price bar delivered by the host feed.
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
