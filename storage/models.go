package storage

import "time"

// Record is one confirmed faucet transaction sent from this machine.
type Record struct {
	ID        int       `json:"id"`
	Signature string    `json:"signature"`
	Operation string    `json:"operation"`
	Cluster   string    `json:"cluster"`
	Signer    string    `json:"signer"`
	Lamports  uint64    `json:"lamports,omitempty"` // zero for operations that move no funds
	Time      time.Time `json:"time"`
}
