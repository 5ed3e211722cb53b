package api

import "time"

// AddressState is the body of GET /address. Address is null until the
// first external address has been accepted.
type AddressState struct {
	Interface string     `json:"interface"`
	Address   *string    `json:"address"`
	Previous  *string    `json:"previous,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// UpdateMessage is written to websocket subscribers for every accepted
// address change.
type UpdateMessage struct {
	Interface string    `json:"interface"`
	Previous  string    `json:"previous,omitempty"`
	Current   string    `json:"current"`
	At        time.Time `json:"at"`
}
