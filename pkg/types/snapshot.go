package types

// Snapshot is a room as one client sees it. Game holds the game's own view,
// already redacted for Seat (-1 when the client is not seated).
type Snapshot struct {
	Version int      `json:"version"`
	Room    string   `json:"room"`
	Kind    string   `json:"kind"`
	Started bool     `json:"started"`
	Seats   []string `json:"seats"` // display name per seat, "" when empty
	Seat    int      `json:"seat"`
	Game    any      `json:"game"`
}

// RoomInfo is one entry of the room listing.
type RoomInfo struct {
	Code    string `json:"code"`
	Kind    string `json:"game"`
	Clients int    `json:"clients"`
	Started bool   `json:"started"`
}
