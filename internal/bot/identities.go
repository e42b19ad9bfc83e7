package bot

import "fmt"

// Identity is the display persona for one bot seat.
type Identity struct {
	UserID   string
	Username string
}

var identities = []Identity{
	{UserID: botIDPrefix + "01", Username: "Andreas"},
	{UserID: botIDPrefix + "02", Username: "Eleni"},
	{UserID: botIDPrefix + "03", Username: "Costas"},
	{UserID: botIDPrefix + "04", Username: "Maria"},
	{UserID: botIDPrefix + "05", Username: "Yiannis"},
	{UserID: botIDPrefix + "06", Username: "Despina"},
	{UserID: botIDPrefix + "07", Username: "Panikos"},
}

// GetIdentity returns a stable persona for the given seat index.
func GetIdentity(seat int) Identity {
	if len(identities) == 0 {
		return Identity{UserID: fmt.Sprintf("%s%02d", botIDPrefix, seat), Username: fmt.Sprintf("Bot %d", seat)}
	}
	return identities[seat%len(identities)]
}
