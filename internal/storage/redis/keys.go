package redis

import (
	"fmt"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
)

// keys builds Redis keys under a common prefix
type keys struct {
	prefix string
}

// player returns the key holding a Player document (busy reference excluded)
func (k keys) player(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", k.prefix, id)
}

// busy returns the key holding a player's busy session reference
func (k keys) busy(id model.PlayerID) string {
	return fmt.Sprintf("%s:busy:%s", k.prefix, id)
}

// players returns the SET of all player ids
func (k keys) players() string {
	return fmt.Sprintf("%s:idx:players", k.prefix)
}

// username returns the username -> player_id index key
func (k keys) username(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", k.prefix, username)
}

// email returns the email -> player_id index key
func (k keys) email(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", k.prefix, email)
}

// refresh returns the refresh token -> player_id index key
func (k keys) refresh(token string) string {
	return fmt.Sprintf("%s:idx:refresh:%s", k.prefix, token)
}

// session returns the key holding a Session document
func (k keys) session(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s", k.prefix, id)
}

// playerSessions returns the ZSET of a player's session ids scored by timestamp
func (k keys) playerSessions(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_sessions:%s", k.prefix, id)
}
