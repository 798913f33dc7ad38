// Package anonname builds the pseudonyms shown in place of real
// identities while a chat is anonymous.
package anonname

import (
	"fmt"
	"math/rand"
)

var adjectives = []string{
	"Curious", "Gentle", "Witty", "Brave", "Quiet",
	"Sunny", "Mellow", "Daring", "Clever", "Dreamy",
	"Swift", "Cosmic", "Velvet", "Golden", "Misty",
	"Lively", "Serene", "Bold", "Lucky", "Wandering",
}

var nouns = []string{
	"Fox", "Owl", "Panda", "Otter", "Falcon",
	"Lynx", "Dolphin", "Raven", "Tiger", "Koala",
	"Heron", "Badger", "Sparrow", "Wolf", "Seal",
	"Moth", "Ibis", "Marten", "Finch", "Hare",
}

// Generate returns a display name like "CuriousFox_412". Names are labels,
// not keys: collisions between chats are acceptable.
func Generate() string {
	adj := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	return fmt.Sprintf("%s%s_%d", adj, noun, rand.Intn(999)+1)
}
