package domain

import "math/rand"

// TileColor is one of the four tile colors, or empty for jokers.
type TileColor string

const (
	ColorRed    TileColor = "red"
	ColorBlue   TileColor = "blue"
	ColorBlack  TileColor = "black"
	ColorOrange TileColor = "orange"
	ColorNone   TileColor = ""
)

// Colors lists the playable colors in construction order.
var Colors = [4]TileColor{ColorRed, ColorBlue, ColorBlack, ColorOrange}

const (
	// TileCount is the fixed size of a session's tile set:
	// 2 copies of 4 colors x 13 numbers, plus 2 jokers.
	TileCount = 106
	// MaxNumber is the highest tile number.
	MaxNumber = 13
	// JokerCount is the number of jokers in a set.
	JokerCount = 2
)

// TileID is a tile identity, unique and stable for a session's lifetime.
type TileID int

// Tile is a single tile in the set. Jokers carry no color or number.
type Tile struct {
	ID     TileID    `json:"id"`
	Color  TileColor `json:"color"`
	Number int       `json:"number"`
	Joker  bool      `json:"joker"`
}

// NewTileSet produces the full 106-tile set in construction order: two
// copies of every color/number combination, then two jokers, with ids
// assigned monotonically from zero.
func NewTileSet() []Tile {
	tiles := make([]Tile, 0, TileCount)
	id := TileID(0)
	for _, c := range Colors {
		for n := 1; n <= MaxNumber; n++ {
			for copies := 0; copies < 2; copies++ {
				tiles = append(tiles, Tile{ID: id, Color: c, Number: n})
				id++
			}
		}
	}
	for j := 0; j < JokerCount; j++ {
		tiles = append(tiles, Tile{ID: id, Joker: true})
		id++
	}
	return tiles
}

// TileRegistry is the authoritative id -> tile lookup for one session.
// Its content is immutable after construction.
type TileRegistry map[TileID]Tile

// NewTileRegistry indexes a tile set by id.
func NewTileRegistry(tiles []Tile) TileRegistry {
	reg := make(TileRegistry, len(tiles))
	for _, t := range tiles {
		reg[t.ID] = t
	}
	return reg
}

// TileIDs extracts the ids of a tile slice in order.
func TileIDs(tiles []Tile) []TileID {
	ids := make([]TileID, len(tiles))
	for i, t := range tiles {
		ids[i] = t.ID
	}
	return ids
}

// ShuffleTileIDs permutes ids in place with a Fisher-Yates walk from the
// last index down. The source is deliberately non-cryptographic.
func ShuffleTileIDs(ids []TileID, rng *rand.Rand) {
	for i := len(ids) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		ids[i], ids[j] = ids[j], ids[i]
	}
}
