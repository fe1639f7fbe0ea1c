// Package mediakey provides the flat string addressing of the media tree.
//
// Every node of the library hierarchy (genres, artists, albums, tracks) is
// addressed by a Key whose token form travels to external browsing clients.
// Ancestry is reconstructed purely from the parent fields of a key; no tree
// structure is stored anywhere.
package mediakey

import (
	"fmt"
	"strconv"
	"strings"
)

// Type identifies a node type in the media tree.
type Type int

const (
	TypeUnknown Type = iota // Sentinel for unparseable or missing tokens
	TypeRoot                // Top of the tree
	TypeGenre
	TypeArtist
	TypeAlbum
	TypeTrack
)

// String returns the token representation of the type.
func (t Type) String() string {
	switch t {
	case TypeRoot:
		return "root"
	case TypeGenre:
		return "genre"
	case TypeArtist:
		return "artist"
	case TypeAlbum:
		return "album"
	case TypeTrack:
		return "track"
	default:
		return "unknown"
	}
}

// ParseType parses a token segment into a Type. Unrecognized input maps to
// TypeUnknown.
func ParseType(s string) Type {
	switch s {
	case "root":
		return TypeRoot
	case "genre":
		return TypeGenre
	case "artist":
		return TypeArtist
	case "album":
		return TypeAlbum
	case "track":
		return TypeTrack
	default:
		return TypeUnknown
	}
}

// Key addresses one node of the media tree. The parent fields must equal the
// type and item ID of some ancestor key; that is the only link between nodes.
type Key struct {
	ParentType Type
	ParentID   int64
	Type       Type
	ItemID     int64
}

// Unknown is the sentinel key for unparseable or missing tokens.
var Unknown = Key{}

// Root addresses the top of the media tree.
var Root = Key{Type: TypeRoot}

// FromParent builds the address of a child node during tree traversal. It is
// the only child constructor, so a key can never carry a parent relationship
// inconsistent with the key it was derived from.
func FromParent(parent Key, t Type, itemID int64) Key {
	return Key{
		ParentType: parent.Type,
		ParentID:   parent.ItemID,
		Type:       t,
		ItemID:     itemID,
	}
}

// IsUnknown reports whether the key is the Unknown sentinel.
func (k Key) IsUnknown() bool {
	return k.Type == TypeUnknown
}

// Encode renders the canonical token form
// "<parentType>-<parentId>-<type>-<itemId>".
func (k Key) Encode() string {
	return fmt.Sprintf("%s-%d-%s-%d", k.ParentType, k.ParentID, k.Type, k.ItemID)
}

// Decode parses a token. Malformed input decodes to Unknown rather than
// failing so external browsing clients stay robust against stale or mangled
// tokens. Decode(k.Encode()) == k holds for every key with a known type and
// non-negative IDs.
func Decode(token string) Key {
	parts := strings.Split(token, "-")
	if len(parts) != 4 {
		return Unknown
	}

	nodeType := ParseType(parts[2])
	if nodeType == TypeUnknown {
		return Unknown
	}

	parentID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || parentID < 0 {
		return Unknown
	}
	itemID, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || itemID < 0 {
		return Unknown
	}

	return Key{
		ParentType: ParseType(parts[0]),
		ParentID:   parentID,
		Type:       nodeType,
		ItemID:     itemID,
	}
}
