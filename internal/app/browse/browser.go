// Package browse materialises the media tree for external browsing clients.
//
// Every node is addressed with a mediakey token; ancestry lives entirely in
// the keys, never in a stored graph. The browser is read-only with respect
// to the queue: the play path goes exclusively through the playback manager.
package browse

import (
	"context"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/osa030/tunedeck/internal/domain/mediakey"
	"github.com/osa030/tunedeck/internal/domain/track"
	"github.com/osa030/tunedeck/internal/infra/library"
)

// ErrUnknownNode is returned when a token does not address a usable node.
var ErrUnknownNode = errors.New("browse: unknown node")

const childrenCacheSize = 512

// LibraryReader is the read surface of the library metadata store.
type LibraryReader interface {
	ChildrenOf(ctx context.Context, t mediakey.Type, parentID int64) ([]library.Item, error)
	NameOf(ctx context.Context, t mediakey.Type, id int64) (string, error)
}

// MediaPlayer is the write path for "play this node" requests.
type MediaPlayer interface {
	PlayMedia(ctx context.Context, g track.Group, initialIndex int) error
}

// Node is one addressable node of the media tree as exposed to clients.
type Node struct {
	Token       string
	DisplayName string
	IsPlayable  bool
	HasChildren bool
}

// Browser answers child-listing queries against library metadata and
// resolves playable nodes into playback groups.
type Browser struct {
	lib    LibraryReader
	player MediaPlayer
	cache  *lru.Cache[string, []Node]
}

// New creates a browser.
func New(lib LibraryReader, player MediaPlayer) (*Browser, error) {
	cache, err := lru.New[string, []Node](childrenCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "browse: create cache")
	}
	return &Browser{lib: lib, player: player, cache: cache}, nil
}

// RootToken returns the token addressing the top of the media tree.
func (b *Browser) RootToken() string {
	return mediakey.Root.Encode()
}

// Children lists the ordered children of the node addressed by token. An
// empty token addresses the root. Unknown or stale tokens yield an empty
// list rather than an error so external clients never see a hard failure,
// and leaves have no children by definition.
func (b *Browser) Children(ctx context.Context, token string) ([]Node, error) {
	if token == "" {
		token = mediakey.Root.Encode()
	}
	key := mediakey.Decode(token)
	if key.IsUnknown() {
		return nil, nil
	}

	childType := childTypeOf(key.Type)
	if childType == mediakey.TypeUnknown {
		return nil, nil
	}

	if nodes, ok := b.cache.Get(token); ok {
		return nodes, nil
	}

	items, err := b.lib.ChildrenOf(ctx, childType, key.ItemID)
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, len(items))
	for i, it := range items {
		child := mediakey.FromParent(key, childType, it.ID)
		nodes[i] = Node{
			Token:       child.Encode(),
			DisplayName: it.DisplayName,
			IsPlayable:  it.IsPlayable,
			HasChildren: childType != mediakey.TypeTrack,
		}
	}

	b.cache.Add(token, nodes)
	return nodes, nil
}

// PlayNode derives a playback group from the node's key and hands it to the
// playback manager. A container node plays from its first track; a track
// node plays its parent album starting at that track.
func (b *Browser) PlayNode(ctx context.Context, token string) error {
	key := mediakey.Decode(token)

	var g track.Group
	initialIndex := 0

	switch key.Type {
	case mediakey.TypeGenre:
		g = track.Group{Kind: track.GroupGenre, ID: key.ItemID}
	case mediakey.TypeArtist:
		g = track.Group{Kind: track.GroupArtist, ID: key.ItemID}
	case mediakey.TypeAlbum:
		g = track.Group{Kind: track.GroupAlbum, ID: key.ItemID}
	case mediakey.TypeTrack:
		// The group is the parent album; the ancestor relationship is
		// reconstructed from the key itself.
		g = track.Group{Kind: track.GroupAlbum, ID: key.ParentID}
		idx, err := b.trackIndexInAlbum(ctx, key.ParentID, key.ItemID)
		if err != nil {
			return err
		}
		initialIndex = idx
	default:
		return errors.Wrapf(ErrUnknownNode, "token %q", token)
	}

	name, err := b.lib.NameOf(ctx, groupNodeType(g.Kind), g.ID)
	if err != nil && !errors.Is(err, library.ErrNotFound) {
		return err
	}
	g.Name = name

	return b.player.PlayMedia(ctx, g, initialIndex)
}

// Invalidate drops all cached children, e.g. after a library change.
func (b *Browser) Invalidate() {
	b.cache.Purge()
}

func (b *Browser) trackIndexInAlbum(ctx context.Context, albumID, trackID int64) (int, error) {
	siblings, err := b.lib.ChildrenOf(ctx, mediakey.TypeTrack, albumID)
	if err != nil {
		return 0, err
	}
	idx := 0
	for _, it := range siblings {
		if !it.IsPlayable {
			continue
		}
		if it.ID == trackID {
			return idx, nil
		}
		idx++
	}
	return 0, errors.Wrapf(ErrUnknownNode, "track %d not in album %d", trackID, albumID)
}

// childTypeOf maps a node type to the type of its children; leaves map to
// TypeUnknown.
func childTypeOf(t mediakey.Type) mediakey.Type {
	switch t {
	case mediakey.TypeRoot:
		return mediakey.TypeGenre
	case mediakey.TypeGenre:
		return mediakey.TypeArtist
	case mediakey.TypeArtist:
		return mediakey.TypeAlbum
	case mediakey.TypeAlbum:
		return mediakey.TypeTrack
	default:
		return mediakey.TypeUnknown
	}
}

func groupNodeType(k track.GroupKind) mediakey.Type {
	switch k {
	case track.GroupGenre:
		return mediakey.TypeGenre
	case track.GroupArtist:
		return mediakey.TypeArtist
	case track.GroupAlbum:
		return mediakey.TypeAlbum
	default:
		return mediakey.TypeUnknown
	}
}
