package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/osa030/tunedeck/internal/app/browse"
)

// BrowseService procedure paths.
const (
	BrowseListChildrenProcedure = "/tunedeck.v1.BrowseService/ListChildren"
	BrowsePlayNodeProcedure     = "/tunedeck.v1.BrowseService/PlayNode"
)

// BrowseService exposes the media tree to external browsing clients.
type BrowseService struct {
	browser *browse.Browser
}

// NewBrowseService creates a BrowseService.
func NewBrowseService(b *browse.Browser) *BrowseService {
	return &BrowseService{browser: b}
}

// Mount registers the service handlers on mux.
func (s *BrowseService) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(BrowseListChildrenProcedure, connect.NewUnaryHandler(BrowseListChildrenProcedure, s.listChildren, opts...))
	mux.Handle(BrowsePlayNodeProcedure, connect.NewUnaryHandler(BrowsePlayNodeProcedure, s.playNode, opts...))
}

func (s *BrowseService) listChildren(
	ctx context.Context,
	req *connect.Request[ListChildrenRequest],
) (*connect.Response[ListChildrenResponse], error) {
	nodes, err := s.browser.Children(ctx, req.Msg.Token)
	if err != nil {
		return nil, rpcError(err)
	}

	wire := make([]BrowseNode, len(nodes))
	for i, n := range nodes {
		wire[i] = BrowseNode{
			Token:       n.Token,
			DisplayName: n.DisplayName,
			IsPlayable:  n.IsPlayable,
			HasChildren: n.HasChildren,
		}
	}
	return connect.NewResponse(&ListChildrenResponse{Nodes: wire}), nil
}

func (s *BrowseService) playNode(
	ctx context.Context,
	req *connect.Request[PlayNodeRequest],
) (*connect.Response[Empty], error) {
	if err := s.browser.PlayNode(ctx, req.Msg.Token); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}
