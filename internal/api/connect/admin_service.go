package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/osa030/tunedeck/internal/app/queue"
)

// AdminService procedure paths.
const (
	AdminClearQueueProcedure    = "/tunedeck.v1.AdminService/ClearQueue"
	AdminResetQueueProcedure    = "/tunedeck.v1.AdminService/ResetQueue"
	AdminRefreshBrowseProcedure = "/tunedeck.v1.AdminService/RefreshBrowse"
)

// BrowseInvalidator drops cached browse listings after a library change.
type BrowseInvalidator interface {
	Invalidate()
}

// AdminService exposes destructive queue operations. Callers authenticate
// through the admin-token interceptor.
type AdminService struct {
	repo    *queue.Repository
	browser BrowseInvalidator
}

// NewAdminService creates an AdminService.
func NewAdminService(repo *queue.Repository, browser BrowseInvalidator) *AdminService {
	return &AdminService{repo: repo, browser: browser}
}

// Mount registers the service handlers on mux.
func (s *AdminService) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(AdminClearQueueProcedure, connect.NewUnaryHandler(AdminClearQueueProcedure, s.clearQueue, opts...))
	mux.Handle(AdminResetQueueProcedure, connect.NewUnaryHandler(AdminResetQueueProcedure, s.resetQueue, opts...))
	mux.Handle(AdminRefreshBrowseProcedure, connect.NewUnaryHandler(AdminRefreshBrowseProcedure, s.refreshBrowse, opts...))
}

// clearQueue resets an available queue to the empty state.
func (s *AdminService) clearQueue(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	if err := s.repo.Clear(ctx); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// resetQueue clears persisted state unconditionally, recovering a repository
// whose stores were unreadable.
func (s *AdminService) resetQueue(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	if err := s.repo.Reset(ctx); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// refreshBrowse drops the cached media-tree listings so the next browse
// reads fresh library metadata.
func (s *AdminService) refreshBrowse(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	s.browser.Invalidate()
	return connect.NewResponse(&Empty{}), nil
}
