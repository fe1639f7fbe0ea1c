package connect

import (
	"context"

	"connectrpc.com/connect"
)

// AdminTokenHeader is the header name for the admin authentication token.
const AdminTokenHeader = "X-Admin-Token"

// NewAdminAuthInterceptor creates an interceptor that validates the admin
// token from request metadata. Applied to the AdminService only.
func NewAdminAuthInterceptor(adminToken string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			token := req.Header().Get(AdminTokenHeader)
			if token == "" || token != adminToken {
				return nil, connect.NewError(connect.CodeUnauthenticated, nil)
			}
			return next(ctx, req)
		}
	}
}
