package connect

import (
	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/tunedeck/internal/app/browse"
	"github.com/osa030/tunedeck/internal/app/player"
	"github.com/osa030/tunedeck/internal/app/queue"
)

// rpcError maps domain errors onto Connect error codes.
func rpcError(err error) *connect.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrOutOfRange):
		return connect.NewError(connect.CodeOutOfRange, err)
	case errors.Is(err, queue.ErrUnavailable):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, player.ErrNothingToPlay):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, player.ErrNotConnected):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, browse.ErrUnknownNode):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
