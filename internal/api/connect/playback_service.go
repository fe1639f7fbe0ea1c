package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/osa030/tunedeck/internal/app/player"
	"github.com/osa030/tunedeck/internal/domain/track"
)

// PlaybackService procedure paths.
const (
	PlaybackStatusProcedure     = "/tunedeck.v1.PlaybackService/GetStatus"
	PlaybackWatchProcedure      = "/tunedeck.v1.PlaybackService/Watch"
	PlaybackPlayMediaProcedure  = "/tunedeck.v1.PlaybackService/PlayMedia"
	PlaybackToggleProcedure     = "/tunedeck.v1.PlaybackService/TogglePlay"
	PlaybackNextProcedure       = "/tunedeck.v1.PlaybackService/Next"
	PlaybackPrevProcedure       = "/tunedeck.v1.PlaybackService/Prev"
	PlaybackSeekProcedure       = "/tunedeck.v1.PlaybackService/Seek"
	PlaybackConnectProcedure    = "/tunedeck.v1.PlaybackService/Connect"
	PlaybackDisconnectProcedure = "/tunedeck.v1.PlaybackService/Disconnect"
)

// PlaybackService exposes the playback manager.
type PlaybackService struct {
	player *player.Manager
}

// NewPlaybackService creates a PlaybackService.
func NewPlaybackService(pm *player.Manager) *PlaybackService {
	return &PlaybackService{player: pm}
}

// Mount registers the service handlers on mux.
func (s *PlaybackService) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(PlaybackStatusProcedure, connect.NewUnaryHandler(PlaybackStatusProcedure, s.getStatus, opts...))
	mux.Handle(PlaybackWatchProcedure, connect.NewServerStreamHandler(PlaybackWatchProcedure, s.watch, opts...))
	mux.Handle(PlaybackPlayMediaProcedure, connect.NewUnaryHandler(PlaybackPlayMediaProcedure, s.playMedia, opts...))
	mux.Handle(PlaybackToggleProcedure, connect.NewUnaryHandler(PlaybackToggleProcedure, s.togglePlay, opts...))
	mux.Handle(PlaybackNextProcedure, connect.NewUnaryHandler(PlaybackNextProcedure, s.next, opts...))
	mux.Handle(PlaybackPrevProcedure, connect.NewUnaryHandler(PlaybackPrevProcedure, s.prev, opts...))
	mux.Handle(PlaybackSeekProcedure, connect.NewUnaryHandler(PlaybackSeekProcedure, s.seek, opts...))
	mux.Handle(PlaybackConnectProcedure, connect.NewUnaryHandler(PlaybackConnectProcedure, s.connect, opts...))
	mux.Handle(PlaybackDisconnectProcedure, connect.NewUnaryHandler(PlaybackDisconnectProcedure, s.disconnect, opts...))
}

func (s *PlaybackService) getStatus(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[PlaybackStatus], error) {
	return connect.NewResponse(toWireStatus(s.player.Status())), nil
}

func (s *PlaybackService) watch(
	ctx context.Context,
	req *connect.Request[Empty],
	stream *connect.ServerStream[PlaybackStatus],
) error {
	updates := s.player.WatchStatus(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if err := stream.Send(toWireStatus(st)); err != nil {
				return err
			}
		}
	}
}

func (s *PlaybackService) playMedia(
	ctx context.Context,
	req *connect.Request[PlayMediaRequest],
) (*connect.Response[Empty], error) {
	g := track.Group{
		Kind:     track.GroupKind(req.Msg.GroupKind),
		ID:       req.Msg.GroupID,
		Name:     req.Msg.GroupName,
		TrackIDs: req.Msg.TrackIDs,
	}
	if err := s.player.PlayMedia(ctx, g, req.Msg.InitialIndex); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *PlaybackService) togglePlay(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	if err := s.player.TogglePlay(ctx); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *PlaybackService) next(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	if err := s.player.Next(ctx); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *PlaybackService) prev(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	if err := s.player.Prev(ctx); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *PlaybackService) seek(
	ctx context.Context,
	req *connect.Request[SeekRequest],
) (*connect.Response[Empty], error) {
	if err := s.player.SeekToTrackPosition(ctx, req.Msg.PositionMs); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *PlaybackService) connect(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	s.player.ConnectToService()
	return connect.NewResponse(&Empty{}), nil
}

func (s *PlaybackService) disconnect(
	ctx context.Context,
	req *connect.Request[Empty],
) (*connect.Response[Empty], error) {
	s.player.DisconnectFromService()
	return connect.NewResponse(&Empty{}), nil
}

func toWireStatus(st player.Status) *PlaybackStatus {
	return &PlaybackStatus{
		State:        st.State.String(),
		QueueIndex:   st.QueueIndex,
		TrackID:      st.TrackID,
		PositionMs:   st.PositionMs,
		ConnectError: st.ConnectError,
	}
}
