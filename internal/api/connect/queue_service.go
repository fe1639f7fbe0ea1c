package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/osa030/tunedeck/internal/app/queue"
	"github.com/osa030/tunedeck/internal/domain/track"
)

// QueueService procedure paths.
const (
	QueueGetProcedure    = "/tunedeck.v1.QueueService/Get"
	QueueWatchProcedure  = "/tunedeck.v1.QueueService/Watch"
	QueueSaveProcedure   = "/tunedeck.v1.QueueService/Save"
	QueueMoveProcedure   = "/tunedeck.v1.QueueService/Move"
	QueueAddProcedure    = "/tunedeck.v1.QueueService/Add"
	QueuePlayProcedure   = "/tunedeck.v1.QueueService/PlayItem"
	QueueRemoveProcedure = "/tunedeck.v1.QueueService/Remove"
)

// QueueService exposes the queue repository.
type QueueService struct {
	repo *queue.Repository
}

// NewQueueService creates a QueueService.
func NewQueueService(repo *queue.Repository) *QueueService {
	return &QueueService{repo: repo}
}

// Mount registers the service handlers on mux.
func (s *QueueService) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(QueueGetProcedure, connect.NewUnaryHandler(QueueGetProcedure, s.get, opts...))
	mux.Handle(QueueWatchProcedure, connect.NewServerStreamHandler(QueueWatchProcedure, s.watch, opts...))
	mux.Handle(QueueSaveProcedure, connect.NewUnaryHandler(QueueSaveProcedure, s.save, opts...))
	mux.Handle(QueueMoveProcedure, connect.NewUnaryHandler(QueueMoveProcedure, s.move, opts...))
	mux.Handle(QueueAddProcedure, connect.NewUnaryHandler(QueueAddProcedure, s.add, opts...))
	mux.Handle(QueuePlayProcedure, connect.NewUnaryHandler(QueuePlayProcedure, s.playItem, opts...))
	mux.Handle(QueueRemoveProcedure, connect.NewUnaryHandler(QueueRemoveProcedure, s.remove, opts...))
}

func (s *QueueService) get(
	ctx context.Context,
	req *connect.Request[GetQueueRequest],
) (*connect.Response[QueueView], error) {
	full, ok := s.repo.Snapshot()
	if !ok {
		return connect.NewResponse(&QueueView{
			Status:     s.repo.Status().String(),
			Tracks:     []QueuedTrack{},
			NowPlaying: toWireNowPlaying(track.EmptyNowPlaying()),
		}), nil
	}
	if !req.Msg.Full {
		next := full.NextUp()
		full = track.FullQueue{Context: next.Context, Tracks: next.Tracks, NowPlaying: next.NowPlaying}
	}
	return connect.NewResponse(toWireQueue(s.repo.Status(), full)), nil
}

func (s *QueueService) watch(
	ctx context.Context,
	req *connect.Request[WatchQueueRequest],
	stream *connect.ServerStream[QueueView],
) error {
	updates := s.repo.GetFullQueue(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case full, ok := <-updates:
			if !ok {
				return nil
			}
			if err := stream.Send(toWireQueue(s.repo.Status(), full)); err != nil {
				return err
			}
		}
	}
}

func (s *QueueService) save(
	ctx context.Context,
	req *connect.Request[SaveQueueRequest],
) (*connect.Response[Empty], error) {
	qctx := track.QueueContext{ID: uuid.NewString(), Name: req.Msg.ContextName}
	now := track.NowPlayingInfo{PositionInQueue: req.Msg.InitialIndex}
	if req.Msg.InitialIndex == track.NoSession {
		now = track.EmptyNowPlaying()
	}
	if err := s.repo.SaveQueue(ctx, qctx, req.Msg.TrackIDs, now); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *QueueService) move(
	ctx context.Context,
	req *connect.Request[MoveItemRequest],
) (*connect.Response[Empty], error) {
	if err := s.repo.MoveQueueItem(ctx, req.Msg.From, req.Msg.To); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *QueueService) add(
	ctx context.Context,
	req *connect.Request[AddItemRequest],
) (*connect.Response[Empty], error) {
	if err := s.repo.AddToQueue(ctx, req.Msg.TrackID); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *QueueService) playItem(
	ctx context.Context,
	req *connect.Request[PlayItemRequest],
) (*connect.Response[Empty], error) {
	if err := s.repo.PlayQueueItem(ctx, req.Msg.Index); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (s *QueueService) remove(
	ctx context.Context,
	req *connect.Request[RemoveItemsRequest],
) (*connect.Response[Empty], error) {
	if err := s.repo.RemoveItemsFromQueue(ctx, req.Msg.Positions); err != nil {
		return nil, rpcError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func toWireQueue(status queue.Status, full track.FullQueue) *QueueView {
	tracks := make([]QueuedTrack, len(full.Tracks))
	for i, qt := range full.Tracks {
		tracks[i] = QueuedTrack{Position: qt.Position, TrackID: qt.TrackID}
	}
	return &QueueView{
		Status:      status.String(),
		ContextID:   full.Context.ID,
		ContextName: full.Context.Name,
		Tracks:      tracks,
		NowPlaying:  toWireNowPlaying(full.NowPlaying),
	}
}

func toWireNowPlaying(n track.NowPlayingInfo) NowPlaying {
	return NowPlaying{
		PositionInQueue:        n.PositionInQueue,
		LastRecordedPositionMs: n.LastRecordedPositionMs,
	}
}
