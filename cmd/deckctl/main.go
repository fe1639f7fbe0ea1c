// Package main provides deckctl, the command line client for the tunedeck
// daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	api "github.com/osa030/tunedeck/internal/api/connect"
)

var (
	app    = kingpin.New("deckctl", "tunedeck control client")
	server = app.Flag("server", "Daemon base URL").Default("http://localhost:8080").Envar("TUNEDECK_SERVER").String()

	statusCmd = app.Command("status", "Show playback status")

	queueCmd  = app.Command("queue", "Show the queue")
	queueFull = queueCmd.Flag("full", "Show the entire queue, not just next-up").Bool()

	browseCmd   = app.Command("browse", "List children of a media-tree node")
	browseToken = browseCmd.Arg("token", "Node token (empty for root)").String()

	playCmd   = app.Command("play", "Play the node addressed by a token")
	playToken = playCmd.Arg("token", "Node token").Required().String()

	toggleCmd = app.Command("toggle", "Toggle play/pause")
	nextCmd   = app.Command("next", "Skip to the next track")
	prevCmd   = app.Command("prev", "Skip to the previous track")

	seekCmd = app.Command("seek", "Seek within the current track")
	seekMs  = seekCmd.Arg("ms", "Position in milliseconds").Required().Int64()

	jumpCmd   = app.Command("jump", "Jump to a queue position")
	jumpIndex = jumpCmd.Arg("index", "Queue position").Required().Int()

	addCmd     = app.Command("add", "Append a track to the queue")
	addTrackID = addCmd.Arg("track-id", "Library track ID").Required().Int64()

	moveCmd  = app.Command("move", "Move a queued track")
	moveFrom = moveCmd.Arg("from", "Source position").Required().Int()
	moveTo   = moveCmd.Arg("to", "Target position").Required().Int()

	removeCmd       = app.Command("remove", "Remove queue positions")
	removePositions = removeCmd.Arg("positions", "Positions to remove").Required().Ints()

	clearCmd   = app.Command("clear", "Clear the queue (admin)")
	clearToken = clearCmd.Flag("token", "Admin token").Envar("TUNEDECK_ADMIN_TOKEN").Required().String()

	refreshCmd   = app.Command("refresh", "Drop cached browse listings (admin)")
	refreshToken = refreshCmd.Flag("token", "Admin token").Envar("TUNEDECK_ADMIN_TOKEN").Required().String()
)

// call performs one unary RPC against the daemon.
func call[Req, Res any](procedure string, req *Req, headers map[string]string) (*Res, error) {
	client := connect.NewClient[Req, Res](
		http.DefaultClient,
		*server+procedure,
		connect.WithCodec(api.JSONCodec{}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	creq := connect.NewRequest(req)
	for k, v := range headers {
		creq.Header().Set(k, v)
	}
	res, err := client.CallUnary(ctx, creq)
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func main() {
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	var err error
	switch command {
	case statusCmd.FullCommand():
		err = showStatus()
	case queueCmd.FullCommand():
		err = showQueue(*queueFull)
	case browseCmd.FullCommand():
		err = browse(*browseToken)
	case playCmd.FullCommand():
		_, err = call[api.PlayNodeRequest, api.Empty](api.BrowsePlayNodeProcedure, &api.PlayNodeRequest{Token: *playToken}, nil)
	case toggleCmd.FullCommand():
		_, err = call[api.Empty, api.Empty](api.PlaybackToggleProcedure, &api.Empty{}, nil)
	case nextCmd.FullCommand():
		_, err = call[api.Empty, api.Empty](api.PlaybackNextProcedure, &api.Empty{}, nil)
	case prevCmd.FullCommand():
		_, err = call[api.Empty, api.Empty](api.PlaybackPrevProcedure, &api.Empty{}, nil)
	case seekCmd.FullCommand():
		_, err = call[api.SeekRequest, api.Empty](api.PlaybackSeekProcedure, &api.SeekRequest{PositionMs: *seekMs}, nil)
	case jumpCmd.FullCommand():
		_, err = call[api.PlayItemRequest, api.Empty](api.QueuePlayProcedure, &api.PlayItemRequest{Index: *jumpIndex}, nil)
	case addCmd.FullCommand():
		_, err = call[api.AddItemRequest, api.Empty](api.QueueAddProcedure, &api.AddItemRequest{TrackID: *addTrackID}, nil)
	case moveCmd.FullCommand():
		_, err = call[api.MoveItemRequest, api.Empty](api.QueueMoveProcedure, &api.MoveItemRequest{From: *moveFrom, To: *moveTo}, nil)
	case removeCmd.FullCommand():
		_, err = call[api.RemoveItemsRequest, api.Empty](api.QueueRemoveProcedure, &api.RemoveItemsRequest{Positions: *removePositions}, nil)
	case clearCmd.FullCommand():
		_, err = call[api.Empty, api.Empty](api.AdminClearQueueProcedure, &api.Empty{},
			map[string]string{api.AdminTokenHeader: *clearToken})
	case refreshCmd.FullCommand():
		_, err = call[api.Empty, api.Empty](api.AdminRefreshBrowseProcedure, &api.Empty{},
			map[string]string{api.AdminTokenHeader: *refreshToken})
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "deckctl: %v\n", err)
		os.Exit(1)
	}
}

func showStatus() error {
	st, err := call[api.Empty, api.PlaybackStatus](api.PlaybackStatusProcedure, &api.Empty{}, nil)
	if err != nil {
		return err
	}
	fmt.Printf("state: %s\n", st.State)
	if st.QueueIndex >= 0 {
		fmt.Printf("queue index: %d (track %d)\n", st.QueueIndex, st.TrackID)
		fmt.Printf("position: %s\n", (time.Duration(st.PositionMs) * time.Millisecond).Round(time.Second))
	}
	if st.ConnectError != "" {
		fmt.Printf("connect error: %s\n", st.ConnectError)
	}
	return nil
}

func showQueue(full bool) error {
	view, err := call[api.GetQueueRequest, api.QueueView](api.QueueGetProcedure, &api.GetQueueRequest{Full: full}, nil)
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n", view.Status)
	if view.ContextName != "" {
		fmt.Printf("context: %s\n", view.ContextName)
	}
	for _, qt := range view.Tracks {
		marker := "  "
		if qt.Position == view.NowPlaying.PositionInQueue {
			marker = "> "
		}
		fmt.Printf("%s%3d  track %d\n", marker, qt.Position, qt.TrackID)
	}
	return nil
}

func browse(token string) error {
	res, err := call[api.ListChildrenRequest, api.ListChildrenResponse](api.BrowseListChildrenProcedure, &api.ListChildrenRequest{Token: token}, nil)
	if err != nil {
		return err
	}
	for _, n := range res.Nodes {
		kind := "dir"
		if n.IsPlayable {
			kind = "track"
		}
		fmt.Printf("%-6s %-40s %s\n", kind, n.DisplayName, n.Token)
	}
	return nil
}
