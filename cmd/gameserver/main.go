// Command gameserver is a stand-in match server used to exercise the lobby's
// supervision flow end to end. It binds the assigned port, performs the
// bootstrap exchange with the lobby and then idles until it is killed.
package main

import (
	"context"
	"crypto/rand"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Elekrisk/moba-try-5/internal/protocol"
	"github.com/Elekrisk/moba-try-5/internal/transport"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) != 3 {
		log.Fatal("usage: gameserver <token> <port>")
	}
	token, err := uuid.Parse(os.Args[1])
	if err != nil {
		log.Fatalf("invalid token: %v", err)
	}
	port, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("invalid port: %v", err)
	}

	listener, err := transport.Listen(port)
	if err != nil {
		log.Fatalf("binding port %d: %v", port, err)
	}
	defer listener.Close()
	log.Infof("game server listening on %s", listener.Addr())

	ctx := context.Background()
	conn, err := listener.Accept(ctx)
	if err != nil {
		log.Fatalf("accepting lobby connection: %v", err)
	}

	initial, err := readInitial(ctx, conn)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	if initial.Token != token {
		log.Fatal("bootstrap token mismatch, refusing lobby")
	}

	tokens := make(map[protocol.PlayerID]protocol.ConnectToken)
	for team, selections := range initial.Players {
		for _, sel := range selections {
			tok := make(protocol.ConnectToken, 16)
			if _, err := rand.Read(tok); err != nil {
				log.Fatalf("minting connect token: %v", err)
			}
			tokens[sel.Player.ID] = tok
			log.Infof("%s: %s plays %s", team, sel.Player.Name, sel.Champion)
		}
	}

	if err := sendTokens(ctx, conn, tokens); err != nil {
		log.Fatalf("sending connect tokens: %v", err)
	}
	log.Info("bootstrap complete, match running")

	// The lobby kills this process when the match is over.
	select {}
}

func readInitial(ctx context.Context, conn transport.Conn) (protocol.LobbyInitialMessage, error) {
	r, err := conn.AcceptUni(ctx)
	if err != nil {
		return protocol.LobbyInitialMessage{}, err
	}
	data, err := protocol.ReadFramed(r)
	if err != nil {
		return protocol.LobbyInitialMessage{}, err
	}
	return protocol.DecodeToGameServer(data)
}

func sendTokens(ctx context.Context, conn transport.Conn, tokens map[protocol.PlayerID]protocol.ConnectToken) error {
	reply, err := protocol.EncodeFromGameServer(protocol.PlayerTokensGenerated{Players: tokens})
	if err != nil {
		return err
	}
	w, err := conn.OpenUni(ctx)
	if err != nil {
		return err
	}
	if err := protocol.WriteFramed(w, reply); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
