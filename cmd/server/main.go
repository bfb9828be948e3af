package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/linechat/linechat/internal/auth"
	"github.com/linechat/linechat/internal/server"
	"github.com/linechat/linechat/internal/store"
	"github.com/linechat/linechat/internal/store/jsonstore"
	"github.com/linechat/linechat/internal/store/sqlstore"
	"github.com/linechat/linechat/internal/ws"
)

var (
	addr      = flag.String("addr", ":9000", "tcp chat service address")
	httpAddr  = flag.String("http", ":8080", "http/websocket gateway address (empty to disable)")
	dataFile  = flag.String("data", "users.json", "users file (json backend) or database path (sqlite backend)")
	backend   = flag.String("store", "json", "store backend: json or sqlite")
	useBcrypt = flag.Bool("bcrypt", false, "hash new passwords with bcrypt instead of the legacy digest")
)

func main() {
	flag.Parse()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var hasher auth.Hasher = auth.FNVHasher{}
	if *useBcrypt {
		hasher = auth.BcryptHasher{}
	}

	var (
		st  store.Store
		err error
	)
	switch *backend {
	case "json":
		st, err = jsonstore.New(*dataFile, hasher, log)
	case "sqlite":
		st, err = sqlstore.New(*dataFile, hasher)
	default:
		log.Error("unknown store backend", "store", *backend)
		os.Exit(1)
	}
	if err != nil {
		log.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	srv := server.New(st, log)

	if *httpAddr != "" {
		gw := ws.NewGateway(srv.HandleConn, st, log)
		go func() {
			log.Info("gateway listening", "addr", *httpAddr)
			if err := http.ListenAndServe(*httpAddr, gw.Router()); err != nil {
				log.Error("gateway failed", "error", err)
			}
		}()
	}

	if err := srv.ListenAndServe(*addr); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}
