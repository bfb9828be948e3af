package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/linechat/linechat/internal/client"
)

var (
	addr     = flag.String("addr", "127.0.0.1:9000", "chat server address")
	username = flag.String("user", "", "username (registers on first contact)")
	password = flag.String("pass", "", "password")
)

func main() {
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: client -addr host:port -user <name> -pass <password>")
		os.Exit(2)
	}

	c, err := client.Dial(*addr, *username, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	c.Run(os.Stdin, os.Stdout)
}
