// Package client implements the interactive terminal chat client: it dials
// the server, performs the handshake and credential lines, then mirrors
// server output to the terminal while relaying typed lines back.
package client

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	incomingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
)

const handshakeMagic = "CHAT_HS_V1"

// Client is one live connection to the chat server.
type Client struct {
	conn net.Conn
}

// Dial connects and sends the handshake token plus the credential lines.
// Authentication outcome arrives in-band: on failure the server sends a
// notice line and closes, which the read loop surfaces as a disconnect.
func Dial(addr, username, password string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	for _, line := range []string{handshakeMagic, username, password} {
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			conn.Close()
			return nil, fmt.Errorf("send credentials: %w", err)
		}
	}
	return &Client{conn: conn}, nil
}

// Send relays one line to the server.
func (c *Client) Send(line string) error {
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Run pumps the session: a goroutine prints incoming server lines while the
// main loop reads user input from in and relays it. It returns when the user
// quits, input ends, or the server closes the connection.
func (c *Client) Run(in io.Reader, out io.Writer) {
	prompt := promptStyle.Render("> ")

	done := make(chan struct{})
	go func() {
		defer close(done)
		r := bufio.NewReader(c.conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				fmt.Fprintln(out, "\r"+noticeStyle.Render("[Disconnected from server]"))
				return
			}
			line = strings.TrimRight(line, "\r\n")
			fmt.Fprint(out, "\r"+incomingStyle.Render(line)+"\n"+prompt)
		}
	}()

	fmt.Fprint(out, prompt)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			fmt.Fprint(out, prompt)
			continue
		}
		if c.Send(line) != nil {
			break
		}
		if line == "/quit" {
			break
		}
		fmt.Fprint(out, prompt)
	}

	c.conn.Close()
	<-done
	fmt.Fprintln(out, noticeStyle.Render("[You have left the chat]"))
}
