package server

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linechat/linechat/internal/auth"
	"github.com/linechat/linechat/internal/store/jsonstore"
)

func startTestServer(t *testing.T) (*jsonstore.JSONStore, string) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := jsonstore.New(filepath.Join(t.TempDir(), "users.json"), auth.FNVHasher{}, log)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go New(st, log).Serve(ln)
	return st, ln.Addr().String()
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *testClient) expect(line string) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := c.r.ReadString('\n')
	require.NoError(c.t, err, "expected line %q", line)
	assert.Equal(c.t, line, strings.TrimRight(got, "\r\n"))
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.r.ReadString('\n')
	require.Error(c.t, err, "expected connection to be closed")
}

// login performs the handshake and credential lines, then confirms the
// session reached the chat loop. The server sends nothing on successful auth
// (the join notice goes to the other connections), so /pending doubles as
// the synchronization point.
func (c *testClient) login(username, password string) {
	c.t.Helper()
	c.send(HandshakeMagic)
	c.send(username)
	c.send(password)
	c.send("/pending")
	c.expect("[Server]: No pending friend requests.")
}

func TestFirstUserRegistersAndQuits(t *testing.T) {
	st, addr := startTestServer(t)

	alice := dial(t, addr)
	alice.login("alice", "secret")

	assert.True(t, st.Exists("alice"), "first contact must create the account")
	assert.True(t, st.Authenticate("alice", "secret"))

	alice.send("/quit")
	alice.expect("[Server]: Goodbye!")
	alice.expectClosed()
}

func TestInvalidHandshakeClosesSilently(t *testing.T) {
	_, addr := startTestServer(t)

	c := dial(t, addr)
	c.send("HELLO")
	c.expectClosed()
}

func TestWrongPasswordRejected(t *testing.T) {
	st, addr := startTestServer(t)
	require.True(t, st.Register("alice", "right"))

	c := dial(t, addr)
	c.send(HandshakeMagic)
	c.send("alice")
	c.send("wrong")
	c.expect("[Server]: Authentication failed. Invalid username or password.")
	c.expectClosed()
}

func TestChatFlow(t *testing.T) {
	st, addr := startTestServer(t)

	alice := dial(t, addr)
	alice.login("alice", "pw1")

	bob := dial(t, addr)
	bob.send(HandshakeMagic)
	bob.send("bob")
	bob.send("pw2")
	alice.expect("[Server]: bob has joined the chat!")
	bob.send("/pending")
	bob.expect("[Server]: No pending friend requests.")

	// Direct messages require established friendship.
	bob.send("/msg alice yo")
	bob.expect("[Server]: You can only message friends.")

	alice.send("/friend add bob")
	alice.expect("[Server]: Friend request sent to bob.")
	bob.expect("[Server]: alice sent you a friend request. Type /friend accept alice to accept.")

	// A duplicate request is refused with no state change.
	alice.send("/friend add bob")
	alice.expect("[Server]: Could not send friend request to bob.")

	bob.send("/pending")
	bob.expect("[Server]: Pending friend requests: alice")

	bob.send("/friend accept alice")
	bob.expect("[Server]: You are now friends with alice.")
	alice.expect("[Server]: You are now friends with bob.")
	assert.True(t, st.AreFriends("alice", "bob"))
	assert.True(t, st.AreFriends("bob", "alice"))

	bob.send("/msg alice hello")
	alice.expect("[bob -> you]: hello")

	history := st.ChatHistory("alice", "bob")
	require.Len(t, history, 1)
	assert.Equal(t, "bob", history[0].Sender)
	assert.Equal(t, "hello", history[0].Content)

	// Public chat reaches everyone but the sender.
	alice.send("good morning")
	bob.expect("[alice]: good morning")

	// Unknown slash commands degrade to public chat.
	alice.send("/dance wildly")
	bob.expect("[alice]: /dance wildly")

	alice.send("/quit")
	alice.expect("[Server]: Goodbye!")
	alice.expectClosed()
	bob.expect("[Server]: alice has left the chat.")

	// Messaging an offline friend stores the message for later.
	bob.send("/msg alice see you")
	bob.expect("[Server]: alice is offline. Message stored.")
	assert.Len(t, st.ChatHistory("alice", "bob"), 2)
}

func TestRejectDoesNotNotifySender(t *testing.T) {
	st, addr := startTestServer(t)

	carol := dial(t, addr)
	carol.login("carol", "pw")

	dave := dial(t, addr)
	dave.send(HandshakeMagic)
	dave.send("dave")
	dave.send("pw")
	carol.expect("[Server]: dave has joined the chat!")
	dave.send("/pending")
	dave.expect("[Server]: No pending friend requests.")

	dave.send("/friend add carol")
	dave.expect("[Server]: Friend request sent to carol.")
	carol.expect("[Server]: dave sent you a friend request. Type /friend accept dave to accept.")

	carol.send("/friend reject dave")
	carol.expect("[Server]: Friend request from dave rejected.")

	// Dave gets no rejection notice: his very next reply is the /pending
	// answer, with nothing queued ahead of it.
	dave.send("/pending")
	dave.expect("[Server]: No pending friend requests.")

	assert.False(t, st.AreFriends("carol", "dave"))

	// Rejecting twice fails; the pending entries are gone on both sides.
	carol.send("/friend reject dave")
	carol.expect("[Server]: No pending friend request from dave.")
}

func TestMalformedCommandsKeepSessionAlive(t *testing.T) {
	_, addr := startTestServer(t)

	alice := dial(t, addr)
	alice.login("alice", "pw")

	alice.send("/friend add")
	alice.expect("[Server]: Usage: /friend add|accept|reject <user>")

	alice.send("/friend frobnicate bob")
	alice.expect("[Server]: Usage: /friend add|accept|reject <user>")

	alice.send("/msg bob")
	alice.expect("[Server]: Usage: /msg <user> <message>")

	// Still in the chat loop.
	alice.send("/pending")
	alice.expect("[Server]: No pending friend requests.")
}
