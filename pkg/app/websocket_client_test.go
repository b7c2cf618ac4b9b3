package app

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haierkeys/notely-service/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/lxzan/gws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("type before first separator, data after", prop.ForAll(
		func(action, data string) bool {
			msg, ok := ParseMessage(string(EncodeMessage(action, []byte(data))))
			return ok && msg.Type == action && string(msg.Data) == data
		},
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestParseMessage_Illegal(t *testing.T) {
	_, ok := ParseMessage("no-separator")
	assert.False(t, ok)
	_, ok = ParseMessage("|missing type")
	assert.False(t, ok)
}

type recordingClient struct {
	gws.BuiltinEventHandler
	messages chan string
}

func (r *recordingClient) OnMessage(_ *gws.Conn, message *gws.Message) {
	defer message.Close()
	r.messages <- message.Data.String()
}

func newTestWebsocketServer(t *testing.T, uid int64) (*WebsocketServer, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	wss := NewWebsocketServer(WebsocketServerConfig{}, nil)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if uid > 0 {
			SetUserToContext(c, &UserEntity{UID: uid})
		}
		c.Next()
	}, wss.Run())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return wss, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, addr string) (*gws.Conn, *recordingClient) {
	t.Helper()
	rc := &recordingClient{messages: make(chan string, 16)}
	conn, _, err := gws.NewClient(rc, &gws.ClientOption{Addr: addr})
	require.NoError(t, err)
	go conn.ReadLoop()
	t.Cleanup(func() { conn.WriteClose(1000, nil) })
	return conn, rc
}

func recvText(t *testing.T, rc *recordingClient) string {
	t.Helper()
	select {
	case m := <-rc.messages:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for websocket message")
	}
	return ""
}

func TestWebsocketServer_OnConnectAndHandlers(t *testing.T) {
	wss, addr := newTestWebsocketServer(t, 7)

	wss.OnConnect(func(c *WebsocketClient) {
		c.ToResponse(code.Success.WithData(map[string]int64{"uid": c.UID()}), "Hello")
	})
	wss.Use("Echo", func(c *WebsocketClient, msg *WebSocketMessage) {
		var params struct {
			Text string `json:"text" binding:"required"`
		}
		if valid, errs := c.BindAndValid(msg.Data, &params); !valid {
			c.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()), "Echo")
			return
		}
		c.ToResponse(code.Success.WithData(params.Text), "Echo")
	})

	conn, rc := dial(t, addr)

	hello := recvText(t, rc)
	assert.True(t, strings.HasPrefix(hello, "Hello|"), hello)
	assert.Contains(t, hello, `"uid":7`)
	assert.Equal(t, 1, wss.UserClientCount(7))

	require.NoError(t, conn.WriteString(`Echo|{"text":"hi"}`))
	assert.Contains(t, recvText(t, rc), `"data":"hi"`)

	require.NoError(t, conn.WriteString(`Echo|{}`))
	assert.Contains(t, recvText(t, rc), `"status":false`)

	require.NoError(t, conn.WriteString(`Missing|{}`))
	assert.True(t, strings.HasPrefix(recvText(t, rc), "Missing|"))
}

func TestWebsocketServer_CloseCancelsClientContext(t *testing.T) {
	wss, addr := newTestWebsocketServer(t, 9)

	cancelled := make(chan struct{})
	wss.OnConnect(func(c *WebsocketClient) {
		<-c.Context().Done()
		close(cancelled)
	})

	conn, _ := dial(t, addr)
	require.Eventually(t, func() bool { return wss.UserClientCount(9) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteString("close"))

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("client context not cancelled")
	}
	assert.Eventually(t, func() bool { return wss.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebsocketServer_RejectsAnonymous(t *testing.T) {
	_, addr := newTestWebsocketServer(t, 0)

	_, _, err := gws.NewClient(&recordingClient{messages: make(chan string, 1)}, &gws.ClientOption{Addr: addr})
	assert.Error(t, err)
}
