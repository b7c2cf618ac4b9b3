package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/haierkeys/notely-service/pkg/code"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

const (
	WebSocketServerPingInterval = 25 * time.Second
	WebSocketServerPingWait     = 40 * time.Second
)

// WebSocketMessage 客户端消息，线上格式为 "Type|json"
type WebSocketMessage struct {
	Type string
	Data []byte
}

// ResResult websocket 推送结构
type ResResult struct {
	Code    int         `json:"code"`
	Status  bool        `json:"status"`
	Msg     string      `json:"msg"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

type WebsocketServerConfig struct {
	GWSOption    gws.ServerOption
	PingInterval time.Duration
	PingWait     time.Duration
}

// WebsocketClient 单个 WebSocket 连接及其状态
type WebsocketClient struct {
	conn   *gws.Conn
	Ctx    *gin.Context
	User   *UserEntity
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// Context 连接关闭后取消
func (c *WebsocketClient) Context() context.Context {
	return c.ctx
}

// UID 连接所属用户
func (c *WebsocketClient) UID() int64 {
	if c.User == nil {
		return 0
	}
	return c.User.UID
}

// BindAndValid 解码消息数据并校验
func (c *WebsocketClient) BindAndValid(data []byte, obj any) (bool, ValidErrors) {
	return BindJSONAndValid(c.Ctx, data, obj)
}

// ToResponse 按 "action|json" 格式推送结果
func (c *WebsocketClient) ToResponse(codeObj *code.Code, action string) {
	content := ResResult{
		Code:   codeObj.Code(),
		Status: codeObj.Status(),
		Msg:    codeObj.MsgIn(requestLang(c.Ctx)),
		Data:   codeObj.Data(),
	}
	if codeObj.HaveDetails() {
		content.Details = strings.Join(codeObj.Details(), ",")
	}
	if err := c.Send(action, content); err != nil {
		c.logger.Warn("websocket send failed", zap.String("action", action), zap.Error(err))
	}
}

// Send 推送任意可序列化内容
func (c *WebsocketClient) Send(action string, content any) error {
	payload, err := sonic.Marshal(content)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(gws.OpcodeText, EncodeMessage(action, payload))
}

// Close 主动关闭连接
func (c *WebsocketClient) Close(reason string) {
	c.conn.WriteClose(1000, []byte(reason))
}

func (c *WebsocketClient) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WritePing(nil); err != nil {
				c.logger.Debug("websocket ping failed", zap.Int64("uid", c.UID()), zap.Error(err))
				return
			}
		}
	}
}

// EncodeMessage 拼接 "action|payload"，action 为空时只发送 payload
func EncodeMessage(action string, payload []byte) []byte {
	if action == "" {
		return payload
	}
	out := make([]byte, 0, len(action)+1+len(payload))
	out = append(out, action...)
	out = append(out, '|')
	return append(out, payload...)
}

// ParseMessage 按第一个 "|" 拆分消息类型与数据
func ParseMessage(raw string) (WebSocketMessage, bool) {
	index := strings.Index(raw, "|")
	if index <= 0 {
		return WebSocketMessage{}, false
	}
	return WebSocketMessage{Type: raw[:index], Data: []byte(raw[index+1:])}, true
}

// ------------------------------------> WebsocketServer

type ConnStorage = map[*gws.Conn]*WebsocketClient

// WebsocketServer 已认证用户的 WebSocket 服务，认证由前置的 http 中间件完成
type WebsocketServer struct {
	gws.BuiltinEventHandler

	handlers  map[string]func(*WebsocketClient, *WebSocketMessage)
	onConnect func(*WebsocketClient)

	mu          sync.Mutex
	clients     ConnStorage
	userClients map[int64]ConnStorage

	up     *gws.Upgrader
	config WebsocketServerConfig
	logger *zap.Logger
}

func NewWebsocketServer(c WebsocketServerConfig, logger *zap.Logger) *WebsocketServer {
	if c.PingInterval <= 0 {
		c.PingInterval = WebSocketServerPingInterval
	}
	if c.PingWait <= 0 {
		c.PingWait = WebSocketServerPingWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &WebsocketServer{
		handlers:    make(map[string]func(*WebsocketClient, *WebSocketMessage)),
		clients:     make(ConnStorage),
		userClients: make(map[int64]ConnStorage),
		config:      c,
		logger:      logger,
	}
	w.up = gws.NewUpgrader(w, &w.config.GWSOption)
	return w
}

// Use 注册消息处理器
func (w *WebsocketServer) Use(action string, handler func(*WebsocketClient, *WebSocketMessage)) {
	w.handlers[action] = handler
}

// OnConnect 连接建立后在独立 goroutine 中执行，常用于推送订阅数据
func (w *WebsocketServer) OnConnect(fn func(*WebsocketClient)) {
	w.onConnect = fn
}

// Run gin 处理函数，要求请求已通过用户认证
func (w *WebsocketServer) Run() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			NewResponse(c).ToResponse(code.ErrorNotUserAuthToken)
			return
		}

		socket, err := w.up.Upgrade(c.Writer, c.Request)
		if err != nil {
			w.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		client := &WebsocketClient{
			conn:   socket,
			Ctx:    c.Copy(),
			User:   user,
			ctx:    ctx,
			cancel: cancel,
			logger: w.logger,
		}
		w.addClient(client)
		w.logger.Info("websocket user enters", zap.Int64("uid", user.UID), zap.Int("count", w.UserClientCount(user.UID)))

		go client.pingLoop(w.config.PingInterval)
		if w.onConnect != nil {
			go w.onConnect(client)
		}
		go socket.ReadLoop()
	}
}

func (w *WebsocketServer) getClient(conn *gws.Conn) *WebsocketClient {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.clients[conn]
}

func (w *WebsocketServer) addClient(c *WebsocketClient) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.clients[c.conn] = c
	uid := c.UID()
	if w.userClients[uid] == nil {
		w.userClients[uid] = make(ConnStorage)
	}
	w.userClients[uid][c.conn] = c
}

func (w *WebsocketServer) removeClient(conn *gws.Conn) *WebsocketClient {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.clients[conn]
	if c == nil {
		return nil
	}
	delete(w.clients, conn)
	uid := c.UID()
	delete(w.userClients[uid], conn)
	if len(w.userClients[uid]) == 0 {
		delete(w.userClients, uid)
	}
	return c
}

// UserClientCount 用户当前连接数
func (w *WebsocketServer) UserClientCount(uid int64) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.userClients[uid])
}

// ClientCount 全部连接数
func (w *WebsocketServer) ClientCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.clients)
}

// CloseAll 关闭全部连接，服务停止时调用
func (w *WebsocketServer) CloseAll() {
	w.mu.Lock()
	conns := make([]*gws.Conn, 0, len(w.clients))
	for conn := range w.clients {
		conns = append(conns, conn)
	}
	w.mu.Unlock()
	for _, conn := range conns {
		conn.WriteClose(1001, []byte("ServerShutdown"))
	}
}

func (w *WebsocketServer) OnOpen(conn *gws.Conn) {
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))
}

func (w *WebsocketServer) OnClose(conn *gws.Conn, err error) {
	c := w.removeClient(conn)
	if c == nil {
		return
	}
	c.cancel()
	w.logger.Info("websocket user leave", zap.Int64("uid", c.UID()), zap.NamedError("reason", err))
}

func (w *WebsocketServer) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
	_ = socket.WritePong(nil)
}

func (w *WebsocketServer) OnPong(socket *gws.Conn, payload []byte) {
	_ = socket.SetDeadline(time.Now().Add(w.config.PingWait))
}

func (w *WebsocketServer) OnMessage(conn *gws.Conn, message *gws.Message) {
	defer message.Close()
	_ = conn.SetDeadline(time.Now().Add(w.config.PingWait))

	if message.Opcode != gws.OpcodeText {
		return
	}
	raw := message.Data.String()
	if raw == "close" {
		conn.WriteClose(1000, []byte("ClientClose"))
		return
	}

	c := w.getClient(conn)
	if c == nil {
		return
	}

	msg, ok := ParseMessage(raw)
	if !ok {
		w.logger.Warn("websocket illegal message", zap.Int64("uid", c.UID()))
		return
	}

	handler, exists := w.handlers[msg.Type]
	if !exists {
		c.ToResponse(code.ErrorNotFoundAPI, msg.Type)
		return
	}
	handler(c, &msg)
}
