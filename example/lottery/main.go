package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/YiuTerran/go-netclient/base/log"
	"github.com/YiuTerran/go-netclient/network/gate"
	"github.com/YiuTerran/go-netclient/network/protocol"
	"github.com/samber/lo"
)

const (
	LotteryMsgID    int32 = 2000
	LotteryResultID int32 = 2001

	frameInterval = 16 * time.Millisecond
)

// LotteryMsg 客户端发起抽奖，服务端也会广播新的一轮
type LotteryMsg struct {
	Round  int    `json:"round"`
	Player string `json:"player"`
}

func (LotteryMsg) ProtoName() string { return "LotteryMsg" }

// LotteryResult 一轮抽奖的结果
type LotteryResult struct {
	Round  int    `json:"round"`
	Winner string `json:"winner"`
	Prize  string `json:"prize"`
}

func (LotteryResult) ProtoName() string { return "LotteryResult" }

// NetManager 持有客户端，每帧调用Update处理网络消息
type NetManager struct {
	client *gate.Client
	round  int
}

func NewNetManager(transport string) *NetManager {
	var c *gate.Client
	if transport == "ws" {
		c = gate.NewWsClient()
	} else {
		c = gate.NewTcpClient()
	}
	m := &NetManager{client: c}
	protocol.Register[LotteryMsg](c.Registry(), LotteryMsgID, "LotteryMsg")
	protocol.Register[LotteryResult](c.Registry(), LotteryResultID, "LotteryResult")
	gate.Handle(c, LotteryMsgID, m.onLottery)
	gate.Handle(c, LotteryResultID, m.onResult)
	return m
}

func (m *NetManager) onLottery(msg *LotteryMsg) error {
	m.round = msg.Round
	log.Info("round %d started by %s", msg.Round, msg.Player)
	return nil
}

func (m *NetManager) onResult(msg *LotteryResult) error {
	log.Info("round %d winner: %s, prize: %s", msg.Round, msg.Winner, msg.Prize)
	return nil
}

func (m *NetManager) Start(host string, port int) {
	m.client.Start(host, port)
}

// Draw 请求下一轮抽奖
func (m *NetManager) Draw(player string) error {
	return m.client.Send(LotteryMsg{Round: m.round + 1, Player: player})
}

// Update 每帧调用一次
func (m *NetManager) Update() {
	m.client.Tick()
}

func (m *NetManager) Close() {
	m.client.Close()
}

func env(key, def string) string {
	v := os.Getenv(key)
	return lo.Ternary(v == "", def, v)
}

func main() {
	log.Builder.Name("lottery").Level(log.Level(env("LOTTERY_LOG_LEVEL", "info"))).OutType(log.ConsoleOut).Build()
	defer log.Flush()

	host := env("LOTTERY_HOST", "127.0.0.1")
	port, err := strconv.Atoi(env("LOTTERY_PORT", "9000"))
	if err != nil {
		log.Fatal("invalid LOTTERY_PORT: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewNetManager(env("LOTTERY_TRANSPORT", "tcp"))
	defer m.Close()
	m.Start(host, port)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	drawTicker := time.NewTicker(5 * time.Second)
	defer drawTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("bye")
			return
		case <-drawTicker.C:
			if err := m.Draw(env("LOTTERY_PLAYER", "guest")); err != nil {
				log.Warn("draw failed: %v", err)
			}
		case <-ticker.C:
			m.Update()
		}
	}
}
