package ws_test

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/YiuTerran/go-netclient/network"
	"github.com/YiuTerran/go-netclient/network/frame"
	"github.com/YiuTerran/go-netclient/network/ws"
	"github.com/gorilla/websocket"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		srv    *httptest.Server
		conns  <-chan *websocket.Conn
		host   string
		port   int
		client *ws.Client
	)

	BeforeEach(func() {
		srv, conns, host, port = newServer()
		client = ws.NewClient()
	})

	AfterEach(func() {
		client.Close()
		srv.Close()
	})

	It("should build the ws url", func() {
		Expect(client.URL("127.0.0.1", 80)).To(Equal("ws://127.0.0.1:80"))
		c := ws.NewClient(ws.Path("/game"), ws.Secure(true))
		Expect(c.URL("example.com", 443)).To(Equal("wss://example.com:443/game"))
		Expect(c.Name()).To(Equal("ws"))
	})

	It("should fail to connect when nobody listens", func() {
		srv.Close()
		err := client.Connect(context.Background(), host, port)
		Expect(err).To(HaveOccurred())
		Expect(client.State()).To(Equal(network.Disconnected))
	})

	It("should refuse io before connect", func() {
		Expect(errors.Is(client.WriteMsg([]byte{1}), network.ErrNotConnected)).To(BeTrue())
		_, err := client.ReadMsg()
		Expect(errors.Is(err, network.ErrNotConnected)).To(BeTrue())
	})

	It("should not connect after close", func() {
		client.Close()
		err := client.Connect(context.Background(), host, port)
		Expect(errors.Is(err, net.ErrClosed)).To(BeTrue())
	})

	Describe("connected", func() {
		var server *websocket.Conn

		BeforeEach(func() {
			Expect(client.Connect(context.Background(), host, port)).To(Succeed())
			Expect(client.State()).To(Equal(network.Connected))
			Eventually(conns).Should(Receive(&server))
		})

		AfterEach(func() {
			_ = server.Close()
		})

		It("should send frames as binary messages", func() {
			b, _ := frame.Encode(2000, []byte("hello"))
			Expect(client.WriteMsg(b)).To(Succeed())

			_ = server.SetReadDeadline(time.Now().Add(time.Second))
			mt, got, err := server.ReadMessage()
			Expect(err).ToNot(HaveOccurred())
			Expect(mt).To(Equal(websocket.BinaryMessage))
			Expect(got).To(Equal([]byte{0, 0, 0, 9, 0, 0, 0x07, 0xD0, 'h', 'e', 'l', 'l', 'o'}))
		})

		It("should keep write order", func() {
			for i := 0; i < 100; i++ {
				Expect(client.WriteMsg([]byte{byte(i)})).To(Succeed())
			}
			_ = server.SetReadDeadline(time.Now().Add(time.Second))
			for i := 0; i < 100; i++ {
				_, got, err := server.ReadMessage()
				Expect(err).ToNot(HaveOccurred())
				Expect(got).To(Equal([]byte{byte(i)}))
			}
		})

		It("should read binary and text messages", func() {
			Expect(server.WriteMessage(websocket.BinaryMessage, []byte("bin"))).To(Succeed())
			Expect(server.WriteMessage(websocket.TextMessage, []byte("txt"))).To(Succeed())
			b, err := client.ReadMsg()
			Expect(err).ToNot(HaveOccurred())
			Expect(string(b)).To(Equal("bin"))
			b, err = client.ReadMsg()
			Expect(err).ToNot(HaveOccurred())
			Expect(string(b)).To(Equal("txt"))
		})

		It("should report peer close", func() {
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye")
			Expect(server.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))).To(Succeed())
			_, err := client.ReadMsg()
			Expect(errors.Is(err, network.ErrPeerClosed)).To(BeTrue())
			Expect(client.State()).To(Equal(network.Disconnected))
		})

		It("should send a close frame on disconnect", func() {
			client.Disconnect()
			client.Disconnect()
			Expect(client.State()).To(Equal(network.Disconnected))

			_ = server.SetReadDeadline(time.Now().Add(time.Second))
			_, _, err := server.ReadMessage()
			Expect(websocket.IsCloseError(err, websocket.CloseNormalClosure)).To(BeTrue())
			Expect(errors.Is(client.WriteMsg([]byte{1}), network.ErrNotConnected)).To(BeTrue())
		})
	})

	Describe("receive loop", func() {
		It("should reconnect after the server drops", func() {
			var (
				mu     sync.Mutex
				frames []frame.Frame
			)
			count := func() int {
				mu.Lock()
				defer mu.Unlock()
				return len(frames)
			}
			r := &network.Receiver{
				Transport: client,
				Reconnect: true,
				BackOff:   network.NewBackOff(10*time.Millisecond, 50*time.Millisecond),
				Sink: func(f frame.Frame) {
					mu.Lock()
					frames = append(frames, f)
					mu.Unlock()
				},
			}
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			// 没有先Connect，由接收循环负责连接
			go func() {
				r.Run(ctx, host, port)
				close(done)
			}()

			var server *websocket.Conn
			Eventually(conns).Should(Receive(&server))
			b, _ := frame.Encode(2001, []byte(`{"round":1}`))
			Expect(server.WriteMessage(websocket.BinaryMessage, b)).To(Succeed())
			Eventually(count).Should(Equal(1))

			_ = server.Close()
			Eventually(conns).Should(Receive(&server))
			defer server.Close()
			Expect(server.WriteMessage(websocket.BinaryMessage, append(b, b...))).To(Succeed())
			Eventually(count).Should(Equal(3))

			cancel()
			client.Disconnect()
			Eventually(done).Should(BeClosed())
		})
	})
})
