package tcp_test

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/YiuTerran/go-netclient/network"
	"github.com/YiuTerran/go-netclient/network/frame"
	"github.com/YiuTerran/go-netclient/network/tcp"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		l      net.Listener
		host   string
		port   int
		client *tcp.Client
	)

	BeforeEach(func() {
		l, host, port = listen()
		client = tcp.NewClient(tcp.ReadTimeout(time.Second))
	})

	AfterEach(func() {
		client.Close()
		_ = l.Close()
	})

	Describe("connect", func() {
		It("should be connected after dial", func() {
			accepted := acceptOne(l)
			Expect(client.Connect(context.Background(), host, port)).To(Succeed())
			Expect(client.State()).To(Equal(network.Connected))
			Expect(client.Name()).To(Equal("tcp"))
			server := <-accepted
			defer server.Close()
		})

		It("should stay disconnected when refused", func() {
			_ = l.Close()
			err := client.Connect(context.Background(), host, port)
			Expect(err).To(HaveOccurred())
			Expect(client.State()).To(Equal(network.Disconnected))
		})

		It("should not connect after close", func() {
			client.Close()
			err := client.Connect(context.Background(), host, port)
			Expect(errors.Is(err, net.ErrClosed)).To(BeTrue())
		})
	})

	Describe("read and write", func() {
		var server net.Conn

		BeforeEach(func() {
			accepted := acceptOne(l)
			Expect(client.Connect(context.Background(), host, port)).To(Succeed())
			server = <-accepted
		})

		AfterEach(func() {
			_ = server.Close()
		})

		It("should write the exact frame bytes", func() {
			b, err := frame.Encode(2000, []byte("hello"))
			Expect(err).ToNot(HaveOccurred())
			Expect(client.WriteMsg(b)).To(Succeed())

			got := make([]byte, 13)
			_ = server.SetReadDeadline(time.Now().Add(time.Second))
			_, err = io.ReadFull(server, got)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal([]byte{0, 0, 0, 9, 0, 0, 0x07, 0xD0, 'h', 'e', 'l', 'l', 'o'}))
		})

		It("should read what the server sends", func() {
			_, err := server.Write([]byte("chunk"))
			Expect(err).ToNot(HaveOccurred())
			Eventually(func() string {
				b, _ := client.ReadMsg()
				return string(b)
			}).Should(Equal("chunk"))
		})

		It("should return no data on read timeout", func() {
			c := tcp.NewClient(tcp.ReadTimeout(20 * time.Millisecond))
			defer c.Close()
			accepted := acceptOne(l)
			Expect(c.Connect(context.Background(), host, port)).To(Succeed())
			s := <-accepted
			defer s.Close()

			b, err := c.ReadMsg()
			Expect(err).ToNot(HaveOccurred())
			Expect(b).To(BeNil())
			Expect(c.State()).To(Equal(network.Connected))
		})

		It("should mark disconnected when the peer closes", func() {
			_ = server.Close()
			var err error
			Eventually(func() error {
				_, err = client.ReadMsg()
				return err
			}).Should(HaveOccurred())
			Expect(errors.Is(err, network.ErrPeerClosed)).To(BeTrue())
			Expect(client.State()).To(Equal(network.Disconnected))
		})

		It("should unblock a pending read on disconnect", func() {
			wg := new(sync.WaitGroup)
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := client.ReadMsg()
				Expect(err).To(HaveOccurred())
			}()
			time.Sleep(20 * time.Millisecond)
			client.Disconnect()
			client.Disconnect()
			wg.Wait()
			Expect(client.State()).To(Equal(network.Disconnected))
		})

		It("should refuse writes after disconnect", func() {
			client.Disconnect()
			err := client.WriteMsg([]byte{1})
			Expect(errors.Is(err, network.ErrNotConnected)).To(BeTrue())
			_, err = client.ReadMsg()
			Expect(errors.Is(err, network.ErrNotConnected)).To(BeTrue())
		})
	})

	Describe("receive loop", func() {
		It("should reassemble split frames and reconnect after the server drops", func() {
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

			accepted := acceptOne(l)
			Expect(client.Connect(context.Background(), host, port)).To(Succeed())
			server := <-accepted

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				r.Run(ctx, host, port)
				close(done)
			}()

			b, _ := frame.Encode(2000, []byte("hello"))
			_, _ = server.Write(b[:6])
			time.Sleep(10 * time.Millisecond)
			_, _ = server.Write(b[6:])
			Eventually(count).Should(Equal(1))

			// 服务端断开后接收循环自动重连
			accepted = acceptOne(l)
			_ = server.Close()
			server = <-accepted
			defer server.Close()
			Eventually(client.State).Should(Equal(network.Connected))

			_, _ = server.Write(b)
			Eventually(count).Should(Equal(2))

			cancel()
			client.Disconnect()
			Eventually(done).Should(BeClosed())
			mu.Lock()
			defer mu.Unlock()
			Expect(frames[1].MsgID).To(Equal(int32(2000)))
			Expect(string(frames[1].Payload)).To(Equal("hello"))
		})
	})
})
