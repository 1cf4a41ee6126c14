/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package channel

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sentryd/privsep/wire"
)

func TestSendAndWaitRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	cli := NewClient(clientConn, nil)
	srv := NewServer(serverConn)

	go func() {
		id, msg, err := srv.Recv()
		if err != nil {
			return
		}
		if msg.Kind != wire.KindCall {
			t.Errorf("server got unexpected kind %v", msg.Kind)
			return
		}
		srv.Send(id, wire.NewRet(int64(43)))
	}()

	reply, err := cli.SendAndWait(context.Background(), wire.NewCall("add1", []interface{}{int64(42)}, nil), time.Second)
	if err != nil {
		t.Fatalf("send and wait: %v", err)
	}
	if reply.Kind != wire.KindRet || reply.Ret.Value.(int64) != 43 {
		t.Fatalf("unexpected reply: %#v", reply)
	}
}

func TestSendAndWaitTimeoutThenLateReplyDropped(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	cli := NewClient(clientConn, nil)
	srv := NewServer(serverConn)

	replyNow := make(chan struct{})
	go func() {
		id, _, err := srv.Recv()
		if err != nil {
			return
		}
		<-replyNow
		srv.Send(id, wire.NewRet(int64(99)))
	}()

	_, err := cli.SendAndWait(context.Background(), wire.NewCall("slow", nil, nil), 20*time.Millisecond)
	var te *TimeoutError
	if err == nil {
		t.Fatalf("expected timeout error, got nil")
	}
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %T: %v", err, err)
	}
	_ = te

	// release the late reply; the reader must drop it without fulfilling
	// anything (there is nothing left to fulfil -- if this were to panic
	// or hang, the test would time out).
	close(replyNow)
	time.Sleep(50 * time.Millisecond)

	cli.mu.Lock()
	outstanding := len(cli.outstanding)
	cli.mu.Unlock()
	if outstanding != 0 {
		t.Fatalf("expected no outstanding futures, got %d", outstanding)
	}
}

func TestOutOfBandDelivery(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	received := make(chan wire.Message, 1)
	cli := NewClient(clientConn, func(msg wire.Message) {
		received <- msg
	})
	srv := NewServer(serverConn)

	if err := srv.Send("", wire.NewLog(map[string]interface{}{"level": "WARN"})); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Kind != wire.KindLog {
			t.Fatalf("expected LOG, got %v", msg.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for OOB delivery")
	}

	_ = cli
}

func TestCloseFailsOutstandingFutures(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	cli := NewClient(clientConn, nil)
	srv := NewServer(serverConn)

	go func() {
		// consume the CALL then close the server's end, simulating the
		// helper process exiting without replying.
		srv.Recv()
		serverConn.Close()
	}()

	_, err := cli.SendAndWait(context.Background(), wire.NewCall("sleep", nil, nil), 2*time.Second)
	if err == nil {
		t.Fatalf("expected transport error, got nil")
	}
	if _, ok := err.(*TransportError); !ok {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
}

func TestConcurrentCallsInterleave(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	cli := NewClient(clientConn, nil)
	srv := NewServer(serverConn)

	const n = 20
	go func() {
		for i := 0; i < n; i++ {
			id, msg, err := srv.Recv()
			if err != nil {
				return
			}
			v := msg.Call.Args[0].(int64)
			go srv.Send(id, wire.NewRet(v+1))
		}
	}()

	errc := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			reply, err := cli.SendAndWait(context.Background(), wire.NewCall("add1", []interface{}{int64(i)}, nil), time.Second)
			if err != nil {
				errc <- err
				return
			}
			if reply.Ret.Value.(int64) != int64(i+1) {
				errc <- &ProtocolError{Reason: "mismatched reply"}
				return
			}
			errc <- nil
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errc; err != nil {
			t.Fatalf("concurrent call failed: %v", err)
		}
	}
}
