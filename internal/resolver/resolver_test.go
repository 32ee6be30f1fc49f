package resolver

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestLookupHostDeliversResult(t *testing.T) {
	r := New(&net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			return nil, context.DeadlineExceeded
		},
	})

	done := make(chan Result, 1)
	r.LookupHost("sess1", "example.invalid", time.Second, func(res Result) {
		done <- res
	})

	select {
	case res := <-done:
		if res.Err == nil {
			t.Error("expected an error from the stub dialer")
		}
		if res.Request != "example.invalid" {
			t.Errorf("Request = %q", res.Request)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lookup completion")
	}
}

func TestDelAllCancelsPending(t *testing.T) {
	r := New(&net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})

	done := make(chan Result, 1)
	r.LookupHost("sess1", "slow.invalid", 10*time.Second, func(res Result) {
		done <- res
	})

	time.Sleep(20 * time.Millisecond)
	r.DelAll("sess1")

	select {
	case res := <-done:
		if res.Err == nil {
			t.Error("expected cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cancelled lookup to complete")
	}
}
