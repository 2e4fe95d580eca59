package redis

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/glimpse/internal/logger"
)

func TestBackoffCaps(t *testing.T) {
	b := &backoff{wait: time.Second, max: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.next(); got != w {
			t.Errorf("next() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := ConnectOptions{
		Addr:           "localhost:6379",
		ConnectTimeout: time.Second,
		RetryInterval:  time.Millisecond,
		MaxWait:        time.Millisecond,
		PingTimeout:    time.Millisecond,
	}
	if err := valid.validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ConnectOptions)
	}{
		{"empty addr", func(o *ConnectOptions) { o.Addr = "" }},
		{"zero connect timeout", func(o *ConnectOptions) { o.ConnectTimeout = 0 }},
		{"zero retry", func(o *ConnectOptions) { o.RetryInterval = 0 }},
		{"zero max wait", func(o *ConnectOptions) { o.MaxWait = 0 }},
		{"zero ping", func(o *ConnectOptions) { o.PingTimeout = 0 }},
		{"negative threshold", func(o *ConnectOptions) { o.WarnThreshold = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid
			tt.mutate(&o)
			if err := o.validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConnectGivesUp(t *testing.T) {
	opts := ConnectOptions{
		Addr:           "127.0.0.1:1",
		DialTimeout:    50 * time.Millisecond,
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
	}

	client, err := Connect(context.Background(), opts, logger.Nop())
	if err == nil {
		t.Fatal("expected an error connecting to a closed port")
	}
	if client != nil {
		t.Error("client should be nil on failure")
	}
}
