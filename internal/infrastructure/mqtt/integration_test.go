//go:build integration

package mqtt

import (
	"encoding/json"
	"testing"
	"time"
)

// Requires a broker at 127.0.0.1:1883:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func TestIntegration_RefreshAndActions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "minefleet-int-actions"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	refreshed := make(chan struct{}, 1)
	if err := client.OnRefresh(func() { refreshed <- struct{}{} }); err != nil {
		t.Fatalf("OnRefresh() error = %v", err)
	}

	actions := make(chan []byte, 1)
	err = client.Subscribe(Topics{}.AllActions(), 1, func(_ string, payload []byte) error {
		actions <- payload
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(Topics{}.TelemetryRefresh(), []byte("{}"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Error("refresh handler not called")
	}

	if err := client.PublishAction("reboot", map[string][]string{"devices": {"m1"}}); err != nil {
		t.Fatalf("PublishAction() error = %v", err)
	}
	select {
	case payload := <-actions:
		var got map[string][]string
		if err := json.Unmarshal(payload, &got); err != nil || got["devices"][0] != "m1" {
			t.Errorf("action payload = %s, %v", payload, err)
		}
	case <-time.After(2 * time.Second):
		t.Error("action not received")
	}
}
