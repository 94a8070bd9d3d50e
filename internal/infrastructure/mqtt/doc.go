// Package mqtt connects the fleet service to the site MQTT broker.
//
// The broker carries two things for the dashboard core: refresh requests
// (minefleet/telemetry/refresh) that trigger an immediate backend poll, and
// bulk action intents for the current selection, published on
// minefleet/actions/<action> for the actuator services to execute.
//
// The client reconnects automatically, restores its subscriptions after a
// reconnect and maintains a retained online/offline status with a Last Will.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.OnRefresh(func() { poller.TriggerNow() })
package mqtt
