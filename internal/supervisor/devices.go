// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

package supervisor

import (
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/fritzcall/internal/supervisor/services"
	"github.com/tomtom215/fritzcall/internal/sync"
)

// DeviceServices describes what AddDevice put under supervision.
type DeviceServices struct {
	Token suture.ServiceToken
	Names []string
}

// AddDevice supervises one device's call monitor reader and snapshot
// forwarder under a supervisor of their own. The history poller joins them
// when configured; otherwise a retention sweeper keeps the store bounded. A reader whose reconnect policy is exhausted stays down;
// the poller keeps the device's history current regardless.
func (t *SupervisorTree) AddDevice(d *sync.Device) DeviceServices {
	sup := suture.New("device/"+d.ID, t.config.supervisorSpec())

	svcs := []*services.DeviceService{
		services.NewDeviceService("monitor-reader/"+d.ID, d.Reader, sync.ErrReconnectExhausted),
		services.NewDeviceService("snapshot-forwarder/"+d.ID, services.RunFunc(d.Forward)),
	}
	if d.Poller != nil {
		svcs = append(svcs, services.NewDeviceService("history-poller/"+d.ID, d.Poller))
	} else {
		svcs = append(svcs, services.NewDeviceService("retention-sweeper/"+d.ID, d.Sweeper))
	}

	names := make([]string, 0, len(svcs))
	for _, svc := range svcs {
		sup.Add(svc)
		names = append(names, svc.String())
	}

	token := t.ingest.Add(sup)
	t.mu.Lock()
	t.devices[d.ID] = token
	t.mu.Unlock()

	return DeviceServices{Token: token, Names: names}
}

// AddDevices supervises every device of m.
func (t *SupervisorTree) AddDevices(m *sync.Manager) {
	for _, d := range m.Devices() {
		t.AddDevice(d)
	}
}

// RemoveDevice stops every service of the device with the given id.
func (t *SupervisorTree) RemoveDevice(id string) error {
	t.mu.Lock()
	token, ok := t.devices[id]
	delete(t.devices, id)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("device %q is not supervised", id)
	}
	return t.ingest.Remove(token)
}
