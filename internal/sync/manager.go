// Fritzcall - Call Monitor and History Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fritzcall

/*
manager.go - Device Manager

The Manager owns one Device per configured Fritz!Box. A Device bundles:
  - Store: the merged call and voicemail state
  - Tracker: live connection state fed by every monitor event
  - Reader: the call monitor stream (live source)
  - Poller: the TR-064 history poller (history source, optional)
  - Sweeper: the retention sweeper of a device without a Poller

Forward pushes store snapshots, live state and reader state to the
WebSocket hub. Every record that entered the store from either source is
queued for publishing; a per-device goroutine drains the queue so a slow
bus never stalls the reader or the poller.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fritzcall/internal/logging"
	"github.com/tomtom215/fritzcall/internal/models"
	"github.com/tomtom215/fritzcall/internal/store"
)

// WebSocket message types pushed by Forward.
const (
	MessageSnapshot    = "snapshot"
	MessageLiveState   = "live_state"
	MessageReaderState = "reader_state"
)

var (
	// ErrUnknownDevice is returned for a device ID that was never added.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrDuplicateDevice is returned when a device ID is added twice.
	ErrDuplicateDevice = errors.New("device already registered")
)

// WebSocketHub broadcasts messages to frontend clients.
// Implemented by internal/websocket.Hub.
type WebSocketHub interface {
	BroadcastJSON(messageType string, data interface{})
}

// DeviceUpdate is the payload of every message Forward broadcasts.
type DeviceUpdate struct {
	Device  string      `json:"device"`
	Payload interface{} `json:"payload"`
}

// DeviceID lets the hub route the update to clients watching Device.
func (u DeviceUpdate) DeviceID() string { return u.Device }

// DeviceConfig describes one Fritz!Box.
type DeviceConfig struct {
	ID          string
	Name        string
	Host        string
	MonitorPort int

	ReadTimeout time.Duration
	Reconnect   ReconnectPolicy

	PollInterval     time.Duration
	Services         []string
	VoicemailEnabled bool

	Retention        time.Duration
	Location         *time.Location
	CallNumberFields []int
}

// Device is one monitored Fritz!Box.
type Device struct {
	ID   string
	Name string
	Host string

	Store   *store.Store
	Tracker *LiveTracker
	Reader  *StreamReader
	Poller  *HistoryPoller    // nil when no TR-064 caller is configured
	Sweeper *RetentionSweeper // nil when Poller is set

	logger    zerolog.Logger
	hub       WebSocketHub
	publisher func() EventPublisher

	events   chan pendingEvents
	stop     chan struct{}
	stopOnce sync.Once
}

// Manager owns every configured Device.
type Manager struct {
	mu        sync.RWMutex
	devices   map[string]*Device
	order     []string
	hub       WebSocketHub
	publisher EventPublisher
}

// NewManager creates an empty manager. hub may be nil.
func NewManager(hub WebSocketHub) *Manager {
	return &Manager{
		devices: make(map[string]*Device),
		hub:     hub,
	}
}

// SetEventPublisher sets the publisher used for call events. It may be
// called after devices were added.
func (m *Manager) SetEventPublisher(pub EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publisher = pub
}

func (m *Manager) eventPublisher() EventPublisher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publisher
}

// AddDevice builds and registers a Device. caller may be nil to run the
// device in monitor-only mode.
func (m *Manager) AddDevice(cfg DeviceConfig, dialer Dialer, caller ActionCaller) (*Device, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("device %s: host is required", cfg.ID)
	}
	if dialer == nil {
		dialer = TCPDialer{}
	}
	port := cfg.MonitorPort
	if port == 0 {
		port = DefaultMonitorPort
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[cfg.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateDevice, cfg.ID)
	}

	d := &Device{
		ID:        cfg.ID,
		Name:      cfg.Name,
		Host:      cfg.Host,
		Store:     store.New(store.Config{Retention: cfg.Retention}),
		logger:    logging.WithDevice("manager", cfg.ID),
		hub:       m.hub,
		publisher: m.eventPublisher,
		events:    make(chan pendingEvents, eventQueueSize),
		stop:      make(chan struct{}),
	}
	if d.Name == "" {
		d.Name = cfg.ID
	}

	d.Tracker = NewLiveTracker(func(s models.LiveState) {
		d.broadcast(MessageLiveState, s)
	})

	parser := NewParser(ParserConfig{Location: cfg.Location, CallNumberFields: cfg.CallNumberFields})
	d.Reader = NewStreamReader(ReaderConfig{
		DeviceID:    cfg.ID,
		Address:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		ReadTimeout: cfg.ReadTimeout,
		Reconnect:   cfg.Reconnect,
	}, dialer, parser, d.Store)
	d.Reader.SetCallbacks(ReaderCallbacks{
		OnEvent: d.Tracker.Apply,
		OnRecord: func(rec models.CallRecord, res store.InsertResult) {
			d.enqueueEvents([]models.CallRecord{rec}, res)
		},
		OnStateChange: d.onReaderState,
	})

	if caller != nil {
		d.Poller = NewHistoryPoller(PollerConfig{
			DeviceID:         cfg.ID,
			Interval:         cfg.PollInterval,
			Services:         cfg.Services,
			VoicemailEnabled: cfg.VoicemailEnabled,
		}, caller, d.Store, NewHistoryParser(cfg.Location))
		d.Poller.OnResult(func(res PollResult) {
			d.enqueueEvents(res.Added, store.Added)
			d.enqueueEvents(res.Replaced, store.Replaced)
		})
	} else {
		d.Sweeper = NewRetentionSweeper(cfg.ID, cfg.PollInterval, d.Store)
	}

	go d.publishLoop()

	m.devices[cfg.ID] = d
	m.order = append(m.order, cfg.ID)
	return d, nil
}

// Devices returns the devices in registration order.
func (m *Manager) Devices() []*Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Device, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.devices[id])
	}
	return out
}

// Device looks up a device by ID.
func (m *Manager) Device(id string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return d, nil
}

// Close closes every device's store, ending all snapshot subscriptions,
// and stops the publish goroutines. Queued events are discarded.
func (m *Manager) Close() {
	for _, d := range m.Devices() {
		d.stopOnce.Do(func() { close(d.stop) })
		d.Store.Close()
	}
}

func (d *Device) onReaderState(s ReaderState) {
	// Connections tracked before a drop will never see their DISCONNECT.
	if s == StateReconnecting || s == StateFailed || s == StateStopped {
		d.Tracker.Reset(time.Now())
	}
	d.broadcast(MessageReaderState, map[string]string{"state": s.String()})
}

func (d *Device) broadcast(msgType string, payload interface{}) {
	if d.hub == nil {
		return
	}
	d.hub.BroadcastJSON(msgType, DeviceUpdate{Device: d.ID, Payload: payload})
}

// Forward pushes every store snapshot to the hub until ctx is canceled or
// the store is closed.
func (d *Device) Forward(ctx context.Context) error {
	snaps, unsubscribe := d.Store.Subscribe()
	defer unsubscribe()

	d.logger.Debug().Msg("Snapshot forwarder started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			d.broadcast(MessageSnapshot, snap)
		}
	}
}

// Refresh runs one history poll cycle immediately.
func (d *Device) Refresh(ctx context.Context) (PollResult, error) {
	if d.Poller == nil {
		return PollResult{}, fmt.Errorf("device %s: history polling is not configured", d.ID)
	}
	return d.Poller.PollOnce(ctx)
}

// Info summarizes the device for the API.
func (d *Device) Info() models.DeviceInfo {
	info := models.DeviceInfo{
		ID:          d.ID,
		Name:        d.Name,
		Host:        d.Host,
		ReaderState: d.Reader.State().String(),
		Counts:      d.Store.Snapshot().Counts(),
	}
	if err := d.Reader.LastError(); err != nil {
		info.LastError = err.Error()
	}
	if d.Poller != nil {
		if res := d.Poller.LastResult(); res != nil {
			at := res.Started
			info.LastPoll = &at
			if res.Err != nil {
				info.LastError = res.Err.Error()
			}
		}
	}
	return info
}
