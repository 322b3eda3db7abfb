package daemon

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"ripline/internal/logging"
)

// A drive usually emits several change events while a disc spins up.
const defaultDebounce = 10 * time.Second

// discHandler is invoked once per disc insertion on the watched drive.
type discHandler func(ctx context.Context, device string) error

// netlinkMonitor listens for udev netlink events and reports disc
// insertions on one drive.
type netlinkMonitor struct {
	logger   *slog.Logger
	handler  discHandler
	device   string
	debounce time.Duration
	now      func() time.Time

	mu       sync.Mutex
	conn     *netlink.UEventConn
	quit     chan struct{}
	running  bool
	lastSeen time.Time
}

// newNetlinkMonitor returns nil when no drive is configured.
func newNetlinkMonitor(device string, logger *slog.Logger, handler discHandler) *netlinkMonitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	return &netlinkMonitor{
		logger:   logging.NewComponentLogger(logger, "netlink-monitor"),
		handler:  handler,
		device:   device,
		debounce: defaultDebounce,
		now:      time.Now,
	}
}

// Start begins listening for udev netlink events. A socket failure is logged
// and otherwise ignored: the API keeps working without insertion events.
func (m *netlinkMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "disc insertions are not announced"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("netlink monitor started",
		logging.String(logging.FieldEventType, "netlink_monitor_started"),
		logging.String(logging.FieldDevice, m.device),
	)
	return nil
}

// Stop shuts down the netlink monitor.
func (m *netlinkMonitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("netlink monitor stopped",
		logging.String(logging.FieldEventType, "netlink_monitor_stopped"),
	)
}

// Running reports whether the netlink monitor is active.
func (m *netlinkMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *netlinkMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(ctx, uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "disc insertions may be missed"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=block, ID_CDROM=1, ID_CDROM_MEDIA=1,
// ACTION=change|add.
func (m *netlinkMonitor) buildMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (m *netlinkMonitor) handleEvent(ctx context.Context, uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if devname != m.device {
		m.logger.Debug("ignoring event for non-configured device",
			logging.String(logging.FieldDevice, devname),
			logging.String("configured_device", m.device),
		)
		return
	}
	if !m.admit() {
		m.logger.Debug("ignoring repeated disc event", logging.String(logging.FieldDevice, devname))
		return
	}

	m.logger.Info("disc media detected via netlink",
		logging.String(logging.FieldEventType, "netlink_disc_detected"),
		logging.String(logging.FieldDevice, devname),
		logging.String("action", string(uevent.Action)),
	)
	if m.handler == nil {
		return
	}
	if err := m.handler(ctx, devname); err != nil {
		logging.WarnWithContext(m.logger, "disc insertion handler failed", "netlink_handler_failed",
			logging.Error(err),
			logging.String(logging.FieldDevice, devname),
			logging.String(logging.FieldImpact, "disc insertion not announced"),
		)
	}
}

// admit reports whether an event falls outside the debounce window of the
// previous admitted one.
func (m *netlinkMonitor) admit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !m.lastSeen.IsZero() && now.Sub(m.lastSeen) < m.debounce {
		return false
	}
	m.lastSeen = now
	return true
}

// extractDeviceName gets the device path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}

	// DEVPATH looks like /devices/pci.../block/sr0
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
