// Package smart monitors NVMe SMART health telemetry per storage
// device, classifying overall health and raising alerts.
package smart

import (
	"fmt"
	"sync"
	"time"

	"github.com/claudefs/claudefs/internal/domain"
)

// CriticalWarning is a bitfield of NVMe critical warning flags.
type CriticalWarning uint8

const (
	CriticalWarningSpare          CriticalWarning = 1 << 0
	CriticalWarningTemperature    CriticalWarning = 1 << 1
	CriticalWarningReliability    CriticalWarning = 1 << 2
	CriticalWarningReadOnly       CriticalWarning = 1 << 3
	CriticalWarningVolatileBackup CriticalWarning = 1 << 4
)

// Log is one device's NVMe SMART telemetry snapshot.
type Log struct {
	DeviceID            string
	TemperatureKelvin   float64
	PercentUsed         float64
	AvailableSparePct   float64
	MediaErrors         uint64
	UnsafeShutdowns     uint64
	CriticalWarningBits CriticalWarning
}

// HealthLevel is the overall classification of a device's health.
type HealthLevel int

const (
	Healthy HealthLevel = iota
	Warning
	Critical
	Failed
)

func (h HealthLevel) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// HealthStatus is the evaluated health of a device, with reasons for
// any non-Healthy classification.
type HealthStatus struct {
	Level   HealthLevel
	Reasons []string
}

// Config tunes the monitor's thresholds and poll cadence.
type Config struct {
	PollInterval            time.Duration
	TempWarningKelvin       float64
	TempCriticalKelvin      float64
	SpareWarningPercent     float64
	EnduranceWarningPercent float64
	UnsafeShutdownThreshold uint64
}

// DefaultConfig returns sensible SMART monitor defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:            60 * time.Second,
		TempWarningKelvin:       343.15, // 70C
		TempCriticalKelvin:      353.15, // 80C
		SpareWarningPercent:     20,
		EnduranceWarningPercent: 80,
		UnsafeShutdownThreshold: 10,
	}
}

// criticalBitReasons maps a single critical-warning bit to its reason
// string, in evaluation order.
var criticalBitReasons = []struct {
	bit    CriticalWarning
	reason string
}{
	{CriticalWarningTemperature, "critical: temperature over threshold"},
	{CriticalWarningSpare, "critical: available spare below threshold"},
	{CriticalWarningReliability, "critical: reliability degraded"},
	{CriticalWarningReadOnly, "critical: device in read-only mode"},
	{CriticalWarningVolatileBackup, "critical: volatile memory backup failed"},
}

// Evaluate classifies log per the monitor's rules, in order:
//  1. Any critical bit set -> Critical, with a reason per bit.
//  2. percent_used >= 100 -> Failed.
//  3. Otherwise collect warnings (temp, spare, endurance, media
//     errors, unsafe shutdowns); no warnings -> Healthy.
func (cfg Config) Evaluate(log Log) HealthStatus {
	if log.CriticalWarningBits != 0 {
		var reasons []string
		for _, cb := range criticalBitReasons {
			if log.CriticalWarningBits&cb.bit != 0 {
				reasons = append(reasons, cb.reason)
			}
		}
		return HealthStatus{Level: Critical, Reasons: reasons}
	}

	if log.PercentUsed >= 100 {
		return HealthStatus{Level: Failed, Reasons: []string{"percent_used reached 100%"}}
	}

	var warnings []string
	if log.TemperatureKelvin >= cfg.TempCriticalKelvin {
		warnings = append(warnings, fmt.Sprintf("temperature %.2fK at or above critical threshold %.2fK", log.TemperatureKelvin, cfg.TempCriticalKelvin))
	} else if log.TemperatureKelvin >= cfg.TempWarningKelvin {
		warnings = append(warnings, fmt.Sprintf("temperature %.2fK at or above warning threshold %.2fK", log.TemperatureKelvin, cfg.TempWarningKelvin))
	}
	if log.AvailableSparePct < cfg.SpareWarningPercent {
		warnings = append(warnings, fmt.Sprintf("available spare %.2f%% below warning threshold %.2f%%", log.AvailableSparePct, cfg.SpareWarningPercent))
	}
	if log.PercentUsed >= cfg.EnduranceWarningPercent {
		warnings = append(warnings, fmt.Sprintf("percent_used %.2f%% at or above endurance warning %.2f%%", log.PercentUsed, cfg.EnduranceWarningPercent))
	}
	if log.MediaErrors > 0 {
		warnings = append(warnings, fmt.Sprintf("%d media errors recorded", log.MediaErrors))
	}
	if log.UnsafeShutdowns > cfg.UnsafeShutdownThreshold {
		warnings = append(warnings, fmt.Sprintf("%d unsafe shutdowns exceeds threshold %d", log.UnsafeShutdowns, cfg.UnsafeShutdownThreshold))
	}

	if len(warnings) == 0 {
		return HealthStatus{Level: Healthy}
	}
	return HealthStatus{Level: Warning, Reasons: warnings}
}

// AlertSeverity mirrors HealthLevel for the alert ledger.
type AlertSeverity int

const (
	SeverityInfo AlertSeverity = iota
	SeverityWarning
	SeverityCritical
)

// Alert is one recorded health-transition event.
type Alert struct {
	Device    string
	Severity  AlertSeverity
	Message   string
	Timestamp time.Time
}

func severityFor(level HealthLevel) AlertSeverity {
	switch level {
	case Critical, Failed:
		return SeverityCritical
	case Warning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Monitor tracks the latest SMART log and health status per device,
// and accumulates an alert ledger across evaluations.
type Monitor struct {
	mu     sync.Mutex
	cfg    Config
	latest map[string]Log
	status map[string]HealthStatus
	alerts []Alert
}

// NewMonitor creates a monitor with the given configuration.
func NewMonitor(cfg Config) *Monitor {
	return &Monitor{
		cfg:    cfg,
		latest: make(map[string]Log),
		status: make(map[string]HealthStatus),
	}
}

// Poll records a fresh SMART log for a device, evaluates it, and
// returns the resulting status.
func (m *Monitor) Poll(log Log) HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := m.cfg.Evaluate(log)
	m.latest[log.DeviceID] = log
	m.status[log.DeviceID] = status
	return status
}

// Status returns the last evaluated status for device, or
// ErrDeviceUnknown if it has never been polled.
func (m *Monitor) Status(device string) (HealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.status[device]
	if !ok {
		return HealthStatus{}, fmt.Errorf("smart: status for %q: %w", device, domain.ErrDeviceUnknown)
	}
	return s, nil
}

// CheckAndAlert evaluates log, converts every reason into an Alert
// appended to the ledger, and returns the alerts raised this call.
func (m *Monitor) CheckAndAlert(log Log, now time.Time) []Alert {
	status := m.Poll(log)

	m.mu.Lock()
	defer m.mu.Unlock()

	var raised []Alert
	severity := severityFor(status.Level)
	for _, reason := range status.Reasons {
		a := Alert{Device: log.DeviceID, Severity: severity, Message: reason, Timestamp: now}
		raised = append(raised, a)
	}
	m.alerts = append(m.alerts, raised...)
	return raised
}

// Alerts returns the full alert ledger.
func (m *Monitor) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.alerts...)
}

// Devices returns the set of device ids ever polled.
func (m *Monitor) Devices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.latest))
	for id := range m.latest {
		out = append(out, id)
	}
	return out
}
