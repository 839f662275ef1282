package services

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	failedLoginWindow    = 10 * time.Minute
	failedLoginThreshold = 5
	alertCooldown        = time.Hour
	maxAlerts            = 100
)

// SecurityAlert is raised when one address keeps failing to sign in
type SecurityAlert struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip"`
	Reason    string    `json:"reason"`
}

// LoginMonitor counts failed admin sign-ins per address and alerts the team once an
// address crosses the threshold. Alerts for one address are sent at most once an hour.
type LoginMonitor struct {
	log    *zap.Logger
	mailer *Mailer
	to     string
	now    func() time.Time

	mu           sync.Mutex
	failedLogins map[string][]time.Time
	alertedIPs   map[string]time.Time
	alerts       []SecurityAlert
}

// NewLoginMonitor alerts through mailer to the address to; an empty to only logs
func NewLoginMonitor(mailer *Mailer, to string, log *zap.Logger) *LoginMonitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginMonitor{
		log:          log,
		mailer:       mailer,
		to:           to,
		now:          time.Now,
		failedLogins: make(map[string][]time.Time),
		alertedIPs:   make(map[string]time.Time),
	}
}

// TrackFailedLogin records a failure from ip and reports whether it raised an alert
func (m *LoginMonitor) TrackFailedLogin(ip string) bool {
	m.mu.Lock()
	now := m.now()
	windowStart := now.Add(-failedLoginWindow)

	attempts := append(m.failedLogins[ip], now)
	recent := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}
	m.failedLogins[ip] = recent

	if len(recent) < failedLoginThreshold {
		m.mu.Unlock()
		return false
	}
	if last, ok := m.alertedIPs[ip]; ok && now.Sub(last) < alertCooldown {
		m.mu.Unlock()
		return false
	}

	alert := SecurityAlert{Timestamp: now, IP: ip, Reason: "Multiple failed admin sign-ins"}
	m.alertedIPs[ip] = now
	m.alerts = append([]SecurityAlert{alert}, m.alerts...)
	if len(m.alerts) > maxAlerts {
		m.alerts = m.alerts[:maxAlerts]
	}
	m.mu.Unlock()

	m.log.Warn("security alert", zap.String("ip", ip), zap.String("reason", alert.Reason), zap.Int("attempts", len(recent)))
	if m.mailer != nil && m.to != "" {
		go m.sendAlert(alert, len(recent))
	}
	return true
}

func (m *LoginMonitor) sendAlert(alert SecurityAlert, attempts int) {
	email := &Email{
		To:      []string{m.to},
		Subject: "Security alert: " + alert.Reason,
		TextBody: fmt.Sprintf("%s\n\nIP address: %s\nAttempts in the last %s: %d\nTime: %s\n",
			alert.Reason, alert.IP, failedLoginWindow, attempts, alert.Timestamp.UTC().Format(time.RFC1123)),
	}
	if err := m.mailer.Send(email); err != nil {
		m.log.Error("failed to send security alert", zap.Error(err))
	}
}

// RecentAlerts returns alerts newest first
func (m *LoginMonitor) RecentAlerts() []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SecurityAlert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Prune drops counters and cooldowns that have run out
func (m *LoginMonitor) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for ip, attempts := range m.failedLogins {
		if len(attempts) == 0 || now.Sub(attempts[len(attempts)-1]) > failedLoginWindow {
			delete(m.failedLogins, ip)
		}
	}
	for ip, last := range m.alertedIPs {
		if now.Sub(last) > alertCooldown {
			delete(m.alertedIPs, ip)
		}
	}
}
