package domain

import "time"

// DeviceSession is the last-known metadata for a (principal, device)
// pairing. It is presence tracking, not an audit log: every authenticated
// login or registration overwrites the record for that device.
type DeviceSession struct {
	PrincipalID  string    `json:"principal_id"`
	DeviceID     string    `json:"device_id"`
	DeviceName   string    `json:"device_name,omitempty"`
	Platform     string    `json:"platform,omitempty"`
	AppVersion   string    `json:"app_version,omitempty"`
	LastIP       string    `json:"last_ip,omitempty"`
	LastActiveAt time.Time `json:"last_active_at"`
}
