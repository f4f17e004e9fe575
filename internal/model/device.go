package model

import "time"

// Device represents a reservable lab device and its remote-control endpoints.
type Device struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	DisplayName string `gorm:"size:256;not null" json:"display_name"`

	// Named network endpoints, all optional. Managed by admins only.
	PCIP         string `gorm:"column:pc_ip;size:64" json:"pc_ip,omitempty"`
	RutomatrixIP string `gorm:"column:rutomatrix_ip;size:64" json:"rutomatrix_ip,omitempty"`
	Pulse1IP     string `gorm:"column:pulse1_ip;size:64" json:"pulse1_ip,omitempty"`
	CT1IP        string `gorm:"column:ct1_ip;size:64" json:"ct1_ip,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
