package domain

import "time"

const (
	TokenTypeNative  = "native"
	TokenTypeManaged = "managed"
)

// PushIdentity is the durable token and metadata needed to address a device
// for push delivery. A later successful acquisition with a different token
// value supersedes the stored one.
type PushIdentity struct {
	Token      string    `json:"token" db:"push_token"`
	TokenType  string    `json:"token_type" db:"push_token_type"`
	Platform   string    `json:"platform" db:"push_platform"`
	AcquiredAt time.Time `json:"acquired_at" db:"push_acquired_at"`
}

// PlatformCapabilities describes what the requesting device supports,
// gathered client-side and passed to the token acquirer.
type PlatformCapabilities struct {
	Platform             string `json:"platform"`
	SupportsNativeTokens bool   `json:"supports_native_tokens"`
	DeviceToken          string `json:"device_token"`
	ProjectID            string `json:"project_id"`
	LegacyExperienceID   string `json:"legacy_experience_id"`
}
