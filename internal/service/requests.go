package service

// RegistrationRequest is the device check-in payload. Optional fields
// are pointers: a field only overwrites stored data when it is present
// and non-null in the request.
type RegistrationRequest struct {
	MAC      *string `json:"mac"`
	UDID     string  `json:"udid"`
	Owner    string  `json:"owner"`
	Firmware *string `json:"firmware"`
	Version  *string `json:"version"`
	Platform *string `json:"platform"`
	Push     *string `json:"push"`
	Alias    *string `json:"alias"`
	Checksum *string `json:"checksum"`
}

// Registration is the response body of the registration endpoint.
// The update fields (URL through Checksum) are only populated when
// Status is "FIRMWARE_UPDATE".
type Registration struct {
	Success    bool   `json:"success"`
	Status     string `json:"status"`
	Owner      string `json:"owner,omitempty"`
	Alias      string `json:"alias,omitempty"`
	UDID       string `json:"udid,omitempty"`
	AutoUpdate bool   `json:"auto_update"`
	URL        string `json:"url,omitempty"`
	MAC        string `json:"mac,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Version    string `json:"version,omitempty"`
	Checksum   string `json:"checksum,omitempty"`
}

// RegistrationResult wraps Registration in the device-protocol
// envelope.
type RegistrationResult struct {
	Registration Registration `json:"registration"`
}

// FirmwareRequest is the firmware fetch payload. OTT requests a
// deferred one-time-token delivery instead of an immediate transfer;
// Forced delivers even when the device is already current.
type FirmwareRequest struct {
	MAC      string `json:"mac"`
	UDID     string `json:"udid"`
	Owner    string `json:"owner"`
	Checksum string `json:"checksum,omitempty"`
	Commit   string `json:"commit,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Forced   bool   `json:"forced,omitempty"`
	OTT      bool   `json:"ott,omitempty"`
}

// FileArtifact is one file of a multi-file firmware bundle.
type FileArtifact struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Delivery is the outcome of a firmware fetch: exactly one of OTT,
// Payload or Files is populated on success; Status carries the
// machine-readable code either way.
type Delivery struct {
	Success bool           `json:"success"`
	Status  string         `json:"status"`
	OTT     string         `json:"ott,omitempty"`
	Payload []byte         `json:"-"`
	Files   []FileArtifact `json:"files,omitempty"`
}

// DeviceChanges is the operator-side partial update for a device.
// Nil fields are left untouched.
type DeviceChanges struct {
	UDID        string  `json:"udid"`
	Alias       *string `json:"alias"`
	AutoUpdate  *bool   `json:"auto_update"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Tags        *string `json:"tags"`
}
