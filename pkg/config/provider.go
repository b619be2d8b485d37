package config

import "fmt"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDevices() ([]DeviceData, error)
	GetStorageConfig() (*StorageData, error)

	// IsReadOnly reports whether the provider can persist changes
	IsReadOnly() bool
	Close() error
}

// Connection types accepted for the device `type` key.
const (
	ConnTCP       = "tcp"
	ConnUDP       = "udp"
	ConnRestful   = "restful"
	ConnUSB       = "usb"
	ConnSNMP      = "snmp"
	ConnSimulator = "none"
)

// ConfigData represents the complete configuration structure
type ConfigData struct {
	// LogSuccess/LogFailure control the per-archive-interval log lines
	// ("N records received from X during archive interval").
	LogSuccess bool `json:"log_success"`
	LogFailure bool `json:"log_failure"`

	// ArchiveIntervalSecs is the length of the archive aggregation window.
	ArchiveIntervalSecs int `json:"archive_interval"`

	// StateDir holds the per-device present-weather state databases and
	// shutdown snapshots.
	StateDir string `json:"state_dir"`

	// Weathercodes, Visibility and Precipitation each name the device whose
	// readings supply the derived ww/wawa codes, the `visibility`
	// observation, and the `rain`/`rainRate` observations respectively.
	Weathercodes  string `json:"weathercodes"`
	Visibility    string `json:"visibility"`
	Precipitation string `json:"precipitation"`

	Devices []DeviceData `json:"devices"`
	Storage StorageData  `json:"storage,omitempty"`
	REST    *RESTData    `json:"rest,omitempty"`
}

// DeviceData holds configuration specific to one sensor device
type DeviceData struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	// Type is the connection type: tcp, udp, restful, usb, snmp or none
	// (simulator).
	Type string `json:"type"`

	// Model selects the telegram layout: ott-parsivel, ott-parsivel1,
	// ott-parsivel2, thies-lnm or generic. Generic devices must supply an
	// explicit field list.
	Model string `json:"model,omitempty"`

	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	SerialDevice string `json:"serial_device,omitempty"`
	Baud         int    `json:"baud,omitempty"`

	// TimeoutSecs bounds a single connect or read; Retries is the number of
	// consecutive failures tolerated before the backoff delay is escalated.
	TimeoutSecs       int `json:"timeout,omitempty"`
	Retries           int `json:"retries,omitempty"`
	QueryIntervalSecs int `json:"query_interval,omitempty"`

	// Prefix is prepended to every observation name of this device
	// (ott + rainRate -> ottRainRate).
	Prefix string `json:"prefix,omitempty"`

	// Telegram is the Parsivel-style telegram configuration string,
	// e.g. "%13;%01;%02;%03;%07;%08;%34;%12;%10;%11;%18;/r/n".
	Telegram        string `json:"telegram,omitempty"`
	FieldSeparator  string `json:"field_separator,omitempty"`
	RecordSeparator string `json:"record_separator,omitempty"`

	// SNMP settings (type: snmp)
	Community string `json:"community,omitempty"`

	// Fields is the explicit field list for devices that are not covered by
	// a built-in telegram layout, and the OID map for SNMP devices.
	Fields []FieldData `json:"fields,omitempty"`
}

// FieldData describes one telegram field or SNMP object
type FieldData struct {
	// Number is the Parsivel field number when the field list overrides the
	// built-in table; OID is the SNMP object identifier.
	Number int    `json:"number,omitempty"`
	OID    string `json:"oid,omitempty"`

	Name        string `json:"name"`
	Unit        string `json:"unit,omitempty"`
	Group       string `json:"group,omitempty"`
	Conversion  string `json:"conversion,omitempty"`
	SQLDatatype string `json:"sql_datatype,omitempty"`
	Description string `json:"description,omitempty"`
}

// StorageData holds the configuration for the storage backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
	SQLite      *SQLiteData      `json:"sqlite,omitempty"`
	MQTT        *MQTTData        `json:"mqtt,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type MQTTData struct {
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

// RESTData holds the configuration for the readings REST server
type RESTData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port"`
}

// Validate checks a device stanza for the connection parameters its type
// requires. Unknown connection types are rejected at load time rather than
// when the sensor starts.
func (d *DeviceData) Validate() error {
	switch d.Type {
	case ConnTCP:
		if d.Host == "" || d.Port == 0 {
			return fmt.Errorf("device [%s]: missing host and/or port for TCP connection", d.Name)
		}
	case ConnUDP:
		if d.Port == 0 {
			return fmt.Errorf("device [%s]: missing port for UDP connection", d.Name)
		}
	case ConnRestful:
		if d.Host == "" {
			return fmt.Errorf("device [%s]: missing URL for HTTP(S) connection", d.Name)
		}
	case ConnUSB:
		if d.SerialDevice == "" {
			return fmt.Errorf("device [%s]: missing device for USB connection", d.Name)
		}
	case ConnSNMP:
		if d.Host == "" {
			return fmt.Errorf("device [%s]: missing host for SNMP connection", d.Name)
		}
		if len(d.Fields) == 0 {
			return fmt.Errorf("device [%s]: SNMP device needs a fields list with OIDs", d.Name)
		}
	case ConnSimulator:
		// simulator mode, no connection parameters
	default:
		return fmt.Errorf("device [%s]: unknown connection type '%s'", d.Name, d.Type)
	}
	return nil
}
