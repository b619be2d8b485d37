package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `
archive_interval: 300
log_failure: false
state_dir: /var/lib/precipd
weathercodes: ott
visibility: ott
precipitation: ott
devices:
  - name: ott
    type: tcp
    model: ott-parsivel2
    host: 192.168.1.50
    port: 8000
    prefix: ott
    telegram: "%13;%01;%02;%03;%07;%08;%34;%12;%10;%11;%18;/r/n"
  - name: old-thies
    enable: false
    type: usb
    model: thies-lnm
    serial_device: /dev/ttyUSB0
    baud: 9600
  - name: dsu
    type: snmp
    host: 192.168.1.60
    community: public
    fields:
      - name: visibility
        oid: .1.3.6.1.4.1.39145.10.0
        unit: meter
storage:
  sqlite:
    path: /var/lib/precipd/archive.sdb
  mqtt:
    broker: tcp://localhost:1883
    topic-prefix: precip
rest:
  listen-addr: 0.0.0.0
  port: 8081
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "precipd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	provider := NewYAMLProvider(writeTestConfig(t, testConfigYAML))

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.LogSuccess {
		t.Error("log_success must default to true")
	}
	if cfg.LogFailure {
		t.Error("log_failure was disabled in the config")
	}
	if cfg.ArchiveIntervalSecs != 300 {
		t.Errorf("expected archive interval 300, got %d", cfg.ArchiveIntervalSecs)
	}
	if cfg.Weathercodes != "ott" || cfg.Visibility != "ott" || cfg.Precipitation != "ott" {
		t.Errorf("derived-observation sources not loaded: %+v", cfg)
	}

	if len(cfg.Devices) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(cfg.Devices))
	}

	ott := cfg.Devices[0]
	if !ott.Enabled || ott.Type != ConnTCP || ott.Host != "192.168.1.50" || ott.Port != 8000 {
		t.Errorf("tcp device not loaded correctly: %+v", ott)
	}
	if ott.Telegram == "" {
		t.Error("telegram string not loaded")
	}

	if cfg.Devices[1].Enabled {
		t.Error("device with enable: false must be disabled")
	}

	dsu := cfg.Devices[2]
	if dsu.Type != ConnSNMP || len(dsu.Fields) != 1 {
		t.Fatalf("snmp device not loaded correctly: %+v", dsu)
	}
	if dsu.Fields[0].OID != ".1.3.6.1.4.1.39145.10.0" || dsu.Fields[0].Unit != "meter" {
		t.Errorf("snmp field not loaded correctly: %+v", dsu.Fields[0])
	}

	if cfg.Storage.SQLite == nil || cfg.Storage.SQLite.Path != "/var/lib/precipd/archive.sdb" {
		t.Errorf("sqlite storage not loaded: %+v", cfg.Storage.SQLite)
	}
	if cfg.Storage.MQTT == nil || cfg.Storage.MQTT.Broker != "tcp://localhost:1883" || cfg.Storage.MQTT.TopicPrefix != "precip" {
		t.Errorf("mqtt storage not loaded: %+v", cfg.Storage.MQTT)
	}
	if cfg.Storage.TimescaleDB != nil {
		t.Error("timescaledb storage must be absent")
	}
	if cfg.REST == nil || cfg.REST.Port != 8081 || cfg.REST.ListenAddr != "0.0.0.0" {
		t.Errorf("rest config not loaded: %+v", cfg.REST)
	}
}

func TestYAMLProviderRejectsInvalidDevice(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{
			"tcp without host",
			"devices:\n  - name: d\n    type: tcp\n    port: 8000\n",
		},
		{
			"usb without serial device",
			"devices:\n  - name: d\n    type: usb\n",
		},
		{
			"snmp without fields",
			"devices:\n  - name: d\n    type: snmp\n    host: h\n",
		},
		{
			"unknown type",
			"devices:\n  - name: d\n    type: carrier-pigeon\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewYAMLProvider(writeTestConfig(t, tt.config))
			if _, err := provider.LoadConfig(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestDeviceDataValidate(t *testing.T) {
	valid := DeviceData{Name: "sim", Type: ConnSimulator}
	if err := valid.Validate(); err != nil {
		t.Errorf("simulator device needs no parameters: %v", err)
	}

	udp := DeviceData{Name: "u", Type: ConnUDP}
	if err := udp.Validate(); err == nil {
		t.Error("udp device without port must be rejected")
	}
}
