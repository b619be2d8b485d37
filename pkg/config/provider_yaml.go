package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into temporary struct with YAML tags
	var yamlConfig configYAML
	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	config := &ConfigData{
		LogSuccess:          true,
		LogFailure:          true,
		ArchiveIntervalSecs: 300,
		StateDir:            ".",
		Weathercodes:        yamlConfig.Weathercodes,
		Visibility:          yamlConfig.Visibility,
		Precipitation:       yamlConfig.Precipitation,
		Devices:             make([]DeviceData, len(yamlConfig.Devices)),
	}

	if yamlConfig.LogSuccess != nil {
		config.LogSuccess = *yamlConfig.LogSuccess
	}
	if yamlConfig.LogFailure != nil {
		config.LogFailure = *yamlConfig.LogFailure
	}
	if yamlConfig.ArchiveInterval != 0 {
		config.ArchiveIntervalSecs = yamlConfig.ArchiveInterval
	}
	if yamlConfig.StateDir != "" {
		config.StateDir = yamlConfig.StateDir
	}

	for i, device := range yamlConfig.Devices {
		d := DeviceData{
			Name:              device.Name,
			Enabled:           true,
			Type:              device.Type,
			Model:             device.Model,
			Host:              device.Host,
			Port:              device.Port,
			SerialDevice:      device.SerialDevice,
			Baud:              device.Baud,
			TimeoutSecs:       device.Timeout,
			Retries:           device.Retries,
			QueryIntervalSecs: device.QueryInterval,
			Prefix:            device.Prefix,
			Telegram:          device.Telegram,
			FieldSeparator:    device.FieldSeparator,
			RecordSeparator:   device.RecordSeparator,
			Community:         device.Community,
		}
		if device.Enable != nil {
			d.Enabled = *device.Enable
		}
		for _, f := range device.Fields {
			d.Fields = append(d.Fields, FieldData{
				Number:      f.Number,
				OID:         f.OID,
				Name:        f.Name,
				Unit:        f.Unit,
				Group:       f.Group,
				Conversion:  f.Conversion,
				SQLDatatype: f.SQLDatatype,
				Description: f.Description,
			})
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		config.Devices[i] = d
	}

	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}
	if yamlConfig.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{
			Path: yamlConfig.Storage.SQLite.Path,
		}
	}
	if yamlConfig.Storage.MQTT != nil {
		config.Storage.MQTT = &MQTTData{
			Broker:      yamlConfig.Storage.MQTT.Broker,
			TopicPrefix: yamlConfig.Storage.MQTT.TopicPrefix,
			ClientID:    yamlConfig.Storage.MQTT.ClientID,
			Username:    yamlConfig.Storage.MQTT.Username,
			Password:    yamlConfig.Storage.MQTT.Password,
		}
	}
	if yamlConfig.REST != nil {
		config.REST = &RESTData{
			ListenAddr: yamlConfig.REST.ListenAddr,
			Port:       yamlConfig.REST.Port,
		}
	}

	y.config = config
	return config, nil
}

// GetDevices returns device configurations
func (y *YAMLProvider) GetDevices() ([]DeviceData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Devices, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the config file
type configYAML struct {
	LogSuccess      *bool         `yaml:"log_success,omitempty"`
	LogFailure      *bool         `yaml:"log_failure,omitempty"`
	ArchiveInterval int           `yaml:"archive_interval,omitempty"`
	StateDir        string        `yaml:"state_dir,omitempty"`
	Weathercodes    string        `yaml:"weathercodes,omitempty"`
	Visibility      string        `yaml:"visibility,omitempty"`
	Precipitation   string        `yaml:"precipitation,omitempty"`
	Devices         []deviceYAML  `yaml:"devices"`
	Storage         storageYAML   `yaml:"storage,omitempty"`
	REST            *restYAML     `yaml:"rest,omitempty"`
}

type deviceYAML struct {
	Name            string      `yaml:"name"`
	Enable          *bool       `yaml:"enable,omitempty"`
	Type            string      `yaml:"type"`
	Model           string      `yaml:"model,omitempty"`
	Host            string      `yaml:"host,omitempty"`
	Port            int         `yaml:"port,omitempty"`
	SerialDevice    string      `yaml:"serial_device,omitempty"`
	Baud            int         `yaml:"baud,omitempty"`
	Timeout         int         `yaml:"timeout,omitempty"`
	Retries         int         `yaml:"retries,omitempty"`
	QueryInterval   int         `yaml:"query_interval,omitempty"`
	Prefix          string      `yaml:"prefix,omitempty"`
	Telegram        string      `yaml:"telegram,omitempty"`
	FieldSeparator  string      `yaml:"field_separator,omitempty"`
	RecordSeparator string      `yaml:"record_separator,omitempty"`
	Community       string      `yaml:"community,omitempty"`
	Fields          []fieldYAML `yaml:"fields,omitempty"`
}

type fieldYAML struct {
	Number      int    `yaml:"number,omitempty"`
	OID         string `yaml:"oid,omitempty"`
	Name        string `yaml:"name"`
	Unit        string `yaml:"unit,omitempty"`
	Group       string `yaml:"group,omitempty"`
	Conversion  string `yaml:"conversion,omitempty"`
	SQLDatatype string `yaml:"sql_datatype,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type storageYAML struct {
	TimescaleDB *timescaleDBYAML `yaml:"timescaledb,omitempty"`
	SQLite      *sqliteYAML      `yaml:"sqlite,omitempty"`
	MQTT        *mqttYAML        `yaml:"mqtt,omitempty"`
}

type timescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type sqliteYAML struct {
	Path string `yaml:"path"`
}

type mqttYAML struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic-prefix,omitempty"`
	ClientID    string `yaml:"client-id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
}

type restYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port"`
}
