package sensors

import (
	"fmt"

	"github.com/precipmeter/precipd/pkg/config"
)

// LoadDeviceConfig finds the configuration of one device by name.
func LoadDeviceConfig(configProvider config.ConfigProvider, deviceName string) (*config.DeviceData, error) {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	for _, device := range cfgData.Devices {
		if device.Name == deviceName {
			return &device, nil
		}
	}

	return nil, fmt.Errorf("device [%s] not found in configuration", deviceName)
}
