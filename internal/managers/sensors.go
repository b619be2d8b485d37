// Package managers orchestrates the sensor, archiver and storage layers.
package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/precipmeter/precipd/internal/log"
	"github.com/precipmeter/precipd/internal/sensors"
	"github.com/precipmeter/precipd/internal/sensors/disdrometer"
	"github.com/precipmeter/precipd/internal/sensors/restpoller"
	"github.com/precipmeter/precipd/internal/sensors/snmppoller"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

// SensorManager holds all configured sensor devices.
type SensorManager struct {
	ctx            context.Context
	wg             *sync.WaitGroup
	configProvider config.ConfigProvider
	distributor    chan types.Reading
	logger         *zap.SugaredLogger
	sensorDevices  map[string]sensors.Sensor
}

// NewSensorManager creates a SensorManager populated with all enabled
// devices from the configuration.
func NewSensorManager(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, distributor chan types.Reading, logger *zap.SugaredLogger) (*SensorManager, error) {
	cfgData, err := configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %v", err)
	}

	sm := &SensorManager{
		ctx:            ctx,
		wg:             wg,
		configProvider: configProvider,
		distributor:    distributor,
		logger:         logger,
		sensorDevices:  make(map[string]sensors.Sensor),
	}

	for _, deviceConfig := range cfgData.Devices {
		if !deviceConfig.Enabled {
			logger.Infof("Skipping disabled device [%s]", deviceConfig.Name)
			continue
		}
		sensor, err := sm.createSensorFromConfig(cfgData, deviceConfig)
		if err != nil {
			return nil, fmt.Errorf("error creating sensor [%s]: %w", deviceConfig.Name, err)
		}
		sm.sensorDevices[deviceConfig.Name] = sensor
	}

	return sm, nil
}

// StartSensors starts all configured sensors.
func (sm *SensorManager) StartSensors() error {
	for name, sensor := range sm.sensorDevices {
		sm.logger.Infof("Starting sensor [%v]...", name)
		if err := sensor.StartSensor(); err != nil {
			return fmt.Errorf("failed to start sensor [%s]: %w", name, err)
		}
	}
	return nil
}

// createSensorFromConfig creates the appropriate sensor backend for a
// device's connection type, with the derived-observation roles this device
// carries.
func (sm *SensorManager) createSensorFromConfig(cfgData *config.ConfigData, deviceConfig config.DeviceData) (sensors.Sensor, error) {
	if err := deviceConfig.Validate(); err != nil {
		return nil, err
	}

	deriver, err := sensors.NewDeriver(
		cfgData.StateDir,
		deviceConfig.Name,
		deviceConfig.Prefix,
		cfgData.Weathercodes == deviceConfig.Name,
		cfgData.Visibility == deviceConfig.Name,
		cfgData.Precipitation == deviceConfig.Name,
		sm.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot set up derived observations: %w", err)
	}

	switch deviceConfig.Type {
	case config.ConnTCP, config.ConnUDP, config.ConnUSB, config.ConnSimulator:
		log.Infof("Initializing disdrometer [%v]", deviceConfig.Name)
		return disdrometer.NewStation(sm.ctx, sm.wg, sm.configProvider, deviceConfig.Name, sm.distributor, deriver, sm.logger)
	case config.ConnSNMP:
		log.Infof("Initializing SNMP sensor [%v]", deviceConfig.Name)
		return snmppoller.NewStation(sm.ctx, sm.wg, sm.configProvider, deviceConfig.Name, sm.distributor, deriver, sm.logger)
	case config.ConnRestful:
		log.Infof("Initializing HTTP sensor [%v]", deviceConfig.Name)
		return restpoller.NewStation(sm.ctx, sm.wg, sm.configProvider, deviceConfig.Name, sm.distributor, deriver, sm.logger)
	default:
		return nil, fmt.Errorf("unknown connection type: %s", deviceConfig.Type)
	}
}
