package sensors

// Sensor is the interface all sensor device backends provide.
type Sensor interface {
	StartSensor() error
	SensorName() string
}
