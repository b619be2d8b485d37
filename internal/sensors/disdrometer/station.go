// Package disdrometer implements the sensor backend for devices that emit
// delimited data telegrams: Ott Parsivel 1/2, Thies LNM and generic
// delimited devices. The device is reached over TCP, UDP, USB-serial or,
// for type `none`, a built-in simulator.
package disdrometer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/precipmeter/precipd/internal/sensors"
	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/internal/types"
	"github.com/precipmeter/precipd/pkg/config"
	serial "github.com/tarm/goserial"
	"go.uber.org/zap"
)

// readDeadline bounds one read on a network connection; the device pushes a
// telegram at least once per query interval, so a stalled connection is
// detected within this window.
const readDeadline = 30 * time.Second

// maxConnectBackoff caps the exponential reconnect delay.
const maxConnectBackoff = 30 * time.Second

// Station holds the connection to one telegram-emitting device.
type Station struct {
	ctx                context.Context
	wg                 *sync.WaitGroup
	config             config.DeviceData
	layout             *telegram.Layout
	parser             *telegram.Parser
	deriver            *sensors.Deriver
	ReadingDistributor chan types.Reading
	logger             *zap.SugaredLogger

	netConn net.Conn
	rwc     io.ReadWriteCloser
	udpConn *net.UDPConn
	// sourceIP is the resolved device address UDP datagrams must come from.
	sourceIP string
}

// NewStation creates a telegram sensor for a configured device.
func NewStation(ctx context.Context, wg *sync.WaitGroup, configProvider config.ConfigProvider, deviceName string, distributor chan types.Reading, deriver *sensors.Deriver, logger *zap.SugaredLogger) (sensors.Sensor, error) {
	deviceConfig, err := sensors.LoadDeviceConfig(configProvider, deviceName)
	if err != nil {
		return nil, err
	}

	layout, err := telegram.NewLayout(deviceConfig)
	if err != nil {
		return nil, err
	}

	logger = logger.Named("disdrometer").With("device", deviceName)

	s := &Station{
		ctx:                ctx,
		wg:                 wg,
		config:             *deviceConfig,
		layout:             layout,
		parser:             telegram.NewParser(layout, logger),
		deriver:            deriver,
		ReadingDistributor: distributor,
		logger:             logger,
	}

	if s.config.QueryIntervalSecs == 0 {
		s.config.QueryIntervalSecs = 5
	}
	if s.config.TimeoutSecs == 0 {
		s.config.TimeoutSecs = 10
	}
	if s.config.Baud == 0 {
		s.config.Baud = 9600
	}

	return s, nil
}

func (s *Station) SensorName() string {
	return s.config.Name
}

// StartSensor launches the device goroutine for the configured connection
// type.
func (s *Station) StartSensor() error {
	switch s.config.Type {
	case config.ConnTCP:
		s.logger.Infof("TCP connection to %s:%d", s.config.Host, s.config.Port)
		s.wg.Add(1)
		go s.runStream()
	case config.ConnUDP:
		s.logger.Infof("UDP connection, port %d", s.config.Port)
		if s.config.Host != "" {
			ips, err := net.LookupIP(s.config.Host)
			if err != nil || len(ips) == 0 {
				return fmt.Errorf("cannot resolve device host %s: %v", s.config.Host, err)
			}
			s.sourceIP = ips[0].String()
		}
		if err := s.startUDPReceiver(); err != nil {
			return err
		}
	case config.ConnUSB:
		s.logger.Infof("USB connection to %s", s.config.SerialDevice)
		s.wg.Add(1)
		go s.runStream()
	case config.ConnSimulator:
		s.logger.Info("simulator mode, no real connection")
		s.wg.Add(1)
		go s.runSimulator()
	default:
		return fmt.Errorf("device [%s]: unknown connection type '%s'", s.config.Name, s.config.Type)
	}
	return nil
}

// runStream reads telegrams from a TCP or serial connection, reconnecting
// with backoff whenever the stream breaks.
func (s *Station) runStream() {
	defer s.wg.Done()
	defer s.closeStream()
	defer s.closeDeriver()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("cancellation request received, stopping telegram reader")
			return
		default:
		}

		if s.rwc == nil {
			if !s.connect() {
				return
			}
		}

		if err := s.readTelegrams(); err != nil {
			s.logger.Errorf("telegram stream ended: %v", err)
			s.closeStream()
		} else {
			return
		}
	}
}

// connect opens the TCP or serial connection, retrying with exponential
// backoff until it succeeds or the context is cancelled. Returns false on
// cancellation.
func (s *Station) connect() bool {
	baseDelay := time.Second
	attempt := 0

	for {
		delay := baseDelay * time.Duration(1<<attempt)
		if delay > maxConnectBackoff {
			delay = maxConnectBackoff
		}

		var err error
		if s.config.Type == config.ConnUSB {
			sc := &serial.Config{Name: s.config.SerialDevice, Baud: s.config.Baud}
			s.rwc, err = serial.OpenPort(sc)
		} else {
			addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
			s.netConn, err = net.DialTimeout("tcp", addr, time.Duration(s.config.TimeoutSecs)*time.Second)
			if err == nil {
				s.netConn.SetReadDeadline(time.Now().Add(readDeadline))
				s.rwc = s.netConn
			}
		}

		if err == nil {
			s.logger.Infof("connected to device [%s]", s.config.Name)
			return true
		}

		attempt++
		if s.config.Retries > 0 && attempt == s.config.Retries {
			s.logger.Errorf("device [%s] unreachable after %d attempts, still retrying every %v", s.config.Name, attempt, maxConnectBackoff)
		}
		s.logger.Errorf("attempt #%d to connect to device [%s] failed: %v; retrying in %v", attempt, s.config.Name, err, delay)

		select {
		case <-s.ctx.Done():
			s.logger.Info("cancellation request received during retry wait")
			return false
		case <-time.After(delay):
		}
	}
}

// readTelegrams scans the stream for records and distributes the decoded
// readings. Returns nil only on cancellation.
func (s *Station) readTelegrams() error {
	scanner := bufio.NewScanner(s.rwc)
	scanner.Split(scanRecords(s.layout.RecordSeparator))

	for scanner.Scan() {
		if s.netConn != nil {
			s.netConn.SetReadDeadline(time.Now().Add(readDeadline))
		}
		select {
		case <-s.ctx.Done():
			s.logger.Info("cancellation request received, stopping telegram reader")
			return nil
		default:
		}
		s.handleTelegram(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("EOF from device")
}

// handleTelegram decodes one telegram and sends the reading to the
// distributor.
func (s *Station) handleTelegram(raw string) {
	if len(raw) == 0 {
		return
	}
	now := time.Now()

	res, err := s.parser.Parse(raw, now)
	if err != nil {
		// Telegram/config mismatch between device and configuration is the
		// usual cause here.
		s.logger.Errorf("discarding telegram: %v", err)
		return
	}
	if len(res.Observations) == 0 {
		return
	}

	s.deriver.Apply(res.Observations, res.WW, res.Wawa, now)

	r := types.Reading{
		Timestamp:    now,
		DeviceName:   s.config.Name,
		Model:        s.layout.Model,
		Observations: res.Observations,
	}

	select {
	case s.ReadingDistributor <- r:
	case <-s.ctx.Done():
	}
}

// startUDPReceiver listens for telegrams the device sends by itself.
func (s *Station) startUDPReceiver() error {
	addr := &net.UDPAddr{Port: s.config.Port, IP: net.IPv4zero}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("failed to start UDP listener: %w", err)
	}
	s.udpConn = conn

	s.wg.Add(1)
	go s.receiveUDPTelegrams()
	return nil
}

func (s *Station) receiveUDPTelegrams() {
	defer s.wg.Done()
	defer s.udpConn.Close()
	defer s.closeDeriver()
	defer s.logger.Info("UDP receiver stopped")

	buffer := make([]byte, 4096)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		// A short deadline keeps the loop responsive to cancellation.
		s.udpConn.SetReadDeadline(time.Now().Add(5 * time.Second))
		n, addr, err := s.udpConn.ReadFromUDP(buffer)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			s.logger.Errorf("UDP read error: %v", err)
			continue
		}

		if s.sourceIP != "" && addr.IP.String() != s.sourceIP {
			s.logger.Errorf("received data from %s but %s expected", addr.IP, s.sourceIP)
			continue
		}

		for _, rec := range bytes.Split(buffer[:n], []byte(s.layout.RecordSeparator)) {
			if len(bytes.TrimSpace(rec)) > 0 {
				s.handleTelegram(string(rec))
			}
		}
	}
}

func (s *Station) closeStream() {
	if s.rwc != nil {
		s.rwc.Close()
		s.rwc = nil
	}
	s.netConn = nil
}

func (s *Station) closeDeriver() {
	if err := s.deriver.Close(); err != nil {
		s.logger.Errorf("failed to save present weather state: %v", err)
	}
}

// scanRecords returns a bufio.SplitFunc that splits the stream on the
// device's record separator.
func scanRecords(sep string) bufio.SplitFunc {
	sepBytes := []byte(sep)
	return func(data []byte, atEOF bool) (advance int, token []byte, err error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.Index(data, sepBytes); i >= 0 {
			return i + len(sepBytes), data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}
