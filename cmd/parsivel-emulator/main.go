// Command parsivel-emulator serves synthetic Ott Parsivel2 telegrams over
// TCP, for testing precipd without hardware. The telegram layout matches the
// factory default telegram.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net"
	"time"
)

// state of one simulated rain event, shared by all connections of one run.
type emulator struct {
	rainAccu float64
}

func main() {
	var (
		port     = flag.String("port", "8123", "TCP port to listen on")
		interval = flag.Duration("interval", 5*time.Second, "Interval between telegrams")
	)
	flag.Parse()

	log.Printf("Ott Parsivel2 Emulator")
	log.Printf("Listening on port %s, sending a telegram every %v", *port, *interval)

	listener, err := net.Listen("tcp", ":"+*port)
	if err != nil {
		log.Fatal("Failed to listen:", err)
	}
	defer listener.Close()

	em := &emulator{}

	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("Failed to accept connection: %v", err)
			continue
		}

		log.Printf("Client connected from %s", conn.RemoteAddr())
		go em.handleConnection(conn, *interval)
	}
}

func (em *emulator) handleConnection(conn net.Conn, interval time.Duration) {
	defer conn.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Send the first telegram immediately
	if err := em.sendTelegram(conn); err != nil {
		log.Printf("Failed to send telegram: %v", err)
		return
	}

	for range ticker.C {
		if err := em.sendTelegram(conn); err != nil {
			log.Printf("Failed to send telegram: %v", err)
			return
		}
	}
}

func (em *emulator) sendTelegram(conn net.Conn) error {
	tele := em.telegram()
	log.Printf("Sent: %s", tele)
	_, err := fmt.Fprintf(conn, "%s\r\n", tele)
	return err
}

// telegram generates one synthetic default-layout telegram: serial number,
// rain rate, accumulated rain, wawa, dBZ, MOR, kinetic energy, housing
// temperature, signal amplitude, particle count, sensor state.
func (em *emulator) telegram() string {
	now := time.Now()
	hour := float64(now.Hour()) + float64(now.Minute())/60

	// A rain shower every few hours, fading in and out.
	shower := math.Sin(2 * math.Pi * hour / 3)
	rainRate := 0.0
	wawa := 0
	dBZ := -9.999
	mor := 9999
	energy := 0.0
	particles := 0

	if shower > 0.3 {
		rainRate = (shower - 0.3) * 8 * (0.8 + rand.Float64()*0.4)
		em.rainAccu += rainRate / 720 // mm over one 5s telegram
		switch {
		case rainRate < 0.5:
			wawa = 51
		case rainRate < 4.0:
			wawa = 61
		default:
			wawa = 63
		}
		dBZ = 10 + rainRate*3
		mor = int(4000 / (1 + rainRate))
		energy = rainRate * 12
		particles = int(rainRate * 150)
	}

	housingTemp := 15 + 8*math.Sin(2*math.Pi*(hour-6)/24) + rand.Float64()*2

	return fmt.Sprintf("200248;%07.3f;%07.2f;%02d;%07.3f;%05d;%06.2f;%03.0f;%05d;%05d;0;",
		rainRate, em.rainAccu, wawa, dBZ, mor, energy, housingTemp, 15759+rand.Intn(100), particles)
}
