package disdrometer

import (
	"fmt"
	"time"
)

// simulator state: the synthetic device runs a repeating drizzle cycle so
// the whole pipeline, present-weather derivation included, can be exercised
// without hardware.
type simulator struct {
	tick     int
	rainAccu float64
}

// cycle length in ticks. The first half is dry, the second half drizzle.
const simCycleTicks = 24

// telegram emits one synthetic telegram in the default Parsivel layout
// (serial number, rain rate, accumulated rain, wawa, dBZ, MOR, kinetic
// energy, housing temperature, signal amplitude, particle count, sensor
// state).
func (sim *simulator) telegram() string {
	wawa := 0
	rainRate := 0.0
	if sim.tick%simCycleTicks >= simCycleTicks/2 {
		wawa = 51
		rainRate = 0.12
		sim.rainAccu += 0.01
	}
	sim.tick++

	return fmt.Sprintf("200248;%07.3f;%07.2f;%02d;-9.999;9999;000.00;%03d;15759;00000;0;",
		rainRate, sim.rainAccu, wawa, 22)
}

// runSimulator produces synthetic telegrams at the query interval.
func (s *Station) runSimulator() {
	defer s.wg.Done()
	defer s.closeDeriver()

	sim := &simulator{}
	ticker := time.NewTicker(time.Duration(s.config.QueryIntervalSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("cancellation request received, stopping simulator")
			return
		case <-ticker.C:
			s.handleTelegram(sim.telegram())
		}
	}
}
