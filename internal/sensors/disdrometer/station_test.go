package disdrometer

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/precipmeter/precipd/internal/telegram"
	"github.com/precipmeter/precipd/pkg/config"
	"go.uber.org/zap"
)

func TestScanRecords(t *testing.T) {
	input := "first;1;2\r\nsecond;3;4\r\npartial"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanRecords("\r\n"))

	var records []string
	for scanner.Scan() {
		records = append(records, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error: %v", err)
	}

	want := []string{"first;1;2", "second;3;4", "partial"}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d: %v", len(want), len(records), records)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d: expected %q, got %q", i, want[i], records[i])
		}
	}
}

func TestScanRecordsCustomSeparator(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("a;1|b;2|"))
	scanner.Split(scanRecords("|"))

	var records []string
	for scanner.Scan() {
		records = append(records, scanner.Text())
	}
	if len(records) != 2 || records[0] != "a;1" || records[1] != "b;2" {
		t.Errorf("unexpected records: %v", records)
	}
}

// The simulator's synthetic telegrams must decode with the default Parsivel
// layout it claims to emit.
func TestSimulatorTelegramDecodes(t *testing.T) {
	dev := config.DeviceData{Name: "sim", Model: "ott-parsivel2", Prefix: "ott"}
	layout, err := telegram.NewLayout(&dev)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	parser := telegram.NewParser(layout, zap.NewNop().Sugar())

	sim := &simulator{}
	sawDrizzle := false
	for i := 0; i < simCycleTicks; i++ {
		res, err := parser.Parse(sim.telegram(), time.Now())
		if err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if _, ok := res.Observations["ottSNR"]; !ok {
			t.Fatalf("tick %d: missing serial number", i)
		}
		if res.Wawa != nil && *res.Wawa == 51 {
			sawDrizzle = true
		}
	}
	if !sawDrizzle {
		t.Error("expected the simulator to produce drizzle during one cycle")
	}
}
