package telegram

// Ott Parsivel 1 + 2 telegram fields, keyed by the field number used in the
// device's telegram configuration string. Fields 34, 35, 60 and 61 are not
// available on the Parsivel 1.
//
// Fields without an observation name are parsed (they occupy a position in
// the telegram) but not recorded. The spectrum fields 61, 90, 91 and 93 are
// recognized so a telegram naming them is not rejected, but their payload is
// skipped.
var parsivelFields = map[int]FieldDesc{
	// device information and identification
	22: {Number: 22, Description: "station name", Length: 10, Unit: UnitString},
	23: {Number: 23, Description: "station number", Length: 4, Unit: UnitString},
	13: {Number: 13, Description: "sensor serial number", Length: 6, Name: "SNR", Unit: UnitString},
	14: {Number: 14, Description: "firmware bootloader version", Length: 6, Unit: UnitString},
	15: {Number: 15, Description: "firmware version", Length: 6, Unit: UnitString},
	9:  {Number: 9, Description: "query interval", Length: 5, Name: "queryInterval", Unit: "second", Group: "group_interval"},
	// device state
	18: {Number: 18, Description: "sensor state", Length: 1, Name: "sensorState"},
	25: {Number: 25, Description: "error code", Length: 3, Name: "errorCode"},
	// date and time
	19: {Number: 19, Description: "date/time of measurement start", Length: 19, Unit: UnitString},
	20: {Number: 20, Description: "sensor time", Length: 8, Unit: UnitString},
	21: {Number: 21, Description: "sensor date", Length: 10, Unit: UnitString},
	// present weather codes
	3: {Number: 3, Description: "weather code SYNOP wawa table 4680", Length: 2, Name: "wawa", Unit: "byte", Group: "group_wmo_wawa"},
	4: {Number: 4, Description: "weather code SYNOP ww table 4677", Length: 2, Name: "ww", Unit: "byte", Group: "group_wmo_ww"},
	5: {Number: 5, Description: "weather code METAR/SPECI w'w' table 4678", Length: 5, Name: "METAR", Unit: UnitString},
	6: {Number: 6, Description: "weather code NWS", Length: 4, Name: "NWS", Unit: UnitString},
	// readings, 32 bit
	1:  {Number: 1, Description: "rain intensity (32bit)", Length: 8, Name: "rainRate", Unit: "mm_per_hour", Group: "group_rainrate"},
	2:  {Number: 2, Description: "rain amount accumulated (32bit)", Length: 7, Name: "rainAccu", Unit: "mm", Group: "group_rain"},
	24: {Number: 24, Description: "rain amount absolute (32bit)", Length: 7, Name: "rainAbs", Unit: "mm", Group: "group_rain"},
	7:  {Number: 7, Description: "radar reflectivity (32bit)", Length: 6, Name: "dBZ", Unit: "db", Group: "group_db"},
	// readings, 16 bit (not necessary if the 32 bit readings can be used)
	30: {Number: 30, Description: "rain intensity (16bit) max 30 mm/h", Length: 6, Unit: "mm_per_hour", Group: "group_rainrate"},
	31: {Number: 31, Description: "rain intensity (16bit) max 1200 mm/h", Length: 6, Unit: "mm_per_hour", Group: "group_rainrate"},
	32: {Number: 32, Description: "rain amount accumulated (16bit)", Length: 7, Unit: "mm", Group: "group_rain"},
	33: {Number: 33, Description: "radar reflectivity (16bit)", Length: 5, Unit: "db", Group: "group_db"},
	// other readings
	8:  {Number: 8, Description: "MOR visibility in precipitation", Length: 5, Name: "MOR", Unit: "meter", Group: "group_distance"},
	10: {Number: 10, Description: "signal amplitude of the laser band", Length: 5, Name: "signal", Unit: "count", Group: "group_count"},
	11: {Number: 11, Description: "number of detected and validated particles", Length: 5, Name: "particle", Unit: "count", Group: "group_count"},
	12: {Number: 12, Description: "temperature in the sensor housing", Length: 3, Name: "housingTemp", Unit: "degree_C", Group: "group_temperature"},
	16: {Number: 16, Description: "sensor head heating current", Length: 4, Name: "heatingCurrent", Unit: "amp", Group: "group_amp"},
	17: {Number: 17, Description: "supply voltage", Length: 4, Name: "supplyVoltage", Unit: "volt", Group: "group_volt"},
	26: {Number: 26, Description: "temperature of the circuit board", Length: 3, Name: "circuitTemp", Unit: "degree_C", Group: "group_temperature"},
	27: {Number: 27, Description: "temperature in the right sensor head", Length: 3, Name: "rightSensorTemp", Unit: "degree_C", Group: "group_temperature"},
	28: {Number: 28, Description: "temperature in the left sensor head", Length: 3, Name: "leftSensorTemp", Unit: "degree_C", Group: "group_temperature"},
	34: {Number: 34, Description: "kinetic energy", Length: 7, Name: "energy", Unit: "J/(m^2h)", Group: "group_rainpower"},
	35: {Number: 35, Description: "snow intensity (volume equivalent)", Length: 7, Name: "snowRate", Unit: "mm_per_hour", Group: "group_rainrate"},
	// special data
	60: {Number: 60, Description: "number of all detected particles", Length: 8, Name: "particleCount", Unit: "count", Group: "group_count"},
	61: {Number: 61, Description: "list of all detected particles", Length: 13, Unit: UnitSpectrum},
	90: {Number: 90, Description: "field N(d)", Length: 223, Unit: UnitSpectrum},
	91: {Number: 91, Description: "field v(d)", Length: 223, Unit: UnitSpectrum},
	93: {Number: 93, Description: "raw data", Length: 4095, Unit: UnitSpectrum},
}

// DefaultParsivelTelegram is the factory telegram of the Parsivel2 and the
// layout assumed when a Parsivel device has no telegram configured.
const DefaultParsivelTelegram = "%13;%01;%02;%03;%07;%08;%34;%12;%10;%11;%18;/r/n"

// parsivelRainAccuField is the field number whose value feeds the rain
// accumulation delta.
const parsivelRainAccuField = 2

// parsivelEnergyField is reported in J/(m^2 h) and converted to W/m^2.
const parsivelEnergyField = 34
