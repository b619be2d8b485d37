package telegram

// Default field order for the Thies Clima Laser Precipitation Monitor (LNM).
// The LNM emits a fixed-order semicolon-delimited telegram; the subset below
// covers the fields a weather installation typically records. Installations
// whose LNM is configured for a different telegram override this with an
// explicit fields list.
var thiesFields = []FieldDesc{
	{Number: 1, Description: "device address", Length: 2, Unit: UnitString},
	{Number: 2, Description: "sensor serial number", Length: 5, Name: "SNR", Unit: UnitString},
	{Number: 3, Description: "software version", Length: 4, Unit: UnitString},
	{Number: 4, Description: "sensor date", Length: 8, Unit: UnitString},
	{Number: 5, Description: "sensor time", Length: 8, Unit: UnitString},
	{Number: 6, Description: "5 min averaged weather code SYNOP table 4677", Length: 2, Name: "ww", Unit: "byte", Group: "group_wmo_ww"},
	{Number: 7, Description: "5 min averaged weather code SYNOP table 4680", Length: 2, Name: "wawa", Unit: "byte", Group: "group_wmo_wawa"},
	{Number: 8, Description: "5 min averaged weather code METAR table 4678", Length: 5, Name: "METAR", Unit: UnitString},
	{Number: 9, Description: "precipitation intensity, all kinds", Length: 7, Name: "rainRate", Unit: "mm_per_hour", Group: "group_rainrate"},
	{Number: 10, Description: "precipitation intensity, liquid", Length: 7, Name: "liquidRate", Unit: "mm_per_hour", Group: "group_rainrate"},
	{Number: 11, Description: "precipitation intensity, solid", Length: 7, Name: "solidRate", Unit: "mm_per_hour", Group: "group_rainrate"},
	{Number: 12, Description: "precipitation amount accumulated", Length: 7, Name: "rainAccu", Unit: "mm", Group: "group_rain"},
	{Number: 13, Description: "MOR visibility in precipitation", Length: 5, Name: "MOR", Unit: "meter", Group: "group_distance"},
	{Number: 14, Description: "radar reflectivity", Length: 5, Name: "dBZ", Unit: "db", Group: "group_db"},
	{Number: 15, Description: "measurement quality", Length: 3, Name: "quality", Unit: "percent"},
	{Number: 16, Description: "maximum hail diameter", Length: 3, Name: "hailDiameter", Unit: "mm"},
	{Number: 17, Description: "laser status", Length: 1, Name: "laserStatus"},
	{Number: 18, Description: "laser temperature", Length: 3, Name: "laserTemp", Unit: "degree_C", Group: "group_temperature"},
	{Number: 19, Description: "temperature in the sensor housing", Length: 3, Name: "housingTemp", Unit: "degree_C", Group: "group_temperature"},
	{Number: 20, Description: "supply voltage", Length: 4, Name: "supplyVoltage", Unit: "volt", Group: "group_volt"},
	{Number: 21, Description: "number of detected particles", Length: 5, Name: "particle", Unit: "count", Group: "group_count"},
	{Number: 22, Description: "checksum", Length: 2, Unit: UnitString},
}

// thiesRainAccuField is the field number whose value feeds the rain
// accumulation delta.
const thiesRainAccuField = 12
