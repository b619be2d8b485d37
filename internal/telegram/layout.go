// Package telegram decodes the delimited data telegrams emitted by
// disdrometers and present-weather sensors into named observations.
package telegram

import (
	"fmt"
	"strings"

	"github.com/precipmeter/precipd/internal/units"
	"github.com/precipmeter/precipd/pkg/config"
)

// Units with special meaning in the field tables.
const (
	UnitString   = "string"
	UnitSpectrum = "spectrum"
)

// Supported telegram models.
const (
	ModelParsivel  = "ott-parsivel"
	ModelParsivel1 = "ott-parsivel1"
	ModelParsivel2 = "ott-parsivel2"
	ModelThiesLNM  = "thies-lnm"
	ModelGeneric   = "generic"
)

// FieldDesc describes one field of a device telegram.
type FieldDesc struct {
	Number      int
	Description string
	Length      int
	// Name is the observation name without the device prefix. Fields with
	// an empty name occupy a telegram position but are not recorded.
	Name  string
	Unit  string
	Group string
}

// SQLType derives the archive column type for the field, unless the
// configuration overrides it with sql_datatype.
func (f FieldDesc) SQLType() string {
	switch f.Group {
	case "group_count", "group_wmo_ww", "group_wmo_wawa":
		return "INTEGER"
	}
	switch f.Unit {
	case UnitString:
		return fmt.Sprintf("VARCHAR(%d)", f.Length)
	case UnitSpectrum:
		return ""
	}
	return "REAL"
}

// Field is a telegram field bound to a device: the observation name carries
// the device prefix and an optional value conversion is attached.
type Field struct {
	FieldDesc
	// Obs is the prefixed observation name; empty for unrecorded fields.
	Obs        string
	Conversion string
	sqlType    string
}

// Layout is the decoded telegram structure of one device.
type Layout struct {
	Model           string
	Prefix          string
	FieldSeparator  string
	RecordSeparator string
	Fields          []Field

	// rainAccuNumber is the field number whose absolute accumulation value
	// feeds the rain delta observation, 0 if none.
	rainAccuNumber int
}

// NewLayout builds the telegram layout for a device from its configuration.
func NewLayout(dev *config.DeviceData) (*Layout, error) {
	model := strings.ToLower(dev.Model)
	if model == "" {
		model = ModelParsivel2
	}

	l := &Layout{
		Model:           model,
		Prefix:          dev.Prefix,
		FieldSeparator:  dev.FieldSeparator,
		RecordSeparator: dev.RecordSeparator,
	}
	if l.FieldSeparator == "" {
		l.FieldSeparator = ";"
	}
	if l.RecordSeparator == "" {
		l.RecordSeparator = "\r\n"
	}

	switch model {
	case ModelParsivel, ModelParsivel1, ModelParsivel2:
		if len(dev.Fields) > 0 {
			if err := l.fromConfigFields(dev.Fields, parsivelFields); err != nil {
				return nil, err
			}
		} else {
			tele := dev.Telegram
			if tele == "" {
				tele = DefaultParsivelTelegram
			}
			if err := l.fromTelegramString(tele); err != nil {
				return nil, err
			}
		}
		l.rainAccuNumber = parsivelRainAccuField
	case ModelThiesLNM:
		if len(dev.Fields) > 0 {
			byNumber := make(map[int]FieldDesc, len(thiesFields))
			for _, f := range thiesFields {
				byNumber[f.Number] = f
			}
			if err := l.fromConfigFields(dev.Fields, byNumber); err != nil {
				return nil, err
			}
		} else {
			for _, desc := range thiesFields {
				l.appendField(desc, "", "")
			}
		}
		l.rainAccuNumber = thiesRainAccuField
	case ModelGeneric:
		if len(dev.Fields) == 0 {
			return nil, fmt.Errorf("device [%s]: model 'generic' needs a fields list", dev.Name)
		}
		if err := l.fromConfigFields(dev.Fields, nil); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("device [%s]: unknown model '%s'", dev.Name, dev.Model)
	}

	return l, nil
}

// fromTelegramString parses a Parsivel telegram configuration string such as
// "%13;%01;%02;%03;/r/n" into the field sequence. Field numbers not present
// in the Parsivel table are skipped.
func (l *Layout) fromTelegramString(tele string) error {
	var digits []rune
	inField := false
	count := 0
	for _, r := range tele {
		if inField {
			if r >= '0' && r <= '9' {
				digits = append(digits, r)
				continue
			}
			if len(digits) > 0 {
				nr := 0
				for _, d := range digits {
					nr = nr*10 + int(d-'0')
				}
				if desc, ok := parsivelFields[nr]; ok {
					l.appendField(desc, "", "")
					count++
				}
			}
			digits = digits[:0]
			inField = false
		}
		if r == '%' {
			inField = true
		}
	}
	if count == 0 {
		return fmt.Errorf("telegram '%s' names no known fields", tele)
	}
	return nil
}

// fromConfigFields builds the field sequence from an explicit configuration
// list. When a built-in table is given, entries may reference a field number
// and override only what they name; otherwise each entry must be complete.
func (l *Layout) fromConfigFields(fields []config.FieldData, table map[int]FieldDesc) error {
	for i, cf := range fields {
		var desc FieldDesc
		if table != nil && cf.Number != 0 {
			known, ok := table[cf.Number]
			if !ok {
				return fmt.Errorf("field %d is not defined for this model", cf.Number)
			}
			desc = known
		} else {
			desc = FieldDesc{Number: i + 1, Length: 8}
		}
		if cf.Name != "" {
			desc.Name = cf.Name
		}
		if cf.Unit != "" {
			desc.Unit = cf.Unit
		}
		if cf.Group != "" {
			desc.Group = cf.Group
		}
		if cf.Description != "" {
			desc.Description = cf.Description
		}
		// If no unit group is given, try to find out from the unit.
		if desc.Group == "" && desc.Unit != "" && desc.Unit != UnitString {
			desc.Group = units.GroupForUnit(desc.Unit)
		}
		if !units.KnownConversion(cf.Conversion) {
			return fmt.Errorf("field '%s': unknown conversion '%s'", desc.Name, cf.Conversion)
		}
		l.appendField(desc, cf.Conversion, cf.SQLDatatype)
	}
	return nil
}

func (l *Layout) appendField(desc FieldDesc, conversion, sqlType string) {
	if sqlType == "" {
		sqlType = desc.SQLType()
	}
	l.Fields = append(l.Fields, Field{
		FieldDesc:  desc,
		Obs:        ApplyPrefix(l.Prefix, desc.Name),
		Conversion: conversion,
		sqlType:    sqlType,
	})
}

// RainDeltaObs is the observation name of the derived rain accumulation
// delta, empty if the layout has no accumulation field.
func (l *Layout) RainDeltaObs() string {
	if l.rainAccuNumber == 0 {
		return ""
	}
	for _, f := range l.Fields {
		if f.Number == l.rainAccuNumber {
			return ApplyPrefix(l.Prefix, "rain")
		}
	}
	return ""
}

// Column is one archive table column contributed by this layout.
type Column struct {
	Name    string
	SQLType string
}

// SchemaColumns lists the archive columns for the layout's recorded fields,
// including the derived rain delta.
func (l *Layout) SchemaColumns() []Column {
	var cols []Column
	for _, f := range l.Fields {
		if f.Obs == "" || f.sqlType == "" {
			continue
		}
		cols = append(cols, Column{Name: f.Obs, SQLType: f.sqlType})
	}
	if rain := l.RainDeltaObs(); rain != "" {
		cols = append(cols, Column{Name: rain, SQLType: "REAL"})
	}
	return cols
}

// ApplyPrefix prepends the device prefix to an observation name, uppercasing
// the first letter of the name (ott + rainRate -> ottRainRate).
func ApplyPrefix(prefix, name string) string {
	if name == "" {
		return ""
	}
	if prefix == "" {
		return name
	}
	return prefix + strings.ToUpper(name[:1]) + name[1:]
}
