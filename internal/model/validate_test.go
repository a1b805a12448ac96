package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	t.Parallel()
	require.True(t, ValidName("fleet_1"))
	require.True(t, ValidName("alpha.sub-2"))
	require.True(t, ValidName("ops@north+1"))
	require.False(t, ValidName(""))
	require.False(t, ValidName("no spaces"))
	require.False(t, ValidName("semi;colon"))
}

func TestDeviceValidate(t *testing.T) {
	t.Parallel()

	// All format fields are optional.
	require.NoError(t, (&Device{Serial: "serial_1"}).Validate())

	valid := &Device{
		Serial: "serial_1",
		Phone:  "(212) 555-0100",
		VIN:    "1HGBH41JXMN109186",
		IMEI:   "490154203237518", // Luhn-valid
		IMSI:   "310150123456789",
		MSISDN: "40721234567",
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(d *Device)
	}{
		{"phone", func(d *Device) { d.Phone = "12-34" }},
		{"vin with I", func(d *Device) { d.VIN = "IHGBH41JXMN109186" }},
		{"vin short", func(d *Device) { d.VIN = "1HGBH41JXMN10918" }},
		{"imei bad checksum", func(d *Device) { d.IMEI = "490154203237519" }},
		{"imei short", func(d *Device) { d.IMEI = "49015420323751" }},
		{"imsi", func(d *Device) { d.IMSI = "31015" }},
		{"msisdn leading zero", func(d *Device) { d.MSISDN = "0721234567" }},
	}
	for _, tc := range cases {
		d := *valid
		tc.mutate(&d)
		require.Error(t, d.Validate(), tc.name)
	}
}

func TestLuhnValid(t *testing.T) {
	t.Parallel()
	require.True(t, LuhnValid("490154203237518"))
	require.True(t, LuhnValid("79927398713"))
	require.False(t, LuhnValid("490154203237519"))
	require.False(t, LuhnValid("4901542032375x8"))
}
