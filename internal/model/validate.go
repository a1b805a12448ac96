package model

import (
	"fmt"
	"regexp"
)

// Format invariants carried over from the device registration rules. Empty
// values are accepted everywhere: the fields default to "" and are filled in
// as the hardware gets provisioned.
var (
	nameRe   = regexp.MustCompile(`^[\w.@+-]+$`)
	phoneRe  = regexp.MustCompile(`^\(?[0-9]{3}\)?[-. ]?[0-9]{3}[-. ]?[0-9]{4}$`)
	vinRe    = regexp.MustCompile(`^[0-9A-HJ-NPR-Z]{17}$`)
	imeiRe   = regexp.MustCompile(`^[0-9]{15}$`)
	imsiRe   = regexp.MustCompile(`^[0-9]{14,15}$`)
	msisdnRe = regexp.MustCompile(`^[1-9][0-9]{6,14}$`)
)

// ValidName reports whether a username or fleet name is well formed.
func ValidName(s string) bool {
	return s != "" && len(s) <= 64 && nameRe.MatchString(s)
}

// Validate checks the device attribute format invariants.
func (d *Device) Validate() error {
	if d.Phone != "" && !phoneRe.MatchString(d.Phone) {
		return fmt.Errorf("enter a valid phone number")
	}
	if d.VIN != "" && !vinRe.MatchString(d.VIN) {
		return fmt.Errorf("enter a valid vehicle identification number")
	}
	if d.IMEI != "" {
		if !imeiRe.MatchString(d.IMEI) || !LuhnValid(d.IMEI) {
			return fmt.Errorf("enter a valid international mobile station equipment identity")
		}
	}
	if d.IMSI != "" && !imsiRe.MatchString(d.IMSI) {
		return fmt.Errorf("enter a valid international mobile subscriber identity")
	}
	if d.MSISDN != "" && !msisdnRe.MatchString(d.MSISDN) {
		return fmt.Errorf("enter a valid mobile subscriber ISDN number")
	}
	return nil
}

// LuhnValid reports whether a numeric string passes the Luhn checksum.
// Used for IMEI validation.
func LuhnValid(s string) bool {
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
