// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import "github.com/mileusna/useragent"

// DeviceClass is the coarse client category of a session.
type DeviceClass string

// Device classes. They double as the partition keys of the sessions table.
const (
	DevicePC     DeviceClass = "pc"
	DeviceTablet DeviceClass = "tablet"
	DeviceMobile DeviceClass = "mobile"
	DeviceOther  DeviceClass = "other"
)

// DeviceClasses lists every class in classification order.
var DeviceClasses = []DeviceClass{DevicePC, DeviceTablet, DeviceMobile, DeviceOther}

// Valid reports whether class is one of [DeviceClasses].
func (class DeviceClass) Valid() bool {
	switch class {
	case DevicePC, DeviceTablet, DeviceMobile, DeviceOther:
		return true
	}
	return false
}

/*
Classify maps a user-agent string to a device class.

Description: Predicates are checked in a fixed order (desktop, tablet, mobile)
and the first match wins. Empty and unrecognized user-agents fall through to
[DeviceOther]. The function is pure.
*/
func Classify(userAgent string) DeviceClass {
	parsed := useragent.Parse(userAgent)

	switch {
	case parsed.Desktop:
		return DevicePC
	case parsed.Tablet:
		return DeviceTablet
	case parsed.Mobile:
		return DeviceMobile
	default:
		return DeviceOther
	}
}
