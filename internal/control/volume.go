// SPDX-License-Identifier: MIT
package control

import "math"

// Three volume scales meet in this protocol: native device audio is
// 0-100, UI slider widgets are 0-255, player audio is 0.0-1.0. The
// helpers below are the only conversions; each clamps its input so a
// mis-scaled event cannot push a widget out of range.

// PercentToSlider maps native volume (0-100) to a slider position.
func PercentToSlider(percent int) int {
	return int(math.Round(clampF(float64(percent), 0, 100) * 255 / 100))
}

// SliderToPercent maps a slider position (0-255) to native volume.
func SliderToPercent(slider int) int {
	return int(math.Round(clampF(float64(slider), 0, 255) / 255 * 100))
}

// UnitToSlider maps player volume (0.0-1.0) to a slider position.
func UnitToSlider(unit float64) int {
	return int(math.Round(clampF(unit, 0, 1) * 255))
}

// SliderToUnit maps a slider position (0-255) to player volume.
func SliderToUnit(slider int) float64 {
	return clampF(float64(slider), 0, 255) / 255
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
