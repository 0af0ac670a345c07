package mediaplayer

import (
	"math"
	"strconv"
)

// calcVolume maps receiver decibels onto 0..1. Out-of-range input is not
// clamped and min == max yields a non-finite result.
func (m *Marantz) calcVolume(decibel int) float64 {
	return math.Abs(float64(m.minVolume-decibel)) / math.Abs(float64(m.minVolume-m.maxVolume))
}

// calcDB is the inverse of calcVolume, rounding half to even.
func (m *Marantz) calcDB(volume float64) int {
	return m.minVolume + int(math.RoundToEven(math.Abs(float64(m.minVolume-m.maxVolume))*volume))
}

// volumeCode formats the write code for an absolute volume: a literal "0"
// followed by the signed decibel value, e.g. -36 -> "0-36".
func volumeCode(decibel int) string {
	return "0" + strconv.Itoa(decibel)
}
