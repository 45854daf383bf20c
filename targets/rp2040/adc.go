//go:build rp2040

package main

import (
	"device/rp"
	"machine"

	"gohal/core"
)

// Internal temperature sensor, from the RP2040 datasheet.
const (
	tempChannel  = 4
	tempVbe27    = 0.706    // volts at 27 °C
	tempSlope    = 0.001721 // volts per °C
	adcFullScale = 4096
	adcVRefVolts = 3.3
)

func initADC() {
	machine.InitADC()
}

// adcSelect points the converter at channel ch and takes one sample.
func adcSelect(ch uint32) uint16 {
	if rp.ADC.CS.Get()&rp.ADC_CS_EN == 0 {
		machine.InitADC()
	}
	rp.ADC.CS.ReplaceBits(ch<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
	return uint16(rp.ADC.RESULT.Get())
}

// rawInternalTemp returns the 12-bit reading of the temperature sensor.
func rawInternalTemp() uint16 {
	rp.ADC.CS.SetBits(rp.ADC_CS_TS_EN)
	return adcSelect(tempChannel)
}

// Analog configures the pin as an ADC input and samples it.
func (p *pico) Analog(pin core.Pin) float64 {
	if p.states[pin].Mode() != core.StateAnalog {
		p.SetState(pin, core.StateAnalog)
	}
	return float64(p.AnalogFast(pin)) / 65535
}

// AnalogFast samples the pin's channel and scales the 12-bit result to 16.
func (p *pico) AnalogFast(pin core.Pin) uint16 {
	ch := p.board.Pins[pin].AnalogChannel
	if ch < 0 {
		return 0
	}
	raw := adcSelect(uint32(ch))
	return raw<<4 | raw>>8
}

// Temperature reads the internal sensor in degrees C.
func (p *pico) Temperature() float64 {
	v := float64(rawInternalTemp()) * adcVRefVolts / adcFullScale
	return 27 - (v-tempVbe27)/tempSlope
}

func (p *pico) VRef() float64 { return adcVRefVolts }
