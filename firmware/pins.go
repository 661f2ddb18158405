//go:build tinygo

package main

import "machine"

const (
	// Sensor configuration
	HUMIDITY_OSR    = 3 // Oversampling 0..3, see htu31d.Conversion
	TEMPERATURE_OSR = 3
	RESET_DELAY_MS  = 15 // Time for the sensor to come out of soft reset

	// I2C configuration
	I2C_FREQUENCY = 400 * machine.KHz
	PIN_SDA       = machine.SDA_PIN
	PIN_SCL       = machine.SCL_PIN

	// Status LED, lit while the heater is on
	PIN_LED = machine.LED

	// Serial configuration
	// Longest reply is "D,4294967295,-40.00,100.00\r\n" = 28 bytes, one per
	// host command, so the link is never the bottleneck.
	UART_BAUD_RATE = 115200
)
