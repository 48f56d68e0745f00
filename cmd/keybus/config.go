package main

import (
	"fmt"

	keybus "github.com/cskzoli/dscKeybusInterface"
)

// Config collects every flag the keybus subcommands share: which
// transport to open the bus on, and the Interface-level options that
// apply regardless of transport.
type Config struct {
	Transport string `env:"KEYBUS_TRANSPORT" envDefault:"gpio"` // "gpio" or "serial"

	ClockPin string `env:"KEYBUS_CLOCK_PIN" envDefault:"GPIO18"`
	DataPin  string `env:"KEYBUS_DATA_PIN" envDefault:"GPIO23"`
	PC16Pin  string `env:"KEYBUS_PC16_PIN" envDefault:"GPIO24"`
	WritePin string `env:"KEYBUS_WRITE_PIN"`

	SerialPort string `env:"KEYBUS_SERIAL_PORT"`
	SerialBaud int    `env:"KEYBUS_SERIAL_BAUD" envDefault:"115200"`

	AccessCodeStay    string `env:"KEYBUS_ACCESS_CODE"`
	HideKeypadDigits  bool   `env:"KEYBUS_HIDE_DIGITS"`
	ProcessModuleData bool   `env:"KEYBUS_PROCESS_MODULE_DATA" envDefault:"true"`
}

// interfaceConfig derives the keybus.Config portion of Config.
func (c Config) interfaceConfig() keybus.Config {
	return keybus.Config{
		AccessCodeStay:    c.AccessCodeStay,
		HideKeypadDigits:  c.HideKeypadDigits,
		ProcessModuleData: c.ProcessModuleData,
	}
}

// openBus resolves Transport into a live Bus, since the live/record
// subcommands both need a hardware-backed bus but differ in what they do
// with its edges afterward.
func (c Config) openBus() (keybus.Bus, error) {
	switch c.Transport {
	case "", "gpio":
		bus, err := keybus.NewGPIOBus(keybus.GPIOConfig{
			ClockPin: c.ClockPin,
			DataPin:  c.DataPin,
			PC16Pin:  c.PC16Pin,
			WritePin: c.WritePin,
		})
		if err != nil {
			return nil, fmt.Errorf("opening GPIO bus: %w", err)
		}
		return bus, nil
	case "serial":
		bus, err := keybus.OpenSerialBus(keybus.SerialBusConfig{
			Port:     c.SerialPort,
			Baud:     c.SerialBaud,
			WritePin: c.WritePin != "",
		})
		if err != nil {
			return nil, fmt.Errorf("opening serial bus: %w", err)
		}
		return bus, nil
	default:
		return nil, fmt.Errorf("unknown transport %q, want \"gpio\" or \"serial\"", c.Transport)
	}
}
