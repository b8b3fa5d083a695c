package hardware

import "fmt"

// Known development board models.
const (
	ModelNRF52840      = "nRF52840_OpenThread_Device"
	ModelEfr32         = "Efr32"
	ModelNordicSniffer = "NordicSniffer"
)

// devModels lists every model the registry will hand out as a board.
var devModels = map[string]bool{
	ModelNRF52840:      true,
	ModelEfr32:         true,
	ModelNordicSniffer: true,
}

// Module is one physical device attached to the test host. Claim state
// is managed by the owning Registry; callers treat a claimed module as
// exclusively theirs until they free it.
type Module struct {
	Name            string `yaml:"name"`
	Model           string `yaml:"model"`
	Port            string `yaml:"port"`
	InterfaceSerial string `yaml:"interface_serial"`
	InterfaceNumber int    `yaml:"interface_number"`
	DutSerial       string `yaml:"dut_serial"`

	claimed bool
}

// Claimed reports whether the module is currently held.
func (m *Module) Claimed() bool { return m.claimed }

func (m *Module) String() string {
	return fmt.Sprintf("[%s]\nmodel: %s\nport : %s\nclaim: %t", m.Name, m.Model, m.Port, m.claimed)
}

func (m *Module) validate() error {
	if m.Name == "" {
		return fmt.Errorf("hardware: module with empty name")
	}
	if !devModels[m.Model] {
		return fmt.Errorf("hardware: module %s has unsupported model %q", m.Name, m.Model)
	}
	if m.Port == "" {
		return fmt.Errorf("hardware: module %s has no port", m.Name)
	}
	return nil
}
