package hardware

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleInventory = `
modules:
  - name: nrf-1
    model: nRF52840_OpenThread_Device
    port: /dev/ttyACM0
    interface_serial: "683536281"
    interface_number: 1
  - name: nrf-2
    model: nRF52840_OpenThread_Device
    port: /dev/ttyACM1
    interface_serial: "683536282"
    interface_number: 1
  - name: efr-1
    model: Efr32
    port: /dev/ttyACM2
  - name: sniffer-1
    model: NordicSniffer
    port: /dev/ttyACM3
`

func writeInventory(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hwconfig.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRegistry_Load(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(writeInventory(t, sampleInventory)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(r.Modules()); got != 4 {
		t.Fatalf("got %d modules, want 4", got)
	}
}

func TestRegistry_LoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unsupported model",
			content: `
modules:
  - name: odd-1
    model: TI_CC2538
    port: /dev/ttyACM0
`,
		},
		{
			name: "missing port",
			content: `
modules:
  - name: nrf-1
    model: nRF52840_OpenThread_Device
`,
		},
		{
			name: "duplicate name",
			content: `
modules:
  - name: nrf-1
    model: nRF52840_OpenThread_Device
    port: /dev/ttyACM0
  - name: nrf-1
    model: nRF52840_OpenThread_Device
    port: /dev/ttyACM1
`,
		},
		{
			name:    "invalid yaml",
			content: "modules: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			if err := r.Load(writeInventory(t, tt.content)); err == nil {
				t.Error("Load() succeeded, want error")
			}
		})
	}
}

func TestRegistry_LoadMissingFile(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() succeeded, want error")
	}
}

func TestRegistry_ClaimAndFree(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(writeInventory(t, sampleInventory)); err != nil {
		t.Fatal(err)
	}

	first, err := r.Claim(ModelNRF52840)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !first.Claimed() {
		t.Error("claimed module reports unclaimed")
	}

	second, err := r.Claim(ModelNRF52840)
	if err != nil {
		t.Fatalf("second Claim() error = %v", err)
	}
	if first.Name == second.Name {
		t.Errorf("same module %q claimed twice", first.Name)
	}

	if _, err := r.Claim(ModelNRF52840); !errors.Is(err, ErrNotFound) {
		t.Errorf("exhausted Claim() error = %v, want ErrNotFound", err)
	}

	if err := r.Free(first); err != nil {
		t.Fatalf("Free() error = %v", err)
	}
	reclaimed, err := r.Claim(ModelNRF52840)
	if err != nil {
		t.Fatalf("Claim() after Free() error = %v", err)
	}
	if reclaimed.Name != first.Name {
		t.Errorf("reclaimed %q, want %q", reclaimed.Name, first.Name)
	}
}

func TestRegistry_FreeUnclaimed(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(writeInventory(t, sampleInventory)); err != nil {
		t.Fatal(err)
	}
	mods := r.Modules()
	if err := r.Free(mods[0]); !errors.Is(err, ErrNotClaimed) {
		t.Errorf("Free() error = %v, want ErrNotClaimed", err)
	}
	if err := r.Free(&Module{Name: "stranger", Model: ModelEfr32, Port: "/dev/null"}); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("Free(stranger) error = %v, want ErrUnknownModule", err)
	}
}

func TestRegistry_ClaimByName(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(writeInventory(t, sampleInventory)); err != nil {
		t.Fatal(err)
	}

	m, err := r.ClaimByName("efr-1")
	if err != nil {
		t.Fatalf("ClaimByName() error = %v", err)
	}
	if m.Model != ModelEfr32 {
		t.Errorf("model = %q", m.Model)
	}

	if _, err := r.ClaimByName("efr-1"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("second ClaimByName() error = %v, want ErrAlreadyClaimed", err)
	}
	if _, err := r.ClaimByName("ghost"); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("ClaimByName(ghost) error = %v, want ErrUnknownModule", err)
	}
}

func TestRegistry_ClaimSniffer(t *testing.T) {
	r := NewRegistry()
	if err := r.Load(writeInventory(t, sampleInventory)); err != nil {
		t.Fatal(err)
	}

	s := r.ClaimSniffer()
	if s == nil {
		t.Fatal("ClaimSniffer() = nil, want module")
	}
	if s.Model != ModelNordicSniffer {
		t.Errorf("model = %q", s.Model)
	}
	if r.ClaimSniffer() != nil {
		t.Error("second ClaimSniffer() returned a module, want nil")
	}
}

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry()
	m := &Module{Name: "nrf-1", Model: ModelNRF52840, Port: "/dev/ttyACM0"}
	if err := r.Add(m); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := r.Add(&Module{Name: "nrf-1", Model: ModelNRF52840, Port: "/dev/ttyACM1"}); err == nil {
		t.Error("duplicate Add() succeeded, want error")
	}
}
