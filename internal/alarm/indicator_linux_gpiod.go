//go:build linux && (arm || arm64)

package alarm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// OpenGPIOIndicator drives lineName (e.g. "GPIO17") as a digital output via
// the Linux GPIO character device, repurposing the chip-discovery dance the
// teacher uses for its fan GPIO backend: try every /dev/gpiochip* present
// until one exposes the requested line.
func OpenGPIOIndicator(lineName string) (Indicator, error) {
	if lineName == "" {
		return nil, fmt.Errorf("alarm: empty gpio line name")
	}

	var chipCandidates []string
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("actuatorcore-alarm"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodIndicator{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("alarm: gpio line %q not found (or busy)", lineName)
}

type gpiodIndicator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodIndicator) Set(on bool) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("alarm: indicator not initialized")
	}
	v := 0
	if on {
		v = 1
	}
	return g.line.SetValue(v)
}

func (g *gpiodIndicator) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
