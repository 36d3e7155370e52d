package led

import (
	"fmt"
	"sync/atomic"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// gpio implements Indicator on a GPIO character device output line.
type gpio struct {
	chip   string
	offset int
	line   *gpiod.Line
	level  atomic.Bool
}

func newGPIO(chip string, offset int, activeLow bool) (*gpio, error) {
	opts := []gpiod.LineReqOption{gpiod.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiod.AsActiveLow)
	}

	line, err := gpiod.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output line %s:%d: %w", chip, offset, err)
	}

	return &gpio{chip: chip, offset: offset, line: line}, nil
}

func (g *gpio) Set(on bool) error {
	value := 0
	if on {
		value = 1
	}
	if err := g.line.SetValue(value); err != nil {
		return fmt.Errorf("set output line %s:%d: %w", g.chip, g.offset, err)
	}
	g.level.Store(on)
	return nil
}

func (g *gpio) Level() bool { return g.level.Load() }

func (g *gpio) Name() string { return fmt.Sprintf("gpio:%s:%d", g.chip, g.offset) }

func (g *gpio) Close() error {
	return g.line.Close()
}
