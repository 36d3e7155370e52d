package button

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	gpiod "github.com/warthog618/go-gpiocdev"
)

// Config selects the button line.
type Config struct {
	Chip   string
	Line   int
	PullUp bool
	// ActiveLow marks a button that pulls the line to ground when pressed.
	ActiveLow bool
	Debounce  time.Duration
}

// Button watches a GPIO input line and calls onPress for each debounced
// press. onPress runs on the gpiocdev event goroutine and must not block.
type Button struct {
	line    *gpiod.Line
	cfg     Config
	onPress func()
	logger  *slog.Logger

	mu        sync.Mutex
	debouncer Debouncer
}

// Open requests the input line with edge detection on both edges.
func Open(cfg Config, onPress func(), logger *slog.Logger) (*Button, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Button{
		cfg:       cfg,
		onPress:   onPress,
		logger:    logger,
		debouncer: Debouncer{Window: cfg.Debounce},
	}

	opts := []gpiod.LineReqOption{
		gpiod.AsInput,
		gpiod.WithBothEdges,
		gpiod.WithEventHandler(b.handleEvent),
	}
	if cfg.PullUp {
		opts = append(opts, gpiod.WithPullUp)
	}

	line, err := gpiod.RequestLine(cfg.Chip, cfg.Line, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input line %s:%d: %w", cfg.Chip, cfg.Line, err)
	}
	b.line = line

	logger.Info("Button ready", "chip", cfg.Chip, "line", cfg.Line, "pull_up", cfg.PullUp, "debounce", cfg.Debounce)
	return b, nil
}

func (b *Button) handleEvent(evt gpiod.LineEvent) {
	b.mu.Lock()
	pressed := b.debouncer.Feed(isActive(evt.Type, b.cfg.ActiveLow), time.Now())
	b.mu.Unlock()

	if pressed {
		b.logger.Debug("Button pressed", "line", b.cfg.Line)
		b.onPress()
	}
}

// isActive maps an edge to the resulting logical level.
func isActive(edge gpiod.LineEventType, activeLow bool) bool {
	if activeLow {
		return edge == gpiod.LineEventFallingEdge
	}
	return edge == gpiod.LineEventRisingEdge
}

// Close releases the line.
func (b *Button) Close() error {
	return b.line.Close()
}
