package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/swiftbotics/swiftbot/internal/config"
	"github.com/swiftbotics/swiftbot/internal/debug"
	"github.com/swiftbotics/swiftbot/internal/hw/camera"
	"github.com/swiftbotics/swiftbot/internal/hw/gateway"
	"github.com/swiftbotics/swiftbot/internal/hw/gpio"
	"github.com/swiftbotics/swiftbot/internal/hw/motor"
	"github.com/swiftbotics/swiftbot/internal/hw/underlight"
	"github.com/swiftbotics/swiftbot/internal/robot"
	"github.com/swiftbotics/swiftbot/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web interface on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock hardware", cfg.Defaults.MockHardware)

	// GPIO driver
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockHardware)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}

	// Underlighting
	debug.Step(2, "Initializing underlighting")
	bus, err := newBusFromConfig(cfg)
	if err != nil {
		log.Fatalf("init i2c failed: %v", err)
	}
	strip, err := underlight.NewStrip(bus)
	if err != nil {
		log.Fatalf("init underlighting failed: %v", err)
	}

	// Camera backend
	debug.Step(3, "Initializing camera backend")
	backend, err := newBackendFromConfig(cfg)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)

	// Hardware gateway
	debug.Step(4, "Assembling hardware gateway")
	gw := gateway.New(gpioDriver, strip, backend, gatewayConfig(cfg))

	if port := webPort.port(); port > 0 {
		events := web.NewEventBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(events)))

		bot := robot.New(gw, web.NewButtonRelay(events))
		defer closeRobot(bot)

		srv := web.NewServer(port, bot, events, cfg.Camera.RecordingsDir)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	// Demo mode: mirror buttons onto their LEDs, light up, take a
	// snapshot, and report distance until interrupted.
	mirror := &ledMirror{}
	bot := robot.New(gw, mirror)
	mirror.bind(bot)
	defer closeRobot(bot)

	if err := runDemo(ctx, bot, cfg); err != nil {
		log.Fatalf("demo failed: %v", err)
	}
}

func closeRobot(bot *robot.Robot) {
	if err := bot.Close(); err != nil {
		log.Printf("closing robot failed: %v", err)
	}
}

// runDemo exercises the whole facade once, then keeps mirroring button
// presses until the context is cancelled.
func runDemo(ctx context.Context, bot *robot.Robot, cfg *config.Config) error {
	debug.Section("Demo")

	if err := bot.FillUnderlighting(0, 64, 0); err != nil {
		return fmt.Errorf("underlighting: %w", err)
	}

	if err := bot.StartCamera(); err != nil {
		return fmt.Errorf("start camera: %w", err)
	}
	// Give the producer a moment to deliver the first frame.
	time.Sleep(200 * time.Millisecond)

	frame, err := bot.GetFrame()
	if err != nil {
		return fmt.Errorf("capture frame: %w", err)
	}
	if err := os.MkdirAll(cfg.Camera.RecordingsDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(cfg.Camera.RecordingsDir, "snapshot.jpg")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := frame.EncodeJPEG(f, 90); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	debug.Info("snapshot saved to %s", path)
	bot.StopCamera()

	if cm, err := bot.ReadDistance(); err != nil {
		debug.Error(err)
	} else {
		debug.Info("distance: %.1f cm", cm)
	}

	debug.Info("press the lid buttons to light their LEDs; Ctrl-C to exit")

	// Breathe the underlights until interrupted.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	var phase float64
	for {
		select {
		case <-ctx.Done():
			return bot.ClearUnderlighting()
		case <-ticker.C:
		}
		phase += 0.05
		level := int(96 * (0.5 + 0.5*math.Sin(phase)))
		if err := bot.FillUnderlighting(0, level, level/2); err != nil {
			return err
		}
	}
}

// ledMirror lights a button's LED while it is held. The robot reference
// is bound right after construction, before the first poll can fire.
type ledMirror struct {
	mu  sync.Mutex
	bot *robot.Robot
}

func (m *ledMirror) bind(bot *robot.Robot) {
	m.mu.Lock()
	m.bot = bot
	m.mu.Unlock()
}

func (m *ledMirror) setLED(b robot.Button, level float64) {
	m.mu.Lock()
	bot := m.bot
	m.mu.Unlock()
	if bot == nil {
		return
	}
	if err := bot.SetButtonLED(b, level); err != nil {
		debug.Error(err)
	}
}

func (m *ledMirror) OnPressed(b robot.Button)  { m.setLED(b, 1) }
func (m *ledMirror) OnReleased(b robot.Button) { m.setLED(b, 0) }

// gatewayConfig maps the YAML configuration onto the gateway wiring.
func gatewayConfig(cfg *config.Config) gateway.Config {
	gc := gateway.Config{
		Motors: motor.Config{
			Left:  motor.PinPair{ForwardPin: cfg.Motors.Left.ForwardPin, ReversePin: cfg.Motors.Left.ReversePin},
			Right: motor.PinPair{ForwardPin: cfg.Motors.Right.ForwardPin, ReversePin: cfg.Motors.Right.ReversePin},
		},
		Buttons: [4]gateway.ButtonPins{
			{Pin: cfg.Buttons.A.Pin, LEDPin: cfg.Buttons.A.LEDPin},
			{Pin: cfg.Buttons.B.Pin, LEDPin: cfg.Buttons.B.LEDPin},
			{Pin: cfg.Buttons.X.Pin, LEDPin: cfg.Buttons.X.LEDPin},
			{Pin: cfg.Buttons.Y.Pin, LEDPin: cfg.Buttons.Y.LEDPin},
		},
		PollEvery: cfg.PollInterval(),
	}
	gc.Ultrasonic.TriggerPin = cfg.Ultrasonic.TriggerPin
	gc.Ultrasonic.EchoPin = cfg.Ultrasonic.EchoPin
	gc.Ultrasonic.Timeout = cfg.UltrasonicTimeout()
	return gc
}

// newBusFromConfig selects the SN3218 transport. Mock hardware gets a
// logging bus so the lighting path still runs end to end.
func newBusFromConfig(cfg *config.Config) (underlight.Bus, error) {
	if cfg.Defaults.MockHardware {
		return &underlight.MockBus{}, nil
	}
	return underlight.OpenBus(cfg.Underlight.I2CBus, cfg.Underlight.Address)
}

// newBackendFromConfig selects a camera backend based on configuration.
func newBackendFromConfig(cfg *config.Config) (camera.Backend, error) {
	switch cfg.Camera.Type {
	case "mock":
		return &camera.MockBackend{Interval: time.Duration(float64(time.Second) / cfg.Camera.FPS)}, nil
	case "v4l":
		if cfg.Defaults.MockHardware {
			return nil, fmt.Errorf("camera type v4l requires real hardware")
		}
		return &camera.V4LBackend{DeviceID: cfg.Camera.Device, FPS: cfg.Camera.FPS}, nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or
// -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
