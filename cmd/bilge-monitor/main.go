// Command bilge-monitor watches the bilge water level and drives the
// horn, status LED, notifications and MQTT events.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/bilge-monitor/internal/config"
	"github.com/sweeney/bilge-monitor/internal/gpio"
	"github.com/sweeney/bilge-monitor/internal/led"
	"github.com/sweeney/bilge-monitor/internal/logging"
	"github.com/sweeney/bilge-monitor/internal/logic"
	"github.com/sweeney/bilge-monitor/internal/mqtt"
	"github.com/sweeney/bilge-monitor/internal/notify"
	"github.com/sweeney/bilge-monitor/internal/sensor"
	"github.com/sweeney/bilge-monitor/internal/status"
	"github.com/sweeney/bilge-monitor/internal/web"
)

// Twilio credentials come from the environment; the destination number
// lives in the settings file and is hot-editable from the portal.
const (
	envTwilioSID   = "TWILIO_ACCOUNT_SID"
	envTwilioToken = "TWILIO_AUTH_TOKEN"
	envTwilioFrom  = "TWILIO_FROM_NUMBER"
)

const statusLogInterval = 10 * time.Second

type options struct {
	poll         time.Duration
	configPath   string
	broker       string
	httpAddr     string
	heartbeat    time.Duration
	pinButton    int
	pinHorn      int
	pinLED       int
	i2cBus       string
	mockLevel    float64
	printReading bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.poll, "poll", 100*time.Millisecond, "Sensor polling interval")
	flag.StringVar(&opts.configPath, "config", "/var/lib/bilge-monitor/config.json", "Settings file path")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP portal address (empty to disable)")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.IntVar(&opts.pinButton, "pin-button", gpio.DefaultPinButton, "BCM pin number for the silence/config button")
	flag.IntVar(&opts.pinHorn, "pin-horn", gpio.DefaultPinHorn, "BCM pin number for the horn relay")
	flag.IntVar(&opts.pinLED, "pin-led", gpio.DefaultPinLED, "BCM pin number for the status LED")
	flag.StringVar(&opts.i2cBus, "i2c-bus", "", "I2C bus name for the ADC (empty for first available)")
	flag.Float64Var(&opts.mockLevel, "mock-level", -1, "Fixed water level in cm instead of real hardware (negative to disable)")
	flag.BoolVar(&opts.printReading, "print-reading", false, "Print one sensor reading and exit")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "console", "Log format (console, json)")
	flag.Parse()

	log, err := logging.New(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(log *zap.SugaredLogger, opts options) error {
	store, err := config.Open(opts.configPath)
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	mock := opts.mockLevel >= 0

	var reader sensor.Reader
	if mock {
		reader = &sensor.StaticReader{LevelCm: opts.mockLevel}
	} else {
		reader, err = sensor.NewADS1115Reader(opts.i2cBus, store.Calibration)
		if err != nil {
			return fmt.Errorf("init sensor: %w", err)
		}
	}
	defer reader.Close()

	if opts.printReading {
		rd := reader.Read()
		fmt.Printf("level: %.2f cm (%.0f mV, valid=%v)\n", rd.LevelCm, rd.Millivolts, rd.Valid)
		return nil
	}

	var (
		horn   gpio.Output
		ledOut gpio.Output
		button gpio.Button
	)
	if mock {
		horn = gpio.NewFakeOutput()
		ledOut = gpio.NewFakeOutput()
		button = gpio.NewFakeButton()
	} else {
		horn, err = gpio.NewRealOutput(opts.pinHorn)
		if err != nil {
			return fmt.Errorf("init horn: %w", err)
		}
		ledOut, err = gpio.NewRealOutput(opts.pinLED)
		if err != nil {
			horn.Close()
			return fmt.Errorf("init led: %w", err)
		}
		button, err = gpio.NewRealButton(opts.pinButton)
		if err != nil {
			horn.Close()
			ledOut.Close()
			return fmt.Errorf("init button: %w", err)
		}
	}
	defer horn.Close()
	defer ledOut.Close()
	defer button.Close()

	publisher := mqtt.NewRealPublisher(opts.broker, log)
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      opts.poll.Milliseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		HTTPAddr:    opts.httpAddr,
		ConfigPath:  opts.configPath,
	})

	var sms *notify.Twilio
	discord := notify.NewDiscord(store.WebhookURL)
	twilio := notify.NewTwilio(
		os.Getenv(envTwilioSID), os.Getenv(envTwilioToken), os.Getenv(envTwilioFrom),
		store.PhoneNumber)
	if twilio.Configured() {
		sms = twilio
	} else {
		log.Infow("sms disabled, twilio credentials not set")
	}
	if store.WebhookURL() == "" {
		log.Infow("discord disabled, no webhook configured")
	}
	channels := alertTransports(sms, discord, store.WebhookURL() != "")

	srv := web.New(opts.httpAddr, web.Deps{
		Tracker: tracker,
		Store:   store,
		Reading: reader.Read,
		SMS:     smsOrNil(sms),
		Discord: discord,
		Log:     log,
	})
	if opts.httpAddr != "" {
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http portal listening", "addr", opts.httpAddr)
	}

	initial := logic.StateNormal
	if store.FirstBoot() {
		// Unconfigured device: come up in configuration mode with an
		// open portal session instead of trusting factory thresholds.
		initial = logic.StateConfig
		srv.StartSession()
		log.Infow("first boot, entering configuration mode")
	}

	snap := tracker.Snapshot()
	raw, _ := status.FormatStatusEvent(snap, "STARTUP", "")
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: raw,
	}); err != nil {
		log.Warnw("startup event publish failed", "error", err)
	}

	log.Infow("started",
		"poll", opts.poll, "broker", opts.broker, "heartbeat", opts.heartbeat,
		"config", opts.configPath, "mock", mock)

	ticker := time.NewTicker(opts.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		log:        log,
		machine:    logic.NewMachine(initial, time.Now()),
		buttons:    logic.NewButtonTracker(logic.SilenceHoldDuration),
		reader:     reader,
		store:      store,
		horn:       horn,
		leds:       led.NewDriver(ledOut),
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		notifiers:  channels,
		session:    srv,
		heartbeat:  opts.heartbeat,
	}
	return runLoop(d, time.Now, ticker.C, button.Events(), sigCh)
}

func smsOrNil(t *notify.Twilio) notify.Notifier {
	if t == nil {
		return nil
	}
	return t
}

// alertTransports builds the alert fan-out from the configured channels.
// The portal still holds the unconfigured ones for its test endpoints;
// only live transports belong here, so an unset webhook does not warn
// on every alert.
func alertTransports(sms *notify.Twilio, discord *notify.Discord, webhookSet bool) notify.Multi {
	var channels notify.Multi
	if sms != nil {
		channels = append(channels, sms)
	}
	if webhookSet {
		channels = append(channels, discord)
	}
	return channels
}

// configSession is the slice of the web server the loop needs.
type configSession interface {
	StartSession()
	SessionActive() bool
}

type daemon struct {
	log        *zap.SugaredLogger
	machine    *logic.Machine
	buttons    *logic.ButtonTracker
	reader     sensor.Reader
	store      *config.Store
	horn       gpio.Output
	leds       *led.Driver
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	notifiers  notify.Multi
	session    configSession
	heartbeat  time.Duration
}

func runLoop(d *daemon, now func() time.Time, tick <-chan time.Time, buttons <-chan gpio.ButtonEvent, sig <-chan os.Signal) error {
	start := now()
	d.leds.SetPattern(led.PatternForState(d.machine.State()), start)

	lastStatusLog := start
	lastHeartbeat := start

	for {
		select {
		case s := <-sig:
			d.log.Infow("shutting down", "signal", s)
			d.shutdown(now(), signalName(s))
			return nil

		case ev := <-buttons:
			if ev.Pressed {
				d.buttons.Press(ev.Time)
			} else if d.buttons.Release(ev.Time) {
				d.log.Infow("config requested by button press")
				d.machine.RequestConfig()
			}

		case <-tick:
			t := now()

			if d.buttons.SilenceDue(t) {
				d.dispatch(d.machine.ToggleSilence(), t, d.machine.State(), 0)
			}

			rd := d.reader.Read()
			cfg := d.store.Thresholds()
			prev := d.machine.State()
			act := d.machine.Update(
				logic.Reading{Valid: rd.Valid, LevelCm: rd.LevelCm},
				t, cfg, d.session.SessionActive())
			d.dispatch(act, t, prev, rd.LevelCm)

			if err := d.leds.Update(t); err != nil {
				d.log.Warnw("led update failed", "error", err)
			}

			tier1, tier2 := d.machine.TierActive()
			d.tracker.Update(d.machine.State(), rd.LevelCm, rd.Valid, tier1, tier2,
				d.machine.HornOn(), d.machine.Silenced())
			d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())

			if t.Sub(lastStatusLog) >= statusLogInterval {
				d.log.Debugw("status",
					"state", d.machine.State(), "level_cm", rd.LevelCm,
					"valid", rd.Valid, "horn", d.machine.HornOn(),
					"silenced", d.machine.Silenced())
				lastStatusLog = t
			}

			if d.heartbeat > 0 && t.Sub(lastHeartbeat) >= d.heartbeat {
				d.publishHeartbeat(t)
				lastHeartbeat = t
			}
		}
	}
}

// dispatch applies one Action: state change, horn command, outbound
// notification. prev is the state before the update that produced act.
func (d *daemon) dispatch(act logic.Action, t time.Time, prev logic.State, levelCm float64) {
	if act.StateChanged != nil {
		to := *act.StateChanged
		d.log.Infow("state change", "from", prev, "to", to, "level_cm", levelCm)

		if err := d.publisher.PublishState(mqtt.StateEvent{
			Timestamp: t,
			From:      prev,
			To:        to,
			LevelCm:   levelCm,
		}); err != nil {
			d.log.Warnw("state publish failed", "error", err)
		}

		if err := d.leds.SetPattern(led.PatternForState(to), t); err != nil {
			d.log.Warnw("led pattern failed", "error", err)
		}

		switch to {
		case logic.StateConfig:
			d.session.StartSession()
		case logic.StateEmergency:
			d.tracker.CountEmergency()
		case logic.StateError:
			d.tracker.CountSensorError()
		}
	}

	if act.HornCommand != nil {
		if err := d.horn.Set(*act.HornCommand); err != nil {
			d.log.Errorw("horn command failed", "on", *act.HornCommand, "error", err)
		} else {
			d.log.Infow("horn", "on", *act.HornCommand)
		}
	}

	if act.Notification != nil {
		n := act.Notification
		if err := d.notifiers.Send(n.Text); err != nil {
			d.log.Warnw("notification failed", "kind", n.Kind, "error", err)
		} else {
			d.log.Infow("notification sent", "kind", n.Kind)
		}
		switch n.Kind {
		case logic.NotifyAlert:
			d.tracker.CountAlert()
		case logic.NotifySilenceConfirm, logic.NotifyUnsilenceConfirm:
			d.tracker.CountSilenceToggle()
		}

		if err := d.publisher.PublishAlert(mqtt.AlertEvent{
			Timestamp: t,
			Kind:      n.Kind,
			Text:      n.Text,
		}); err != nil {
			d.log.Warnw("alert publish failed", "error", err)
		}
	}
}

func (d *daemon) publishHeartbeat(t time.Time) {
	snap := d.tracker.Snapshot()
	raw, err := status.FormatStatusEvent(snap, "HEARTBEAT", "")
	if err != nil {
		d.log.Warnw("heartbeat format failed", "error", err)
		return
	}
	if err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "HEARTBEAT",
		RawPayload: raw,
	}); err != nil {
		d.log.Warnw("heartbeat publish failed", "error", err)
	}
}

// shutdown silences the horn and announces the exit over MQTT.
func (d *daemon) shutdown(t time.Time, reason string) {
	if err := d.horn.Set(false); err != nil {
		d.log.Errorw("horn off on shutdown failed", "error", err)
	}

	d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	snap := d.tracker.Snapshot()
	raw, _ := status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	if err := d.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  t,
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: raw,
	}); err != nil {
		d.log.Warnw("shutdown event publish failed", "error", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
