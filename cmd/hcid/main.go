//go:build linux
// +build linux

// Command hcid is the Bluetooth adapter daemon.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	bluez "github.com/thentenaar/bluez-dinovo"
	"github.com/thentenaar/bluez-dinovo/adapter"
	"github.com/thentenaar/bluez-dinovo/bus"
	"github.com/thentenaar/bluez-dinovo/linux/hci"
	"github.com/thentenaar/bluez-dinovo/linux/hci/socket"
	"github.com/thentenaar/bluez-dinovo/loop"
	"github.com/thentenaar/bluez-dinovo/manager"
	"github.com/thentenaar/bluez-dinovo/sdp"
)

func main() {
	app := cli.NewApp()

	app.Name = "hcid"
	app.Usage = "Bluetooth adapter daemon"
	app.Version = "3.36"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, f", Usage: "JSON configuration file"},
		cli.BoolFlag{Name: "debug, d", Usage: "enable debug output"},
		cli.StringFlag{Name: "log-level", Usage: "log level: error, warn, info or debug"},
		cli.BoolFlag{Name: "syslog", Usage: "also log to syslog"},
		cli.StringFlag{Name: "offmode", Usage: "meaning of mode off (noscan / devdown)"},
		cli.StringFlag{Name: "mode, m", Usage: "mode of adapters without stored state"},
		cli.StringFlag{Name: "storage, s", Usage: "directory for per adapter state"},
		cli.StringFlag{Name: "name, n", Usage: "default local name"},
		cli.UintFlag{Name: "discovto", Usage: "discoverable timeout in seconds, 0 to never time out"},
		cli.DurationFlag{Name: "cmd-timeout", Usage: "controller command timeout"},
		cli.StringFlag{Name: "h4-uart", Usage: "send commands as H4 frames over this serial port"},
		cli.UintFlag{Name: "h4-baud", Value: 1000000, Usage: "baud rate of the H4 serial port"},
		cli.StringFlag{Name: "h4-tcp", Usage: "send commands as H4 frames to this host:port"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		bluez.GetLogger().Errorf("%v", err)
		os.Exit(1)
	}
}

// options builds the configuration: the file first, flags on top.
func options(c *cli.Context) []bluez.Option {
	var opts []bluez.Option
	if f := c.String("config"); f != "" {
		opts = append(opts, bluez.OptConfigFile(f))
	}
	if s := c.String("offmode"); s != "" {
		opts = append(opts, bluez.OptOffMode(s))
	}
	if s := c.String("mode"); s != "" {
		opts = append(opts, bluez.OptStartupMode(s))
	}
	if s := c.String("storage"); s != "" {
		opts = append(opts, bluez.OptStorageDir(s))
	}
	if s := c.String("name"); s != "" {
		opts = append(opts, bluez.OptName(s))
	}
	if c.IsSet("discovto") {
		opts = append(opts, bluez.OptDiscoverableTimeout(uint32(c.Uint("discovto"))))
	}
	if d := c.Duration("cmd-timeout"); d > 0 {
		opts = append(opts, bluez.OptCommandTimeout(d))
	}
	return opts
}

// transportOption returns the H4 transport selected on the command line, if
// any. Device level requests still go through the kernel.
func transportOption(c *cli.Context) hci.Option {
	switch {
	case c.String("h4-uart") != "":
		return hci.OptTransportH4Uart(c.String("h4-uart"), c.Uint("h4-baud"))
	case c.String("h4-tcp") != "":
		return hci.OptTransportH4Socket(c.String("h4-tcp"), 2*time.Second)
	default:
		return nil
	}
}

func run(c *cli.Context) error {
	if l := c.String("log-level"); l != "" {
		if err := bluez.SetLogLevel(l); err != nil {
			return err
		}
	}
	if c.Bool("debug") {
		bluez.SetLogLevelMax()
	}
	if c.Bool("syslog") {
		if err := bluez.LogToSyslog(c.App.Name); err != nil {
			return err
		}
	}
	logger := bluez.GetLogger()

	cfg, err := bluez.NewConfig(options(c)...)
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	b, err := bus.Connect()
	if err != nil {
		return err
	}
	defer b.Close()

	l := loop.New()
	transport := transportOption(c)
	open := func(id int) (adapter.Controller, error) {
		opts := []hci.Option{
			hci.OptCommandTimeout(cfg.CommandTimeout),
			hci.OptErrorHandler(func(err error) {
				logger.Errorf("hci%d: %v", id, err)
			}),
		}
		if transport != nil {
			opts = append(opts, transport)
		}
		return adapter.NewHCIController(id, opts...)
	}
	m := manager.New(cfg, l, b, sdp.NewDB(), open)
	if err := b.ExportManager(m); err != nil {
		return err
	}

	mon, err := socket.NewMonitor()
	if err != nil {
		return err
	}
	defer mon.Close()

	l.Post(func() { initDevices(m) })
	go watchDevices(mon, l, m)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		logger.Infof("got %s, exiting", s)
		l.Post(func() {
			m.Shutdown()
			l.Stop()
		})
	}()

	logger.Infof("Bluetooth daemon %s", c.App.Version)
	l.Run()
	return nil
}

// initDevices picks up controllers registered before the daemon started.
func initDevices(m *manager.Manager) {
	ids, err := socket.Devices()
	if err != nil {
		bluez.GetLogger().Errorf("can't list devices: %v", err)
		return
	}
	for _, id := range ids {
		m.HandleEvent(manager.Event{Type: manager.Registered, ID: id})
		di, err := socket.DeviceInfo(id)
		if err == nil && di.Has(socket.FlagUp) {
			m.HandleEvent(manager.Event{Type: manager.Up, ID: id})
		}
	}
}

var devEvents = map[int]manager.EventType{
	socket.DevReg:   manager.Registered,
	socket.DevUnreg: manager.Unregistered,
	socket.DevUp:    manager.Up,
	socket.DevDown:  manager.Down,
}

func watchDevices(mon *socket.Monitor, l *loop.Loop, m *manager.Manager) {
	for {
		e, err := mon.Next()
		if err != nil {
			select {
			case <-l.Done():
			default:
				bluez.GetLogger().Errorf("device monitor: %v", err)
			}
			return
		}

		t, ok := devEvents[e.Event]
		if !ok {
			continue
		}
		ev := manager.Event{Type: t, ID: e.ID}
		if t == manager.Up {
			// give the kernel time to finish its own init commands
			time.Sleep(50 * time.Millisecond)
		}
		l.Post(func() { m.HandleEvent(ev) })
	}
}
