package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/natefinch/lumberjack"

	"marantzctl"
	"marantzctl/config"
	"marantzctl/mediaplayer"
)

const usage = `usage: marantzctl [flags] [command [args]]

commands:
  status               refresh and print the receiver state (default)
  watch                refresh every -interval until interrupted
  sources              list configured sources
  soundmodes           list configured sound modes
  on | off             power
  up | down            step volume
  volume <0..1>        set volume level
  mute | unmute        mute
  source <name>        select input source
  soundmode <name>     select sound mode

flags:
`

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	serialDeviceName := flag.String("serial", "/dev/ttyS0", "serial port device name, used when no -config is given")
	logFile := flag.String("logfile", "", "write logs to this file, rotated at 10MB")
	interval := flag.Duration("interval", 10*time.Second, "refresh interval for watch")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *logFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if *interval <= 0 {
		log.Fatalf("-interval must be positive, got %v", *interval)
	}

	cfg, err := loadConfig(*configFile, *serialDeviceName)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	c, err := marantzctl.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open receiver: %v", err)
	}
	defer c.Close()

	if err := run(c, flag.Args(), *interval); err != nil {
		c.Close()
		log.Fatalf("%v", err)
	}
}

func loadConfig(filename, serialDeviceName string) (config.Config, error) {
	if filename != "" {
		return config.Load(filename)
	}
	return config.Parse(map[string]interface{}{
		config.KeySerialPort: serialDeviceName,
	})
}

func run(c *marantzctl.Controller, args []string, interval time.Duration) error {
	command := "status"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "status":
		if err := c.Update(); err != nil {
			return err
		}
		fmt.Println(marantzctl.Format(mediaplayer.TakeSnapshot(c)))
		return nil
	case "watch":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Printf("Watching %s every %v", c.Name(), interval)
		return marantzctl.Watch(ctx, c, interval, func(s mediaplayer.Snapshot) {
			fmt.Println(marantzctl.Format(s))
		})
	case "sources":
		fmt.Println(strings.Join(c.SourceList(), "\n"))
		return nil
	case "soundmodes":
		fmt.Println(strings.Join(c.SoundModeList(), "\n"))
		return nil
	}
	return marantzctl.Dispatch(c, command, args)
}
