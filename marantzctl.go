package marantzctl

import (
	"fmt"
	"log"
	"time"

	"github.com/jd3nn1s/serial"

	"marantzctl/adapters/marantz"
	"marantzctl/config"
	"marantzctl/mediaplayer"
)

// Controller owns the serial port of one receiver and the media-player
// entity driving it.
type Controller struct {
	*mediaplayer.Marantz
	port *serial.Port
}

func Open(cfg config.Config) (*Controller, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.SerialPort,
		Baud:        9600,
		ReadTimeout: time.Second * 2,
		Size:        8,
		StopBits:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open RS232 port %s: %w", cfg.SerialPort, err)
	}

	receiver := marantz.NewReceiver(port, port)
	receiver.AddUnsolicitedReplyHandler(func(reply marantz.Reply) error {
		log.Printf("%s: unsolicited reply %s%c%s", cfg.Name, reply.Command, reply.Marker, reply.Value)
		return nil
	})

	return &Controller{
		Marantz: mediaplayer.NewMarantz(cfg, receiver),
		port:    port,
	}, nil
}

// Close releases the serial port.
func (c *Controller) Close() error {
	return c.port.Close()
}
