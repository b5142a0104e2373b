// Package console implements the operator console: a line-oriented serial
// protocol a second agent uses to assert the interlock and read back status
// (spec.md §4.4 "a second agent may set the flag to STOPREQUEST"). It has no
// command for pushing ActuatorSettings or MixerSettings.
package console

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/tarm/serial"

	"actuatorcore/internal/broker"
	"actuatorcore/internal/uavobjects"
)

// Console reads newline-terminated commands from a serial port and applies
// them to a broker. Recognized commands:
//
//	OK            -> set interlock to OK
//	STOPREQUEST   -> set interlock to STOPREQUEST
//	STATUS        -> write back a one-line status report
type Console struct {
	port   io.ReadWriteCloser
	broker *broker.Broker

	stopCh chan struct{}
	doneCh chan struct{}
}

// Open opens device at baud and starts the console's read loop against b.
func Open(device string, baud int, b *broker.Broker) (*Console, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 200 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("console: open %s: %w", device, err)
	}

	c := &Console{
		port:   port,
		broker: b,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go c.run()
	return c, nil
}

func (c *Console) run() {
	defer close(c.doneCh)

	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		select {
		case <-c.stopCh:
			return
		default:
		}
		c.handleLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Printf("console: read error: %v", err)
	}
}

func (c *Console) handleLine(line string) {
	cmd := strings.ToUpper(strings.TrimSpace(line))
	switch cmd {
	case "OK":
		c.broker.SetInterlock(uavobjects.InterlockOK)
	case "STOPREQUEST":
		c.broker.SetInterlock(uavobjects.InterlockStopRequest)
	case "STATUS":
		c.writeStatus()
	case "":
		// ignore blank lines
	default:
		fmt.Fprintf(c.port, "ERR unknown command %q\n", cmd)
	}
}

func (c *Console) writeStatus() {
	interlock := c.broker.Interlock()
	cmd := c.broker.Command()
	fmt.Fprintf(c.port, "interlock=%s update_time_ms=%.2f max_update_time_ms=%.2f\n",
		interlock, cmd.UpdateTime, cmd.MaxUpdateTime)
}

// Close stops the read loop and closes the underlying port.
func (c *Console) Close() error {
	close(c.stopCh)
	err := c.port.Close()
	<-c.doneCh
	return err
}
