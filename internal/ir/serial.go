package ir

import (
	"fmt"
	"sync"

	"go.bug.st/serial"

	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// UART framing for the IR head companion board. The board drives the four
// emitters and the receiver module; the host talks to it over a serial port.
// Host → board: opTX dir char (three bytes), or a single opRXOn / opRXOff.
// Board → host: raw received characters.
const (
	opTX    = 0x01
	opRXOff = 0x02
	opRXOn  = 0x03
)

// SerialDriver is the Driver for a UART-attached IR transceiver board.
type SerialDriver struct {
	port serial.Port

	mu sync.Mutex
	rx []byte

	closed chan struct{}
}

// OpenSerial opens the IR head on the named serial device.
func OpenSerial(device string, baud int) (*SerialDriver, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open ir head %s: %w", device, err)
	}

	d := &SerialDriver{
		port:   port,
		closed: make(chan struct{}),
	}
	go d.readLoop()
	return d, nil
}

// readLoop pumps the port into the receive queue until Close.
func (d *SerialDriver) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := d.port.Read(buf)
		if n > 0 {
			d.mu.Lock()
			d.rx = append(d.rx, buf[:n]...)
			d.mu.Unlock()
		}
		if err != nil {
			select {
			case <-d.closed:
			default:
				util.LogError("ir head read error: %v", err)
			}
			return
		}
	}
}

func (d *SerialDriver) StartRX() {
	if _, err := d.port.Write([]byte{opRXOn}); err != nil {
		util.LogError("ir head rx-on failed: %v", err)
	}
}

func (d *SerialDriver) StopRX() {
	if _, err := d.port.Write([]byte{opRXOff}); err != nil {
		util.LogError("ir head rx-off failed: %v", err)
	}
}

func (d *SerialDriver) Send(dir Direction, b byte) error {
	_, err := d.port.Write([]byte{opTX, byte(dir), b})
	return err
}

func (d *SerialDriver) Recv() (byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rx) == 0 {
		return 0, false
	}
	b := d.rx[0]
	d.rx = d.rx[1:]
	return b, true
}

// Close releases the serial port.
func (d *SerialDriver) Close() error {
	close(d.closed)
	return d.port.Close()
}
