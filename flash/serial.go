package flash

import (
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

var ErrTimeout = errors.New("timed out reading from bridge")
var ErrClosed = errors.New("serial port is closed")

// Open will connect to the bridge and sync its framing
func (b *Bridge) Open() (err error) {
	if b.IsOpen() {
		return nil
	}

	if err = b.setupPins(); err != nil {
		return errors.Wrap(err, "could not setup pins")
	}

	b.ttyPort, err = serial.Open(b.TTY(), &serial.Mode{
		BaudRate: b.BaudRate(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return errors.Wrap(err, "could not open serial")
	}

	b.ttyRx = make(chan byte, 64)
	go b.rx()

	if err = errors.Wrap(b.sync(), "could not sync bridge"); err != nil {
		b.Close()
		return
	}

	logrus.Debug("bridge open")

	return nil
}

// Close will close the connection and release the control pins
func (b *Bridge) Close() error {
	b.ttyActive = false

	if b.ttyPort != nil {
		b.ttyPort.Close()
		b.ttyPort = nil
	}

	b.pinWriteProtect.Cleanup()
	b.pinHold.Cleanup()
	b.pinPower.Cleanup()

	logrus.Debug("bridge close")

	return nil
}

func (b *Bridge) IsOpen() bool {
	return b.ttyPort != nil
}

// rx is the loop that will forever read from the port and write the incoming
// bytes to the rx chan
func (b *Bridge) rx() {
	b.ttyActive = true
	buf := make([]byte, 64)

	defer b.Close()

	b.ttyPort.SetReadTimeout(1 * time.Millisecond)

	for {
		n, err := b.ttyPort.Read(buf)
		if err != nil {

			// don't write out if we're just complaining about it being closed
			if perr, ok := err.(*serial.PortError); ok {
				if perr.Code() == serial.PortClosed {
					b.ttyPort = nil
					return
				}
			}

			if errors.Is(err, syscall.EBADF) {
				return
			}

			logrus.Error("rx err: ", err.Error())
			return
		}

		for _, rb := range buf[:n] {
			b.ttyRx <- rb
		}
		if n > 0 {
			logrus.Debugf("bridge rx: %x", buf[:n])
		}
	}
}

// write will write the specified bytes to the bridge
func (b *Bridge) write(bs []byte) (err error) {
	if !b.IsOpen() {
		return ErrClosed
	}

	_, err = b.ttyPort.Write(bs)
	if err != nil {
		return
	}
	logrus.Debugf("bridge tx: %x", bs)

	return
}

// readN will read exactly N bytes from the rx chan
func (b *Bridge) readN(n int, to time.Duration) ([]byte, error) {
	if !b.IsOpen() {
		return nil, ErrClosed
	}

	bs := make([]byte, n)

	for i := 0; i < n; i++ {
		select {
		case <-time.After(to):
			return nil, ErrTimeout
		case rb := <-b.ttyRx:
			bs[i] = rb
		}
	}

	return bs, nil
}
