// cmd/kraken-recv/main.go
//
// Receives datalogger record lines from a serial port (a UARTSink on the
// far end) and appends them to per-day files. Record lines go to stdout,
// diagnostics to stderr, so the stream stays pipeable.
package main

import (
	"bufio"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tarm/serial"

	"regmap-go/platform"
	"regmap-go/x/timex"
)

func main() {
	port := flag.String("port", "/dev/ttyUSB0", "serial port device")
	baud := flag.Int("baud", 115200, "baud rate")
	mask := flag.String("mask", "data/DataLog_2006-01-02.csv", "output path, a Go time layout")
	flag.Parse()

	sink := platform.NewFileSink(*mask)
	defer sink.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-stop
		close(done)
		// A blocked serial read cannot be interrupted portably; the file
		// is appended unbuffered, so leaving now loses nothing.
		println("Info: recv stopping")
		os.Exit(0)
	}()

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-done:
			return
		default:
		}

		p, err := serial.OpenPort(&serial.Config{Name: *port, Baud: *baud})
		if err != nil {
			delay := backoff()
			println("Warn: recv open", *port+":", err.Error())
			if !timex.SleepUntil(done, time.Now().Add(delay)) {
				return
			}
			continue
		}

		println("Info: recv listening on", *port)
		err = pump(p, sink)
		_ = p.Close()
		if errors.Is(err, io.EOF) {
			println("Info: recv port closed")
			return
		}
		delay := backoff()
		println("Warn: recv link lost:", err.Error())
		if !timex.SleepUntil(done, time.Now().Add(delay)) {
			return
		}
	}
}

// pump copies record lines to stdout and the file sink until the port
// errors. A clean end of stream comes back as io.EOF.
func pump(r io.Reader, sink platform.Sink) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		os.Stdout.WriteString(line + "\n")
		if err := sink.WriteLine(line); err != nil {
			println("Warn: recv file write:", err.Error())
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}
