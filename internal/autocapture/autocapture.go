// Package autocapture redirects the process's standard streams into the log
// pipeline and provides the console writers used for passthrough.
package autocapture

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/vigilant-run/vigilant-go/internal/event"
)

// LogFunc receives one captured line.
type LogFunc func(level event.Level, body string)

// Provider is a reversible capture of the standard streams.
type Provider interface {
	Install(fn LogFunc) error
	Uninstall() error
	// Passthrough returns the console writer for level. It always points at
	// the real terminal, never at a captured stream.
	Passthrough(level event.Level) io.Writer
}

// Select picks the provider variant once at startup.
func Select(enabled bool) Provider {
	if enabled {
		return NewStdStream()
	}
	return NewNull()
}

func writerFor(level event.Level, stdout, stderr io.Writer) io.Writer {
	switch level {
	case event.LevelError, event.LevelWarn:
		return stderr
	default:
		return stdout
	}
}

// NullProvider captures nothing.
type NullProvider struct {
	stdout io.Writer
	stderr io.Writer
}

func NewNull() *NullProvider {
	return &NullProvider{stdout: os.Stdout, stderr: os.Stderr}
}

func (*NullProvider) Install(LogFunc) error { return nil }
func (*NullProvider) Uninstall() error      { return nil }

func (p *NullProvider) Passthrough(level event.Level) io.Writer {
	return writerFor(level, p.stdout, p.stderr)
}

// StdStreamProvider swaps os.Stdout and os.Stderr for pipes. Each line
// written to stdout becomes an INFO log and each line written to stderr an
// ERROR log.
type StdStreamProvider struct {
	stdout *os.File
	stderr *os.File

	mu        sync.Mutex
	installed bool
	writers   []*os.File
	readers   sync.WaitGroup
}

// NewStdStream remembers the current standard streams as the passthrough
// targets.
func NewStdStream() *StdStreamProvider {
	return &StdStreamProvider{stdout: os.Stdout, stderr: os.Stderr}
}

func (p *StdStreamProvider) Install(fn LogFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.installed {
		return errors.New("autocapture: already installed")
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return err
	}

	p.writers = []*os.File{outW, errW}
	p.readers.Add(2)
	go p.scan(outR, event.LevelInfo, fn)
	go p.scan(errR, event.LevelError, fn)

	os.Stdout = outW
	os.Stderr = errW
	p.installed = true
	return nil
}

// Uninstall restores the original streams and waits until every line
// written before the call has been delivered.
func (p *StdStreamProvider) Uninstall() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.installed {
		return nil
	}
	os.Stdout = p.stdout
	os.Stderr = p.stderr

	var errs []error
	for _, w := range p.writers {
		errs = append(errs, w.Close())
	}
	p.readers.Wait()
	p.writers = nil
	p.installed = false
	return errors.Join(errs...)
}

func (p *StdStreamProvider) Passthrough(level event.Level) io.Writer {
	return writerFor(level, p.stdout, p.stderr)
}

func (p *StdStreamProvider) scan(r *os.File, level event.Level, fn LogFunc) {
	defer p.readers.Done()
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r\n")
		if line == "" {
			continue
		}
		fn(level, line)
	}
	// Drain anything past an over-long line so writers never block.
	_, _ = io.Copy(io.Discard, r)
}
